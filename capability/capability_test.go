package capability

import (
	"testing"

	"aethelos/defs"
	"github.com/stretchr/testify/require"
)

func testKey() [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = byte(i*7 + 1)
	}
	return k
}

func TestCreateAndValidate(t *testing.T) {
	tbl := NewTable(testKey())
	id := tbl.Create(Read|Write, 7)

	rec, err := tbl.Validate(id, Read)
	require.Zero(t, err)
	require.Equal(t, Read|Write, rec.Rights)
}

func TestValidateUnknownIDIsInvalid(t *testing.T) {
	tbl := NewTable(testKey())
	_, err := tbl.Validate(999, Read)
	require.Equal(t, defs.ECAPINVAL, err)
}

func TestValidateForgedRecordFails(t *testing.T) {
	tbl := NewTable(testKey())
	id := tbl.Create(Read, 1)

	rec := tbl.caps[id]
	rec.Rights = Read | Write // widen rights without recomputing the seal
	tbl.caps[id] = rec

	_, err := tbl.Validate(id, Read)
	require.Equal(t, defs.ECAPFORGED, err)
}

func TestAttenuationAndRevocationScenario(t *testing.T) {
	tbl := NewTable(testKey())

	p := tbl.Create(Read|Write|Share, 7)
	c, err := tbl.Derive(p, Read)
	require.Zero(t, err)

	_, err = tbl.Validate(c, Write)
	require.Equal(t, defs.ECAPRIGHTS, err)

	require.Zero(t, tbl.Revoke(p))

	_, err = tbl.Validate(c, Read)
	require.Equal(t, defs.ECAPREVOKED, err)
}

func TestDeriveWithoutShareFails(t *testing.T) {
	tbl := NewTable(testKey())
	p := tbl.Create(Read|Write, 7) // no Share
	_, err := tbl.Derive(p, Read)
	require.Equal(t, defs.ECAPRIGHTS, err)
}

func TestDeriveWideningRightsFails(t *testing.T) {
	tbl := NewTable(testKey())
	p := tbl.Create(Read|Share, 7)
	_, err := tbl.Derive(p, Read|Write)
	require.Equal(t, defs.ECAPRIGHTS, err)
}

func TestRevokeUnknownIDFails(t *testing.T) {
	tbl := NewTable(testKey())
	require.Equal(t, defs.ECAPINVAL, tbl.Revoke(42))
}

func TestCreatedIDsAreMonotonic(t *testing.T) {
	tbl := NewTable(testKey())
	a := tbl.Create(Read, 1)
	b := tbl.Create(Read, 2)
	require.Less(t, uint64(a), uint64(b))
}
