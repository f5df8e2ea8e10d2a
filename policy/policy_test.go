package policy

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaultFields(t *testing.T) {
	doc := `
MaxVessels = 4
UserStackPages = 32
QuantumTicks = 20
PreemptionEnabled = false
`
	l, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.EqualValues(t, 4, l.MaxVessels)
	require.EqualValues(t, 32, l.UserStackPages)
	require.EqualValues(t, 20, l.QuantumTicks)
	require.False(t, l.PreemptionEnabled)
	require.EqualValues(t, Default.KernelStackPages, l.KernelStackPages)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(strings.NewReader("not = [valid"))
	require.Error(t, err)
}

func TestResourceLimitsConversion(t *testing.T) {
	l := Default
	rl := l.ResourceLimits()
	require.Equal(t, l.UserStackPages, rl.UserStackPages)
	require.Equal(t, l.MaxCapabilities, rl.MaxCapabilities)
}

func TestBudgetTakenFailsWhenExhausted(t *testing.T) {
	b := NewBudget(1)
	require.True(t, b.Take())
	require.False(t, b.Take())
	require.EqualValues(t, 0, b.Remaining())
}

func TestBudgetGiveRestoresCapacity(t *testing.T) {
	b := NewBudget(0)
	require.False(t, b.Take())
	b.Give()
	require.True(t, b.Take())
}

func TestBudgetConcurrentTakeNeverOverdraws(t *testing.T) {
	b := NewBudget(50)
	var wg sync.WaitGroup
	successes := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			successes <- b.Take()
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for ok := range successes {
		if ok {
			count++
		}
	}
	require.Equal(t, 50, count)
	require.Zero(t, b.Remaining())
}
