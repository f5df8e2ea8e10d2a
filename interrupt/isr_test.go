package interrupt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrampolinesForwardToActiveDispatcher(t *testing.T) {
	defer SetActiveDispatcher(nil)

	var gotVector uint8
	var gotCode uint64
	d := NewDispatcher()
	d.Register(VectorPageFault, func(regs *Regs, frame *Frame, errorCode uint64) {
		gotVector, gotCode = VectorPageFault, errorCode
	})
	d.Register(VectorTimer, func(regs *Regs, frame *Frame, errorCode uint64) {
		gotVector = VectorTimer
	})
	d.Register(VectorKeyboard, func(regs *Regs, frame *Frame, errorCode uint64) {
		gotVector = VectorKeyboard
	})
	SetActiveDispatcher(d)

	pageFaultTrampoline(&TrapWithCode{ErrorCode: 7})
	require.EqualValues(t, VectorPageFault, gotVector)
	require.EqualValues(t, 7, gotCode)

	timerTrampoline(&Trap{})
	require.EqualValues(t, VectorTimer, gotVector)

	keyboardTrampoline(&Trap{})
	require.EqualValues(t, VectorKeyboard, gotVector)
}

func TestTrampolinesAreNoopWithoutActiveDispatcher(t *testing.T) {
	SetActiveDispatcher(nil)
	require.NotPanics(t, func() {
		pageFaultTrampoline(&TrapWithCode{})
		timerTrampoline(&Trap{})
		keyboardTrampoline(&Trap{})
	})
}
