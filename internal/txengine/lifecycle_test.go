package txengine

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLifecycleHappyPath(t *testing.T) {
	var transitions [][2]State
	var gotSig solana.Signature
	lc := NewLifecycle(Callbacks{
		OnTransition: func(from, to State) {
			transitions = append(transitions, [2]State{from, to})
		},
		OnSuccess: func(sig solana.Signature) { gotSig = sig },
		OnError:   func(cerr *ClassifiedError) { t.Fatalf("unexpected error callback: %v", cerr) },
	}, zap.NewNop())

	path := []State{
		StateValidating, StateSimulating, StateAwaitingSignature,
		StateSigning, StateSending, StateConfirming,
	}
	for _, next := range path {
		require.True(t, lc.Transition(next), "edge to %s must be legal", next)
	}
	lc.Succeed(makeSig(9))

	assert.Equal(t, StateSuccess, lc.State())
	assert.Equal(t, makeSig(9), gotSig)
	require.Len(t, transitions, len(path)+1)
	assert.Equal(t, [2]State{StateIdle, StateValidating}, transitions[0])
	assert.Equal(t, [2]State{StateConfirming, StateSuccess}, transitions[len(transitions)-1])
}

func TestLifecycleIllegalTransitionIsNoOp(t *testing.T) {
	lc := NewLifecycle(Callbacks{}, zap.NewNop())

	assert.False(t, lc.Transition(StateConfirming), "Idle cannot jump to Confirming")
	assert.Equal(t, StateIdle, lc.State())

	require.True(t, lc.Transition(StateValidating))
	assert.False(t, lc.Transition(StateSending))
	assert.Equal(t, StateValidating, lc.State(), "state must survive an illegal request untouched")
}

func TestLifecycleRetryEdges(t *testing.T) {
	lc := NewLifecycle(Callbacks{}, zap.NewNop())
	for _, next := range []State{StateValidating, StateSimulating, StateAwaitingSignature, StateSigning, StateSending} {
		require.True(t, lc.Transition(next))
	}

	assert.True(t, lc.Transition(StateSimulating), "a failed send loops back to a fresh attempt")
	assert.False(t, lc.Transition(StateSending), "every attempt passes through the signature states")
	for _, next := range []State{StateAwaitingSignature, StateSigning, StateSending, StateConfirming} {
		require.True(t, lc.Transition(next))
	}
	assert.True(t, lc.Transition(StateSimulating), "an expired confirmation loops back too")
}

func TestLifecycleCancelSkipsErrorCallback(t *testing.T) {
	errorFired := false
	lc := NewLifecycle(Callbacks{
		OnError: func(cerr *ClassifiedError) { errorFired = true },
	}, zap.NewNop())

	require.True(t, lc.Transition(StateValidating))
	require.True(t, lc.Transition(StateSimulating))
	require.True(t, lc.Transition(StateAwaitingSignature))

	lc.Cancel()

	assert.Equal(t, StateIdle, lc.State())
	assert.False(t, errorFired, "a deliberate cancel is not an error")
}

func TestLifecycleCancelFromTerminalIsNoOp(t *testing.T) {
	lc := NewLifecycle(Callbacks{}, zap.NewNop())
	require.True(t, lc.Transition(StateValidating))
	lc.Fail(&ClassifiedError{Tag: TagProgramError})
	require.Equal(t, StateError, lc.State())

	lc.Cancel()
	assert.Equal(t, StateError, lc.State())
}

func TestLifecycleErrorCallbackFiresOnce(t *testing.T) {
	fires := 0
	lc := NewLifecycle(Callbacks{
		OnError: func(cerr *ClassifiedError) { fires++ },
	}, zap.NewNop())

	require.True(t, lc.Transition(StateValidating))
	lc.Fail(&ClassifiedError{Tag: TagProgramError})
	lc.Fail(&ClassifiedError{Tag: TagProgramError})

	assert.Equal(t, 1, fires)
}

func TestLifecycleResetReenablesCallbacks(t *testing.T) {
	fires := 0
	lc := NewLifecycle(Callbacks{
		OnError: func(cerr *ClassifiedError) { fires++ },
	}, zap.NewNop())

	require.True(t, lc.Transition(StateValidating))
	lc.Fail(&ClassifiedError{Tag: TagProgramError})
	require.Equal(t, 1, fires)

	assert.True(t, lc.Reset())
	assert.Equal(t, StateIdle, lc.State())

	require.True(t, lc.Transition(StateValidating))
	lc.Fail(&ClassifiedError{Tag: TagProgramError})
	assert.Equal(t, 2, fires, "a reset machine reports its next terminal error")
}

func TestLifecycleResetRequiresTerminalState(t *testing.T) {
	lc := NewLifecycle(Callbacks{}, zap.NewNop())
	require.True(t, lc.Transition(StateValidating))
	assert.False(t, lc.Reset())
	assert.Equal(t, StateValidating, lc.State())
}
