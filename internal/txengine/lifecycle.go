package txengine

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// State is a lifecycle state of one logical submission.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSimulating
	StateAwaitingSignature
	StateSigning
	StateSending
	StateConfirming
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSimulating:
		return "simulating"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateSigning:
		return "signing"
	case StateSending:
		return "sending"
	case StateConfirming:
		return "confirming"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a submission.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

// legalTransitions is the full transition table. Anything not listed is
// illegal and ignored as a no-op.
var legalTransitions = map[State][]State{
	StateIdle:              {StateValidating},
	StateValidating:        {StateSimulating, StateError},
	StateSimulating:        {StateAwaitingSignature, StateError},
	StateAwaitingSignature: {StateSigning, StateError},
	StateSigning:           {StateSending, StateError},
	StateSending:           {StateConfirming, StateSimulating, StateError},
	StateConfirming:        {StateSuccess, StateSimulating, StateError},
	StateSuccess:           {StateIdle},
	StateError:             {StateIdle},
}

// Callbacks are how the caller observes a submission. OnTransition fires on
// every legal transition; OnSuccess and OnError fire at most once each.
type Callbacks struct {
	OnTransition func(from, to State)
	OnSuccess    func(sig solana.Signature)
	OnError      func(err *ClassifiedError)
}

// Lifecycle is the single source of truth for a submission's progress. All
// components report into it; callers observe it instead of wiring their own
// subscriptions. Sending→Simulating and Confirming→Simulating are the retry
// edges back to a fresh attempt.
type Lifecycle struct {
	mu     sync.Mutex
	state  State
	cb     Callbacks
	logger *zap.Logger

	errorFired   bool
	successFired bool
}

func NewLifecycle(cb Callbacks, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		state:  StateIdle,
		cb:     cb,
		logger: logger.Named("lifecycle"),
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves to the target state if the edge is legal and reports
// whether it happened. Illegal transitions are no-ops, never corruption.
func (l *Lifecycle) Transition(to State) bool {
	l.mu.Lock()
	from := l.state
	if !legal(from, to) {
		l.mu.Unlock()
		l.logger.Debug("ignoring illegal transition",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		return false
	}
	l.state = to
	cb := l.cb.OnTransition
	l.mu.Unlock()

	l.logger.Debug("state transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	if cb != nil {
		cb(from, to)
	}
	return true
}

// Succeed moves to Success and fires the terminal success callback once.
func (l *Lifecycle) Succeed(sig solana.Signature) {
	if !l.Transition(StateSuccess) {
		return
	}
	l.mu.Lock()
	fired := l.successFired
	l.successFired = true
	cb := l.cb.OnSuccess
	l.mu.Unlock()
	if !fired && cb != nil {
		cb(sig)
	}
}

// Fail moves to Error and fires the terminal error callback once. Errors
// that are not user-facing (rejection, cancellation) never reach here; use
// Cancel for those.
func (l *Lifecycle) Fail(cerr *ClassifiedError) {
	if !l.Transition(StateError) {
		return
	}
	l.mu.Lock()
	fired := l.errorFired
	l.errorFired = true
	cb := l.cb.OnError
	l.mu.Unlock()
	if !fired && cb != nil {
		cb(cerr)
	}
}

// Cancel returns the machine to Idle from any non-terminal state without
// firing the error callback. Signer rejection and caller cancellation are
// deliberate, informational exits rather than failures.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	from := l.state
	if from.Terminal() || from == StateIdle {
		l.mu.Unlock()
		return
	}
	l.state = StateIdle
	cb := l.cb.OnTransition
	l.mu.Unlock()

	l.logger.Info("submission cancelled", zap.String("from", from.String()))
	if cb != nil {
		cb(from, StateIdle)
	}
}

// Reset moves a terminal machine back to Idle for reuse.
func (l *Lifecycle) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Terminal() {
		return false
	}
	l.state = StateIdle
	l.errorFired = false
	l.successFired = false
	return true
}

func legal(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
