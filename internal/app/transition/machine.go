// Package transition implements the simulated "loading" that runs before a
// view switch commits. It is a plain state machine over domain.ViewState:
//
//	idle --Begin--> pending(target, progress) --Advance...--> committed (idle again)
//
// Nothing here sleeps on its own; callers decide how steps are paced.
package transition

import (
	"fmt"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

const (
	// DefaultStep is the progress added by one Advance call.
	DefaultStep = 10

	Complete = 100
)

// Machine advances pending transitions by a fixed step.
type Machine struct {
	step int
}

// New returns a Machine advancing by step percent per call. Values outside
// 1..100 fall back to DefaultStep.
func New(step int) Machine {
	if step <= 0 || step > Complete {
		step = DefaultStep
	}
	return Machine{step: step}
}

// Step returns the progress added per Advance.
func (m Machine) Step() int {
	if m.step == 0 {
		return DefaultStep
	}
	return m.step
}

// Steps returns how many Advance calls a transition takes to commit.
func (m Machine) Steps() int {
	s := m.Step()
	return (Complete + s - 1) / s
}

// Begin records a pending switch to target. The current mode stays live until
// the transition commits.
func (m Machine) Begin(state domain.ViewState, target domain.ViewMode, label string) (domain.ViewState, error) {
	if !target.Valid() {
		return state, fmt.Errorf("begin transition to %q: %w", target, domain.ErrInvalidMode)
	}
	if !state.Idle() {
		return state, fmt.Errorf("begin transition to %q: %w", target, domain.ErrTransitionPending)
	}

	next := state.Clone()
	next.Pending = &domain.PendingTransition{
		Target: target,
		Label:  label,
	}
	return next, nil
}

// Advance moves a pending transition forward by one step. When progress
// reaches 100 the recorded target becomes the live mode, the pending state is
// cleared and committed is true. Advancing an idle state changes nothing.
func (m Machine) Advance(state domain.ViewState) (next domain.ViewState, committed bool) {
	if state.Idle() {
		return state, false
	}

	next = state.Clone()
	next.Pending.Progress += m.Step()
	if next.Pending.Progress < Complete {
		return next, false
	}

	next.Mode = next.Pending.Target
	next.Pending = nil
	return next, true
}

// Run advances state until it commits, calling wait before every step and
// onStep after it. An onStep error stops the run and is returned together
// with the state reached so far. It is the blocking form used when a request
// must not return half-way.
func (m Machine) Run(
	state domain.ViewState,
	wait func(),
	onStep func(next domain.ViewState, committed bool) error,
) (domain.ViewState, error) {
	for !state.Idle() {
		if wait != nil {
			wait()
		}
		next, committed := m.Advance(state)
		if onStep != nil {
			if err := onStep(next, committed); err != nil {
				return state, err
			}
		}
		state = next
	}
	return state, nil
}
