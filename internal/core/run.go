package core

// run.go drives the step loop across multiple instructions, honoring host-controlled pause and
// halt flags the way the reference machine's instruction cycle honors a run/cancel context.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrHalted is returned by Run when the guest executed HLT.
var ErrHalted = errors.New("core: halted")

// RunControl holds the pause and halt flags a host UI sets to control a running machine. The CPU
// thread polls both once per step; setting Halt causes the thread to exit before its next step,
// and setting Pause suspends stepping (without exiting) until cleared.
type RunControl struct {
	paused atomic.Bool
	halted atomic.Bool
}

// Pause suspends the run loop after its current step.
func (rc *RunControl) Pause() { rc.paused.Store(true) }

// Resume clears a prior Pause.
func (rc *RunControl) Resume() { rc.paused.Store(false) }

// Halt requests that the run loop exit before its next step.
func (rc *RunControl) Halt() { rc.halted.Store(true) }

// Run steps the machine until it halts (either by executing HLT or by RunControl.Halt being
// called), the context is cancelled, or Step returns a host-level error. A paused machine
// busy-polls its RunControl at a fixed cadence rather than blocking indefinitely, so a subsequent
// Halt or context cancellation is still observed promptly.
func (m *Machine) Run(ctx context.Context, rc *RunControl) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rc != nil && rc.halted.Load() {
			return ctx.Err()
		}

		if rc != nil && rc.paused.Load() {
			time.Sleep(time.Millisecond)
			continue
		}

		cont, err := m.Step()
		if err != nil {
			return err
		}

		if !cont {
			return ErrHalted
		}
	}
}
