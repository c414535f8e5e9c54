// Package snapshot lets a UI thread observe machine registers without reading core state directly.
// The CPU thread periodically copies its register file into a shared snapshot under a dedicated
// mutex and raises a ready flag; the UI thread polls the flag and, once set, copies the snapshot
// out and clears it. This mirrors the reference machine's rule that no UI thread reads core
// registers directly, generalized from its single display/keyboard registers to the full register
// file.
package snapshot

import (
	"sync"

	"github.com/cdaltas/x64em/internal/core"
)

// Snapshot holds the most recently published register file.
type Snapshot struct {
	mu    sync.Mutex
	regs  core.Registers
	ready bool
}

// New creates an empty, not-ready snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

// Publish copies m's registers into the snapshot and sets the ready flag. Intended to be called by
// the CPU thread periodically (for example, every N steps), not on every single step, so observation
// doesn't serialize with execution.
func (s *Snapshot) Publish(m *core.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regs = m.Reg
	s.ready = true
}

// Poller returns a Machine poller (see core.WithPoller) that calls Publish every interval steps.
// Publishing on every single step would serialize observation with execution, so the counter skips
// all but every interval-th call. interval <= 1 publishes on every step.
func (s *Snapshot) Poller(interval int) func(*core.Machine) {
	if interval < 1 {
		interval = 1
	}

	count := 0

	return func(m *core.Machine) {
		count++

		if count < interval {
			return
		}

		count = 0
		s.Publish(m)
	}
}

// Take reports whether a snapshot is ready and, if so, returns a copy of it and clears the flag.
func (s *Snapshot) Take() (core.Registers, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return core.Registers{}, false
	}

	s.ready = false

	return s.regs, true
}
