// Package loader places a raw binary image into a machine's physical memory and arms its registers
// to begin execution at the image's load offset, grounded on the reference machine's object loader
// but simplified to the flat-blob format this architecture's external interfaces call for: there is
// no object-code header or vector-table convenience here, since the source format is just bytes.
package loader

import (
	"fmt"

	"github.com/cdaltas/x64em/internal/core"
	"github.com/cdaltas/x64em/internal/log"
)

// Loader loads a flat binary image into a machine.
type Loader struct {
	m   *core.Machine
	log *log.Logger
}

// New creates a loader for m.
func New(m *core.Machine) *Loader {
	return &Loader{m: m, log: log.DefaultLogger()}
}

// Load writes image into physical memory at offset and arms the machine to begin execution there:
// PC is set to offset, and PPTR, IMR, and ITR are all cleared, so the guest starts with paging off,
// no vectors masked, and no handler table configured until it sets one up itself.
func (l *Loader) Load(image []byte, offset core.Word) error {
	if len(image) == 0 {
		return fmt.Errorf("loader: empty image")
	}

	if err := l.m.RAM().WriteAt(offset, image); err != nil {
		return fmt.Errorf("loader: %w", err)
	}

	l.log.Debug("loaded image", "offset", offset, "bytes", len(image))

	l.m.Reg[core.PC] = offset
	l.m.Reg[core.PPTR] = 0
	l.m.Reg[core.IMR] = 0
	l.m.Reg[core.ITR] = 0
	l.m.InvalidateTLB()

	return nil
}
