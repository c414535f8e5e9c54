package devices

import (
	"encoding/binary"
	"sync"

	"github.com/cdaltas/x64em/internal/core"
)

// GPUControlBase is the physical base address of the GPU control block.
const GPUControlBase core.Word = 0x3FFE0000

// Register offsets within the GPU control block.
const (
	gpuRegW       = 0x00
	gpuRegH       = 0x08
	gpuRegControl = 0x10
	gpuFramebufferOffset = 0x20
)

// CONTROL register bits.
const (
	ControlEnable         = 0x1
	ControlHardwareCursor = 0x2

	controlModeShift = 2
	controlModeMask  = 0x3 << controlModeShift
)

// CONTROL register MODE field values.
const (
	ModeText          = 0
	ModeTextNoCursor  = 1
	ModeGraphics      = 2
	ModeGraphicsCursor = 3
)

// GPUControl exposes the W, H, and CONTROL registers, and mirrors the shared framebuffer at offset
// 0x20, for a guest that addresses video state through a single register block rather than the bare
// framebuffer window.
type GPUControl struct {
	mu      sync.Mutex
	control uint64

	fb *Framebuffer
}

// NewGPUControl creates a control block driving fb.
func NewGPUControl(fb *Framebuffer) *GPUControl {
	return &GPUControl{fb: fb}
}

// Hook builds the MMIO hook for the control block, to be registered at GPUControlBase. Its size
// covers the registers plus the framebuffer's size at the time Hook is called; a later resize does
// not change the size of an already-built hook.
func (g *GPUControl) Hook() *core.Hook {
	return &core.Hook{
		Base: GPUControlBase,
		Size: core.Word(gpuFramebufferOffset) + core.Word(g.fb.size()),
		Read: g.read,
		Write: g.write,
	}
}

func (g *GPUControl) read(_ *core.Machine, offset uint64, buf []byte) bool {
	if offset >= gpuFramebufferOffset {
		g.fb.read(offset-gpuFramebufferOffset, buf)
		return true
	}

	w, h := g.fb.dims()

	var val uint64

	switch offset {
	case gpuRegW:
		val = w
	case gpuRegH:
		val = h
	case gpuRegControl:
		g.mu.Lock()
		val = g.control
		g.mu.Unlock()
	}

	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], val)
	copy(buf, word[:])

	return true
}

func (g *GPUControl) write(_ *core.Machine, offset uint64, buf []byte) bool {
	if offset >= gpuFramebufferOffset {
		g.fb.write(offset-gpuFramebufferOffset, buf)
		return true
	}

	var word [8]byte
	copy(word[:], buf)
	val := binary.LittleEndian.Uint64(word[:])

	switch offset {
	case gpuRegW:
		_, h := g.fb.dims()
		g.fb.Resize(val, h)
	case gpuRegH:
		w, _ := g.fb.dims()
		g.fb.Resize(w, val)
	case gpuRegControl:
		g.mu.Lock()
		g.control = val
		g.mu.Unlock()
	}

	return true
}

// Mode returns the MODE field of the CONTROL register.
func (g *GPUControl) Mode() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return (g.control & controlModeMask) >> controlModeShift
}

// Enabled reports whether the ENABLE bit of CONTROL is set.
func (g *GPUControl) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.control&ControlEnable != 0
}
