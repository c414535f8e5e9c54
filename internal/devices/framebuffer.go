package devices

import (
	"sync"

	"github.com/cdaltas/x64em/internal/core"
)

// FramebufferBase is the physical base address of the standalone framebuffer window.
const FramebufferBase core.Word = 0x90000000

// DefaultWidth and DefaultHeight are the framebuffer's dimensions absent a GPUControl resize.
const (
	DefaultWidth  = 640
	DefaultHeight = 480

	bytesPerPixel = 4
)

// Framebuffer is a flat RGBA pixel buffer, addressable both directly (FramebufferBase) and through
// the GPU control block's register window (GPUControlBase + 0x20). A Listen callback, grounded on
// the reference display device's notify-on-write pattern, lets a host front-end observe writes
// without holding the device lock.
type Framebuffer struct {
	mu     sync.RWMutex
	width  uint64
	height uint64
	pixels []byte

	listeners []func()
}

// NewFramebuffer allocates a framebuffer of the given dimensions.
func NewFramebuffer(width, height uint64) *Framebuffer {
	return &Framebuffer{
		width:  width,
		height: height,
		pixels: make([]byte, width*height*bytesPerPixel),
	}
}

// Listen registers a callback invoked after any write to the pixel buffer. Listener functions must
// not block or call back into the framebuffer.
func (fb *Framebuffer) Listen(fn func()) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.listeners = append(fb.listeners, fn)
}

// Resize reallocates the pixel buffer for new dimensions, discarding its contents. It is used by
// GPUControl when the guest writes the W or H register.
func (fb *Framebuffer) Resize(width, height uint64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.width, fb.height = width, height
	fb.pixels = make([]byte, width*height*bytesPerPixel)
}

func (fb *Framebuffer) dims() (uint64, uint64) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	return fb.width, fb.height
}

func (fb *Framebuffer) size() uint64 {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	return uint64(len(fb.pixels))
}

func (fb *Framebuffer) read(offset uint64, buf []byte) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	for i := range buf {
		if offset+uint64(i) < uint64(len(fb.pixels)) {
			buf[i] = fb.pixels[offset+uint64(i)]
		} else {
			buf[i] = 0
		}
	}
}

func (fb *Framebuffer) write(offset uint64, buf []byte) {
	fb.mu.Lock()

	for i, b := range buf {
		if offset+uint64(i) < uint64(len(fb.pixels)) {
			fb.pixels[offset+uint64(i)] = b
		}
	}

	listeners := fb.listeners

	fb.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Hook builds the MMIO hook for the standalone framebuffer window, to be registered at
// FramebufferBase. Its size reflects the framebuffer's dimensions at the time Hook is called; a
// later resize through GPUControl changes the pixel buffer but does not grow an already-registered
// hook, so a guest that resizes the display should address it through GPUControl's mirrored window
// rather than this standalone one.
func (fb *Framebuffer) Hook() *core.Hook {
	return &core.Hook{
		Base: FramebufferBase,
		Size: core.Word(fb.size()),
		Read: func(_ *core.Machine, offset uint64, buf []byte) bool {
			fb.read(offset, buf)
			return true
		},
		Write: func(_ *core.Machine, offset uint64, buf []byte) bool {
			fb.write(offset, buf)
			return true
		},
	}
}
