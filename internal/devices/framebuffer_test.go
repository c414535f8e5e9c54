package devices

import (
	"testing"

	"github.com/cdaltas/x64em/internal/core"
)

func TestFramebufferHookReadWrite(t *testing.T) {
	fb := NewFramebuffer(2, 2)
	m := core.New(core.WithHook(fb.Hook()))

	m.VWrite64(FramebufferBase, 0x0102030405060708)

	got := m.VRead64(FramebufferBase)
	if got != 0x0102030405060708 {
		t.Errorf("read back = %#x, want 0x0102030405060708", got)
	}
}

func TestFramebufferReadPastBoundsReturnsZero(t *testing.T) {
	fb := NewFramebuffer(1, 1) // 4 bytes of pixel data.

	buf := make([]byte, 8)
	fb.read(0, buf)

	for i, b := range buf {
		if i < 4 {
			continue
		}

		if b != 0 {
			t.Errorf("byte %d past the pixel buffer = %d, want 0", i, b)
		}
	}
}

func TestFramebufferListenNotifiesOnWrite(t *testing.T) {
	fb := NewFramebuffer(1, 1)

	notified := false
	fb.Listen(func() { notified = true })

	fb.write(0, []byte{1, 2, 3, 4})

	if !notified {
		t.Error("Listen callback was not invoked after a write")
	}
}

func TestFramebufferResizeReallocates(t *testing.T) {
	fb := NewFramebuffer(2, 2)

	fb.Resize(4, 4)

	if got := fb.size(); got != 4*4*bytesPerPixel {
		t.Errorf("size() after Resize = %d, want %d", got, 4*4*bytesPerPixel)
	}
}
