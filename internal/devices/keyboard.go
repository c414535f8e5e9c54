// Package devices provides sample MMIO devices — a keyboard, a framebuffer, and a GPU control
// block — exercised by the machine's MMIO fabric the same way a real front-end would drive them.
// They are grounded on the reference machine's device split between a device (owning state and a
// mutex) and a driver (translating register offsets to device operations), generalized from a
// 16-bit status/data register pair to this architecture's wider address space.
package devices

import (
	"sync"

	"github.com/cdaltas/x64em/internal/core"
)

// KeyboardBase is the physical base address of the keyboard device.
const KeyboardBase core.Word = 0x90010000

// KeyboardSize is the size, in bytes, of the keyboard's register window.
const KeyboardSize core.Word = 16

// KeyboardVector is the interrupt vector the keyboard raises when new input arrives.
const KeyboardVector uint16 = 11

const keyboardQueueCapacity = 256

// Keyboard is a bounded ring-buffer input device. A host UI thread pushes scancodes onto it under
// its own lock; the machine polls it once per step and raises an interrupt when new bytes have
// arrived since the last poll.
type Keyboard struct {
	mu sync.Mutex

	ring  [keyboardQueueCapacity]byte
	head  int
	tail  int
	count int

	// pending is set by Push and cleared by Poll; it tracks whether new data has arrived since the
	// machine last checked, independent of whether the ring itself is empty.
	pending bool
}

// NewKeyboard creates an empty keyboard device.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Push enqueues a scancode for the guest to read. It reports whether the queue had room; a full
// queue silently drops the byte, matching a real bounded buffer under backpressure.
func (k *Keyboard) Push(b byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.count == len(k.ring) {
		return false
	}

	k.ring[k.tail] = b
	k.tail = (k.tail + 1) % len(k.ring)
	k.count++
	k.pending = true

	return true
}

// Poll is called once per machine step. If data has arrived since the last call, it clears the
// pending flag and raises the keyboard interrupt on m.
func (k *Keyboard) Poll(m *core.Machine) {
	k.mu.Lock()
	wasPending := k.pending
	k.pending = false
	k.mu.Unlock()

	if wasPending {
		m.IRC().Raise(m, KeyboardVector)
	}
}

func (k *Keyboard) available() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.count > 0
}

func (k *Keyboard) pop() byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.count == 0 {
		return 0
	}

	b := k.ring[k.head]
	k.head = (k.head + 1) % len(k.ring)
	k.count--

	return b
}

// Hook builds the MMIO hook for this device, to be registered at KeyboardBase.
func (k *Keyboard) Hook() *core.Hook {
	return &core.Hook{
		Base: KeyboardBase,
		Size: KeyboardSize,
		Read: func(_ *core.Machine, offset uint64, buf []byte) bool {
			switch offset {
			case 0:
				if k.available() {
					buf[0] = 1
				} else {
					buf[0] = 0
				}

				for i := 1; i < len(buf); i++ {
					buf[i] = 0
				}
			case 8:
				buf[0] = k.pop()

				for i := 1; i < len(buf); i++ {
					buf[i] = 0
				}
			default:
				for i := range buf {
					buf[i] = 0
				}
			}

			return true
		},
		Write: func(_ *core.Machine, _ uint64, _ []byte) bool {
			// The keyboard device exposes no writable registers; writes are accepted and ignored
			// rather than falling through to RAM, since the range is still a reserved MMIO window.
			return true
		},
	}
}
