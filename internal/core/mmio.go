package core

// mmio.go is the memory-mapped I/O dispatch fabric: an ordered registry of hooks, keyed by physical
// address range, consulted by the typed memory access primitives before falling back to RAM.

import "fmt"

// HandlerFunc is called when an access falls within a registered hook's range. offset is the
// access's distance from the hook's base address. buf holds the little-endian bytes being read into
// or written from. Handlers may read and mutate machine state (for example, to queue a keyboard
// byte) but must not recursively perform typed memory access on an overlapping range while holding
// the RAM lock already held by the caller.
type HandlerFunc func(m *Machine, offset uint64, buf []byte) bool

// Hook describes a memory-mapped device register range.
type Hook struct {
	Base  Word
	Size  Word
	Read  HandlerFunc
	Write HandlerFunc
}

func (h *Hook) contains(addr Word, length int) bool {
	return addr >= h.Base && uint64(addr)+uint64(length) <= uint64(h.Base)+uint64(h.Size)
}

func (h *Hook) String() string {
	return fmt.Sprintf("Hook{base:%s size:%s}", h.Base, h.Size)
}

// Fabric is the ordered registry of MMIO hooks. Registration order matters: Register prepends, so
// later registrations take precedence over earlier ones when ranges overlap, and lookup always
// returns the first hook (in registration order, most-recent-first) whose range fully contains the
// access.
type Fabric struct {
	hooks []*Hook
}

// Register adds a hook to the front of the fabric's search order.
func (f *Fabric) Register(h *Hook) {
	f.hooks = append([]*Hook{h}, f.hooks...)
}

// Unregister removes a hook by identity. It reports whether the hook was found.
func (f *Fabric) Unregister(h *Hook) bool {
	for i, cur := range f.hooks {
		if cur == h {
			f.hooks = append(f.hooks[:i], f.hooks[i+1:]...)
			return true
		}
	}

	return false
}

// handleRead searches for a hook covering [paddr, paddr+len(buf)) and invokes its Read handler. It
// reports whether a hook handled the access; false means the caller should fall back to RAM.
func (f *Fabric) handleRead(m *Machine, paddr Word, buf []byte) bool {
	for _, h := range f.hooks {
		if h.contains(paddr, len(buf)) {
			return h.Read(m, uint64(paddr-h.Base), buf)
		}
	}

	return false
}

// handleWrite searches for a hook covering [paddr, paddr+len(buf)) and invokes its Write handler. It
// reports whether a hook handled the access; false means the caller should fall back to RAM.
func (f *Fabric) handleWrite(m *Machine, paddr Word, buf []byte) bool {
	for _, h := range f.hooks {
		if h.contains(paddr, len(buf)) {
			return h.Write(m, uint64(paddr-h.Base), buf)
		}
	}

	return false
}
