package core

// tlb.go implements a small direct-mapped translation cache for the page-table walk in paging.go.
// It is gated behind the WithTLB Machine option and is off by default: the walk in translate and
// translateUser is the source of truth, and every test outside tlb_test.go exercises that path
// directly. A machine
// built WithTLB(n) additionally caches each walk's result, keyed by virtual page number, and must
// invalidate it whenever PPTR changes meaning (a fresh page table, or paging toggled on/off) by
// calling Machine.InvalidateTLB.

// tlbEntry caches one page-table walk: the mapped physical page base, plus the permission bits the
// user-mode path needs to re-check without re-walking the table.
type tlbEntry struct {
	valid bool
	vpn   Word
	phys  Word
	user  bool
	write bool
}

// tlb is a direct-mapped cache of recent virtual-to-physical page translations.
type tlb struct {
	entries []tlbEntry
}

func newTLB(size int) *tlb {
	return &tlb{entries: make([]tlbEntry, size)}
}

func (t *tlb) slot(vpn Word) *tlbEntry {
	return &t.entries[uint64(vpn)%uint64(len(t.entries))]
}

func (t *tlb) lookup(vpn Word) (tlbEntry, bool) {
	e := t.slot(vpn)
	if e.valid && e.vpn == vpn {
		return *e, true
	}

	return tlbEntry{}, false
}

func (t *tlb) insert(vpn, phys Word, user, write bool) {
	*t.slot(vpn) = tlbEntry{valid: true, vpn: vpn, phys: phys, user: user, write: write}
}

// invalidate drops the cached entry for vpn, if the slot vpn hashes to holds it. An entry for a
// different vpn that aliases the same slot is left in place; lookup never serves it for vpn.
func (t *tlb) invalidate(vpn Word) {
	e := t.slot(vpn)
	if e.valid && e.vpn == vpn {
		*e = tlbEntry{}
	}
}

func (t *tlb) invalidateAll() {
	for i := range t.entries {
		t.entries[i] = tlbEntry{}
	}
}

// WithTLB equips the machine with an n-entry direct-mapped translation cache. Absent this option,
// every virtual access walks the full four-level page table described in paging.go.
func WithTLB(size int) Option {
	return func(m *Machine) {
		m.tlb = newTLB(size)
	}
}

// InvalidateTLB drops the machine's translation cache, if one is configured. Callers that change
// PPTR outside of Load — a context switch, or a guest remapping its own page table — must call this
// afterward, or stale translations from the previous address space may be served.
func (m *Machine) InvalidateTLB() {
	if m.tlb != nil {
		m.tlb.invalidateAll()
	}
}

func pageOf(v Word) (vpn, offset Word) {
	return v >> pageOffsetBits, v & pageOffsetMask
}
