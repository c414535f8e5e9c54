package core

// paging.go implements the four-level page translation unit described in the architecture manual.
//
// A page table page holds 1024 entries, packed 64 bits each:
//
//	present:1  usermode:1  write:1  execute:1  reserved:4  next_page:56
//
// For a non-leaf entry, next_page is the physical byte offset of the next-level table; for a leaf
// entry it is the physical byte offset of the mapped page.
//
// Virtual address bit layout (see the architecture manual for the index arithmetic this is derived
// from):
//
//	l1 = v >> 51        l2 = (v >> 38)      l3 = (v >> 25)      l4 = (v >> 12)      offset = v & 0xFFF
//
// Each level's index is masked to the low 10 bits (entriesPerTable-1) before use: the manual defines
// the raw index arithmetic with a 13-bit mask at every level, but every page-table page holds only
// 1024 (2^10) entries. Bits above the 10-bit window are reserved/sign bits that this core ignores,
// consistent with the manual's own note that bits above 51 are "effectively sign/reserved". See
// DESIGN.md for the full discussion of this inherited ambiguity.
const (
	entriesPerTable = 1024
	tableIndexMask  = entriesPerTable - 1
	pageOffsetBits  = 12
	pageOffsetMask  = (1 << pageOffsetBits) - 1
)

// pageTableEntry is a single packed 64-bit entry in a page-table page.
type pageTableEntry Word

const (
	pteBitPresent  = 0
	pteBitUser     = 1
	pteBitWrite    = 2
	pteBitExecute  = 3
	pteNextShift   = 8
	pteNextBits    = 56
	pteNextMask    = (Word(1)<<pteNextBits - 1) << pteNextShift
)

func (e pageTableEntry) present() bool { return Word(e)&(1<<pteBitPresent) != 0 }
func (e pageTableEntry) user() bool    { return Word(e)&(1<<pteBitUser) != 0 }
func (e pageTableEntry) write() bool   { return Word(e)&(1<<pteBitWrite) != 0 }
func (e pageTableEntry) execute() bool { return Word(e)&(1<<pteBitExecute) != 0 }
func (e pageTableEntry) nextPage() Word {
	return (Word(e) & pteNextMask) >> pteNextShift
}

// pageIndices extracts the four table indices and page offset from a virtual address.
func pageIndices(v Word) (l1, l2, l3, l4 Word, offset Word) {
	l1 = (v >> 51) & tableIndexMask
	l2 = (v >> 38) & tableIndexMask
	l3 = (v >> 25) & tableIndexMask
	l4 = (v >> 12) & tableIndexMask
	offset = v & pageOffsetMask

	return
}

// readPTE loads the entry at the given index within the page-table page rooted at tablePhys.
// Assumes the caller holds the RAM lock appropriate to the in-flight access.
func (m *Machine) readPTE(tablePhys, index Word) pageTableEntry {
	return pageTableEntry(m.ram.readPhys(tablePhys+index*8, 64))
}

// translate walks the page table for a supervisor (non-faulting) access. If PPTR is zero, paging is
// bypassed and v is returned unchanged (identity mapping). Otherwise the walk stops at the first
// non-present entry and returns (0, false); no interrupt is raised here, matching the architecture
// manual's division of labor between the translator and its caller.
//
// Assumes the caller holds the RAM lock (read or write) for the duration of the access.
func (m *Machine) translate(v Word) (Word, bool) {
	pptr := m.Reg[PPTR]
	if pptr == 0 {
		return v, true
	}

	vpn, offset := pageOf(v)

	if m.tlb != nil {
		if e, ok := m.tlb.lookup(vpn); ok {
			return e.phys + offset, true
		}
	}

	l1, l2, l3, l4, _ := pageIndices(v)

	table := pptr
	for _, idx := range [...]Word{l1, l2, l3} {
		entry := m.readPTE(table, idx)
		if !entry.present() {
			return 0, false
		}

		table = entry.nextPage()
	}

	leaf := m.readPTE(table, l4)
	if !leaf.present() {
		return 0, false
	}

	phys := leaf.nextPage()

	if m.tlb != nil {
		m.tlb.insert(vpn, phys, leaf.user(), leaf.write())
	}

	return phys + offset, true
}

// translateUser walks the page table for a user access, enforcing the present/write/user bits at
// every level. On any violation it raises PAGE_FAULT on the interrupt controller and returns
// (0, false). The write permission bit is only checked on the leaf entry; the present and usermode
// bits are checked at every level, and the fault is attributed to the first failing entry on the
// walk.
//
// Assumes the caller holds the RAM lock (read or write) for the duration of the access.
func (m *Machine) translateUser(v Word, write bool) (Word, bool) {
	pptr := m.Reg[PPTR]
	if pptr == 0 {
		return v, true
	}

	supervisor := m.Reg[PPR] == PrivilegeSupervisor

	vpn, offset := pageOf(v)

	if m.tlb != nil {
		if e, ok := m.tlb.lookup(vpn); ok {
			if !supervisor && !e.user {
				m.irc.Raise(m, VectorPageFault)
				return 0, false
			}

			if write && !e.write {
				m.irc.Raise(m, VectorPageFault)
				return 0, false
			}

			return e.phys + offset, true
		}
	}

	checkLevel := func(entry pageTableEntry) bool {
		if !entry.present() || (!supervisor && !entry.user()) {
			m.irc.Raise(m, VectorPageFault)
			return false
		}

		return true
	}

	l1, l2, l3, l4, _ := pageIndices(v)

	table := m.Reg[PPTR]
	for _, idx := range [...]Word{l1, l2, l3} {
		entry := m.readPTE(table, idx)
		if !checkLevel(entry) {
			return 0, false
		}

		table = entry.nextPage()
	}

	leaf := m.readPTE(table, l4)
	if !checkLevel(leaf) {
		return 0, false
	}

	if write && !leaf.write() {
		m.irc.Raise(m, VectorPageFault)
		return 0, false
	}

	phys := leaf.nextPage()

	if m.tlb != nil {
		m.tlb.insert(vpn, phys, leaf.user(), leaf.write())
	}

	return phys + offset, true
}
