package core

import "testing"

// newPagingTestMachine returns a Machine with enough physical RAM to hold the page tables and
// mapped frames the paging tests construct by hand at fixed physical addresses.
func newPagingTestMachine(t *testing.T) *Machine {
	t.Helper()
	t.Parallel()

	return New(WithRAM(1 << 20))
}

const (
	ptePresent = Word(1) << 0
	pteUser    = Word(1) << 1
	pteWrite   = Word(1) << 2
)

func makePTE(flags Word, next Word) Word {
	return flags | (next << pteNextShift)
}

// buildMapping wires a four-level page table, identity-written through supervisor access (paging
// is bypassed while PPTR is still zero), mapping virtual address v to physical frame, and returns
// the root table's physical address to install into PPTR.
func buildMapping(m *Machine, v Word, frame Word, leafWritable bool) Word {
	const (
		l1Table = Word(0x10000)
		l2Table = Word(0x20000)
		l3Table = Word(0x30000)
		l4Table = Word(0x40000)
	)

	l1, l2, l3, l4, _ := pageIndices(v)

	leafFlags := ptePresent | pteUser
	if leafWritable {
		leafFlags |= pteWrite
	}

	m.VWrite64(l1Table+l1*8, makePTE(ptePresent|pteUser, l2Table))
	m.VWrite64(l2Table+l2*8, makePTE(ptePresent|pteUser, l3Table))
	m.VWrite64(l3Table+l3*8, makePTE(ptePresent|pteUser, l4Table))
	m.VWrite64(l4Table+l4*8, makePTE(leafFlags, frame))

	return l1Table
}
