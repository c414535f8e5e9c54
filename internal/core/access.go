package core

// access.go implements the typed memory access primitives: for each width in {8,16,32,64} there is
// a supervisor (non-faulting) and a user (fault-raising) read and write. Each access takes the RAM
// reader lock (reads) or writer lock (writes) over the whole translate-then-store pipeline, so that
// the translation a write acts on cannot be invalidated by another thread between the page walk and
// the store. This closes the race the architecture manual calls out in its source material, where
// the lock was dropped and re-acquired between translation and store.

// wordToBytes renders the low width/8 bytes of val as little-endian.
func wordToBytes(val Word, width int) []byte {
	n := width / 8
	buf := make([]byte, n)

	for i := 0; i < n; i++ {
		buf[i] = byte(val >> (8 * i))
	}

	return buf
}

// bytesToWord parses a little-endian buffer back into a Word.
func bytesToWord(buf []byte) Word {
	var val Word

	for i, b := range buf {
		val |= Word(b) << (8 * i)
	}

	return val
}

// readSuper performs a supervisor (non-faulting) read of width bits at virtual address v.
func (m *Machine) readSuper(v Word, width int) Word {
	m.ram.mu.RLock()
	defer m.ram.mu.RUnlock()

	phys, ok := m.translate(v)
	if !ok {
		return 0
	}

	buf := make([]byte, width/8)
	if m.mmio.handleRead(m, phys, buf) {
		return bytesToWord(buf)
	}

	return m.ram.readPhys(phys, width)
}

// writeSuper performs a supervisor (non-faulting) write of width bits at virtual address v. The
// entire translate-then-store pipeline runs under the RAM writer lock.
func (m *Machine) writeSuper(v Word, width int, val Word) {
	m.ram.mu.Lock()
	defer m.ram.mu.Unlock()

	phys, ok := m.translate(v)
	if !ok {
		return
	}

	buf := wordToBytes(val, width)
	if m.mmio.handleWrite(m, phys, buf) {
		return
	}

	m.ram.writePhys(phys, width, val)
}

// readUser performs a user (fault-raising) read of width bits at virtual address v. On a
// translation fault it raises PAGE_FAULT on the interrupt controller and returns 0.
func (m *Machine) readUser(v Word, width int) Word {
	m.ram.mu.RLock()
	defer m.ram.mu.RUnlock()

	phys, ok := m.translateUser(v, false)
	if !ok {
		return 0
	}

	buf := make([]byte, width/8)
	if m.mmio.handleRead(m, phys, buf) {
		return bytesToWord(buf)
	}

	return m.ram.readPhys(phys, width)
}

// writeUser performs a user (fault-raising) write of width bits at virtual address v. On a
// translation or permission fault it raises PAGE_FAULT on the interrupt controller and returns
// false; the write never happens in that case.
func (m *Machine) writeUser(v Word, width int, val Word) bool {
	m.ram.mu.Lock()
	defer m.ram.mu.Unlock()

	phys, ok := m.translateUser(v, true)
	if !ok {
		return false
	}

	buf := wordToBytes(val, width)
	if m.mmio.handleWrite(m, phys, buf) {
		return true
	}

	m.ram.writePhys(phys, width, val)

	return true
}

// VRead8, VRead16, VRead32, VRead64 perform supervisor reads of the named width.
func (m *Machine) VRead8(v Word) Word  { return m.readSuper(v, 8) }
func (m *Machine) VRead16(v Word) Word { return m.readSuper(v, 16) }
func (m *Machine) VRead32(v Word) Word { return m.readSuper(v, 32) }
func (m *Machine) VRead64(v Word) Word { return m.readSuper(v, 64) }

// VWrite8, VWrite16, VWrite32, VWrite64 perform supervisor writes of the named width.
func (m *Machine) VWrite8(v, val Word)  { m.writeSuper(v, 8, val) }
func (m *Machine) VWrite16(v, val Word) { m.writeSuper(v, 16, val) }
func (m *Machine) VWrite32(v, val Word) { m.writeSuper(v, 32, val) }
func (m *Machine) VWrite64(v, val Word) { m.writeSuper(v, 64, val) }

// VReadUser8, VReadUser16, VReadUser32, VReadUser64 perform user (fault-raising) reads.
func (m *Machine) VReadUser8(v Word) Word  { return m.readUser(v, 8) }
func (m *Machine) VReadUser16(v Word) Word { return m.readUser(v, 16) }
func (m *Machine) VReadUser32(v Word) Word { return m.readUser(v, 32) }
func (m *Machine) VReadUser64(v Word) Word { return m.readUser(v, 64) }

// VWriteUser8, VWriteUser16, VWriteUser32, VWriteUser64 perform user (fault-raising) writes. They
// report whether the write succeeded.
func (m *Machine) VWriteUser8(v, val Word) bool  { return m.writeUser(v, 8, val) }
func (m *Machine) VWriteUser16(v, val Word) bool { return m.writeUser(v, 16, val) }
func (m *Machine) VWriteUser32(v, val Word) bool { return m.writeUser(v, 32, val) }
func (m *Machine) VWriteUser64(v, val Word) bool { return m.writeUser(v, 64, val) }

// readAuto and writeAuto dispatch to the user or supervisor access family depending on the current
// privilege register. The CPU step engine uses these for ordinary instruction fetch and operand
// access so that user-mode code is subject to page protection while supervisor code is not.
func (m *Machine) readAuto(v Word, width int) Word {
	if m.Reg[PPR] == PrivilegeUser {
		return m.readUser(v, width)
	}

	return m.readSuper(v, width)
}

// fetchAuto is readAuto with an ok result, so the step loop can tell a genuine zero value apart
// from a translation fault and skip decoding on the latter.
func (m *Machine) fetchAuto(v Word, width int) (Word, bool) {
	m.ram.mu.RLock()
	defer m.ram.mu.RUnlock()

	var phys Word
	var ok bool

	if m.Reg[PPR] == PrivilegeUser {
		phys, ok = m.translateUser(v, false)
	} else {
		phys, ok = m.translate(v)
	}

	if !ok {
		return 0, false
	}

	buf := make([]byte, width/8)
	if m.mmio.handleRead(m, phys, buf) {
		return bytesToWord(buf), true
	}

	return m.ram.readPhys(phys, width), true
}

func (m *Machine) writeAuto(v Word, width int, val Word) {
	if m.Reg[PPR] == PrivilegeUser {
		m.writeUser(v, width, val)
		return
	}

	m.writeSuper(v, width, val)
}
