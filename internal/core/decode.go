package core

// decode.go parses the variable-length instruction encoding: a one-byte header (3-bit operand
// shape, 5-bit opcode) followed by zero or more operand bytes depending on the shape.
//
// Encoded shapes:
//
//	RR: +reg1(1B) +reg2(1B)
//	RM: +reg(1B) +addr(8B LE)
//	RI: +reg(1B) +imm(8B LE)
//	OA: +mode(1B) +{reg(1B) | addr(8B) | imm(8B)}
//	NO: (no further bytes)
//	CM: +byte(cond in high nibble) +reg1(1B) +reg2(1B)

// shape is the operand encoding of an instruction.
type shape uint8

const (
	shapeRR shape = iota
	shapeRM
	shapeRI
	shapeOA
	shapeNO
	shapeCM
)

// opcode identifies the operation an instruction performs.
type opcode uint8

const (
	opMOV opcode = iota
	opADD
	opSUB
	opMUL
	opDIV
	opOR
	opAND
	opNOT
	opXOR
	opPUSH
	opPOP
	opCALL
	opCMP
	opCMOV
	opRET
	opRETI
	opSYSRET
	opSYSCALL
	opHLT
	opCOANDSW
)

// operandMode selects the operand form of an OA-shaped instruction.
type operandMode uint8

const (
	modeRegister operandMode = 0
	modeAddress  operandMode = 1
	modeImmediate operandMode = 2
)

// condition is a CMOV/branch condition code, decoded from the non-contiguous nibble encoding
// {NE=0, GT=1, LT=2, EQ=4, LE=6, GE=5}; 3 and 7 are not assigned.
type condition uint8

const (
	condNE condition = 0
	condGT condition = 1
	condLT condition = 2
	condEQ condition = 4
	condGE condition = 5
	condLE condition = 6
)

func validCondition(c condition) bool {
	switch c {
	case condNE, condGT, condLT, condEQ, condGE, condLE:
		return true
	default:
		return false
	}
}

// Instruction is the decoded, tagged form of one instruction. Only the fields relevant to Shape
// are meaningful; the executor pattern-matches on Op and Shape together.
type Instruction struct {
	Op    opcode
	Shape shape

	Reg1 Reg
	Reg2 Reg
	Addr Word
	Imm  Word
	Mode operandMode
	Cond condition

	// NextPC is the address of the byte following the last operand byte: the PC value the
	// non-control-flow instructions advance to.
	NextPC Word
}

// legalShape reports whether op may be encoded with the given shape, per the decoder's
// (type, opcode) legality table.
func legalShape(s shape, op opcode) bool {
	switch s {
	case shapeNO:
		switch op {
		case opRET, opRETI, opSYSRET, opSYSCALL, opHLT:
			return true
		}
	case shapeOA:
		switch op {
		case opPUSH, opPOP, opCALL:
			return true
		}
	case shapeRR, shapeRI:
		switch op {
		case opMOV, opADD, opSUB, opMUL, opDIV, opOR, opAND, opNOT, opXOR, opCMP:
			return true
		}
	case shapeRM:
		switch op {
		case opMOV, opCOANDSW:
			return true
		}
	case shapeCM:
		return op == opCMOV
	}

	return false
}

func validRegIndex(idx uint8) bool {
	return Reg(idx) < NumRegs
}

// legalOAMode reports whether an OA-shaped opcode may be encoded with the given operand mode. PUSH
// takes a register or immediate value to push, but never an address to dereference; POP only ever
// writes a destination register, so only the register mode makes sense for it; CALL's target may be
// named any of the three ways.
func legalOAMode(op opcode, mode operandMode) bool {
	switch op {
	case opPUSH:
		return mode == modeRegister || mode == modeImmediate
	case opPOP:
		return mode == modeRegister
	case opCALL:
		return mode == modeRegister || mode == modeAddress || mode == modeImmediate
	default:
		return false
	}
}

// decode parses the instruction at virtual address pc, fetching through the current privilege's
// access family (so a user-mode fetch of an unmapped page raises PAGE_FAULT, not a decode error).
// Any encoding violation raises INVALID_OPCODE. It reports whether decoding succeeded; on failure
// the appropriate vector has already been raised.
func (m *Machine) decode(pc Word) (Instruction, bool) {
	raise := func(vec uint16) (Instruction, bool) {
		m.irc.Raise(m, vec)
		return Instruction{}, false
	}

	return m.decodeImpl(pc, m.fetchAuto, raise)
}

// DecodeReadOnly parses the instruction at virtual address pc without raising any interrupt,
// fetching through the supervisor (non-faulting, identity-if-unpaged) path. It is intended for
// disassembly and debugging tools that inspect guest memory without perturbing machine state; any
// error, including an unmapped fetch or an illegal encoding, yields the zero Instruction and false,
// but never touches the interrupt controller.
func (m *Machine) DecodeReadOnly(pc Word) (Instruction, bool) {
	fetch := func(v Word, width int) (Word, bool) {
		m.ram.mu.RLock()
		_, ok := m.translate(v)
		m.ram.mu.RUnlock()

		if !ok {
			return 0, false
		}

		return m.readSuper(v, width), true
	}

	raise := func(uint16) (Instruction, bool) {
		return Instruction{}, false
	}

	return m.decodeImpl(pc, fetch, raise)
}

func (m *Machine) decodeImpl(
	pc Word,
	fetch func(Word, int) (Word, bool),
	raise func(uint16) (Instruction, bool),
) (Instruction, bool) {

	header, ok := fetch(pc, 8)
	if !ok {
		return Instruction{}, false
	}

	s := shape(header >> 5)
	op := opcode(header & 0x1F)

	if !legalShape(s, op) {
		return raise(VectorInvalidOpcode)
	}

	cursor := pc + 1
	inst := Instruction{Op: op, Shape: s}

	readReg := func() (Reg, bool) {
		v, ok := fetch(cursor, 8)
		if !ok {
			return 0, false
		}

		cursor++

		if !validRegIndex(uint8(v)) {
			return 0, false
		}

		return Reg(v), true
	}

	readWord := func() (Word, bool) {
		v, ok := fetch(cursor, 64)
		if !ok {
			return 0, false
		}

		cursor += 8

		return v, true
	}

	switch s {
	case shapeRR:
		r1, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		r2, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		inst.Reg1, inst.Reg2 = r1, r2

	case shapeRM:
		r, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		addr, ok := readWord()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		inst.Reg1, inst.Addr = r, addr

	case shapeRI:
		r, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		imm, ok := readWord()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		inst.Reg1, inst.Imm = r, imm

	case shapeOA:
		modeByte, ok := fetch(cursor, 8)
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		cursor++

		mode := operandMode(modeByte)
		inst.Mode = mode

		if !legalOAMode(op, mode) {
			return raise(VectorInvalidOpcode)
		}

		switch mode {
		case modeRegister:
			r, ok := readReg()
			if !ok {
				return raise(VectorInvalidOpcode)
			}

			inst.Reg1 = r

		case modeAddress:
			addr, ok := readWord()
			if !ok {
				return raise(VectorInvalidOpcode)
			}

			inst.Addr = addr

		case modeImmediate:
			imm, ok := readWord()
			if !ok {
				return raise(VectorInvalidOpcode)
			}

			inst.Imm = imm

		default:
			return raise(VectorInvalidOpcode)
		}

	case shapeNO:
		// No further bytes.

	case shapeCM:
		condByte, ok := fetch(cursor, 8)
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		cursor++

		cond := condition(condByte >> 4)
		if !validCondition(cond) {
			return raise(VectorInvalidOpcode)
		}

		inst.Cond = cond

		r1, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		r2, ok := readReg()
		if !ok {
			return raise(VectorInvalidOpcode)
		}

		inst.Reg1, inst.Reg2 = r1, r2
	}

	inst.NextPC = cursor

	return inst, true
}
