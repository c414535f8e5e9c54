package core

import "fmt"

// disasm.go is a minimal text disassembler over DecodeReadOnly, for test harnesses and debugging
// output. It is not a general-purpose disassembler UI: there is no symbol resolution, no operand
// annotation beyond the raw decoded fields, and no pretty-printing of addresses as labels.

var opMnemonic = map[opcode]string{
	opMOV: "MOV", opADD: "ADD", opSUB: "SUB", opMUL: "MUL", opDIV: "DIV",
	opOR: "OR", opAND: "AND", opNOT: "NOT", opXOR: "XOR",
	opPUSH: "PUSH", opPOP: "POP", opCALL: "CALL", opCMP: "CMP", opCMOV: "CMOV",
	opRET: "RET", opRETI: "RETI", opSYSRET: "SYSRET", opSYSCALL: "SYSCALL",
	opHLT: "HLT", opCOANDSW: "COANDSW",
}

var condMnemonic = map[condition]string{
	condNE: "NE", condGT: "GT", condLT: "LT", condEQ: "EQ", condGE: "GE", condLE: "LE",
}

// Disassemble renders the instruction at virtual address pc as a single line of text, using
// DecodeReadOnly so it never raises an interrupt or otherwise perturbs machine state. An undecodable
// instruction renders as "(bad)".
func Disassemble(m *Machine, pc Word) string {
	inst, ok := m.DecodeReadOnly(pc)
	if !ok {
		return "(bad)"
	}

	mnemonic := opMnemonic[inst.Op]

	switch inst.Shape {
	case shapeRR:
		return fmt.Sprintf("%s %s, %s", mnemonic, inst.Reg1, inst.Reg2)
	case shapeRM:
		return fmt.Sprintf("%s %s, [%#x]", mnemonic, inst.Reg1, inst.Addr)
	case shapeRI:
		return fmt.Sprintf("%s %s, #%#x", mnemonic, inst.Reg1, inst.Imm)
	case shapeOA:
		switch inst.Mode {
		case modeRegister:
			return fmt.Sprintf("%s %s", mnemonic, inst.Reg1)
		case modeAddress:
			return fmt.Sprintf("%s [%#x]", mnemonic, inst.Addr)
		case modeImmediate:
			return fmt.Sprintf("%s #%#x", mnemonic, inst.Imm)
		default:
			return "(bad)"
		}
	case shapeNO:
		return mnemonic
	case shapeCM:
		return fmt.Sprintf("%s.%s %s, %s", mnemonic, condMnemonic[inst.Cond], inst.Reg1, inst.Reg2)
	default:
		return "(bad)"
	}
}
