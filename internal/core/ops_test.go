package core

import "testing"

func TestExecArithADDFlags(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[R0] = ^Word(0) // all ones: adding 1 carries out and yields zero.
	m.Reg[R1] = 1

	m.execArith(Instruction{Op: opADD, Shape: shapeRR, Reg1: R0, Reg2: R1})

	if m.Reg[R0] != 0 {
		t.Errorf("R0 after ADD = %s, want 0", m.Reg[R0])
	}

	if m.Reg[FR]&FlagCF == 0 {
		t.Error("FlagCF not set after carrying ADD")
	}

	if m.Reg[FR]&FlagZF == 0 {
		t.Error("FlagZF not set for a zero result")
	}
}

func TestExecArithSUBOverflow(t *testing.T) {
	m := newTestMachine(t)

	// MinInt64 - 1 overflows a signed 64-bit subtraction.
	m.Reg[R0] = Word(1) << 63
	m.Reg[R1] = 1

	m.execArith(Instruction{Op: opSUB, Shape: shapeRR, Reg1: R0, Reg2: R1})

	if m.Reg[FR]&FlagOF == 0 {
		t.Error("FlagOF not set for a signed subtraction overflow")
	}
}

func TestExecArithDIVByZeroRaisesAndLeavesDest(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[SP0] = 0x4000
	m.Reg[R0] = 42
	m.Reg[R1] = 0

	m.execArith(Instruction{Op: opDIV, Shape: shapeRR, Reg1: R0, Reg2: R1})

	if m.Reg[R0] != 42 {
		t.Errorf("R0 after DIV by zero = %s, want unchanged 42", m.Reg[R0])
	}

	if !m.irc.InException() {
		t.Error("DIV by zero did not raise an exception")
	}
}

func TestExecArithDIVClearsAllFlags(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[FR] = flagMask // all four flags set beforehand.
	m.Reg[R0] = 10
	m.Reg[R1] = 3

	m.execArith(Instruction{Op: opDIV, Shape: shapeRR, Reg1: R0, Reg2: R1})

	if m.Reg[R0] != 3 {
		t.Errorf("R0 after DIV = %s, want 3", m.Reg[R0])
	}

	if m.Reg[FR]&flagMask != 0 {
		t.Errorf("FR after DIV = %#x, want all flag bits clear", m.Reg[FR])
	}
}

func TestExecLogicNOTIsUnaryOverB(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[R1] = 0x0f0f0f0f0f0f0f0f

	m.execLogic(Instruction{Op: opNOT, Shape: shapeRR, Reg1: R0, Reg2: R1})

	if want := ^m.Reg[R1]; m.Reg[R0] != want {
		t.Errorf("R0 after NOT = %#x, want %#x", m.Reg[R0], want)
	}
}

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		name string
		c    condition
		fr   Word
		want bool
	}{
		{"NE true when ZF clear", condNE, 0, true},
		{"NE false when ZF set", condNE, FlagZF, false},
		{"EQ true when ZF set", condEQ, FlagZF, true},
		{"GT true when ZF clear and SF==OF", condGT, 0, true},
		{"GT false when ZF set", condGT, FlagZF, false},
		{"LT true when SF!=OF", condLT, FlagSF, true},
		{"LT false when SF==OF", condLT, 0, false},
		{"GE true when SF==OF", condGE, 0, true},
		{"LE true when ZF set", condLE, FlagZF, true},
		{"LE true when SF!=OF", condLE, FlagSF, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalCondition(tt.c, tt.fr); got != tt.want {
				t.Errorf("evalCondition(%d, %#x) = %v, want %v", tt.c, tt.fr, got, tt.want)
			}
		})
	}
}

func TestCMOVSkippedWhenConditionFalse(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[R1] = 99
	m.Reg[R2] = 1
	m.Reg[FR] = 0 // ZF clear: EQ is false.

	m.execute(Instruction{Op: opCMOV, Shape: shapeCM, Cond: condEQ, Reg1: R1, Reg2: R2}, 0)

	if m.Reg[R1] != 99 {
		t.Errorf("R1 after a not-taken CMOV = %s, want unchanged 99", m.Reg[R1])
	}
}

func TestCMOVTakenWhenConditionTrue(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[R1] = 99
	m.Reg[R2] = 1
	m.Reg[FR] = FlagZF // EQ is true.

	m.execute(Instruction{Op: opCMOV, Shape: shapeCM, Cond: condEQ, Reg1: R1, Reg2: R2}, 0)

	if m.Reg[R1] != 1 {
		t.Errorf("R1 after a taken CMOV = %s, want 1", m.Reg[R1])
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[SP0] = 0x1000
	m.Reg[PPR] = PrivilegeUser // active stack is SP0 in user mode.

	m.pushActive(0xdeadbeef)

	if m.Reg[SP0] != 0x1000-8 {
		t.Errorf("SP0 after push = %s, want %s", m.Reg[SP0], Word(0x1000-8))
	}

	got := m.popActive()
	if got != 0xdeadbeef {
		t.Errorf("popActive() = %#x, want 0xdeadbeef", got)
	}

	if m.Reg[SP0] != 0x1000 {
		t.Errorf("SP0 after pop = %s, want restored to %s", m.Reg[SP0], Word(0x1000))
	}
}

func TestCallPushesReturnAddress(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[SP0] = 0x2000
	m.Reg[PPR] = PrivilegeUser
	m.Reg[R2] = 0x500

	inst := Instruction{Op: opCALL, Shape: shapeOA, Mode: modeRegister, Reg1: R2, NextPC: 0x42}
	m.execute(inst, 0x40)

	if m.Reg[PC] != 0x500 {
		t.Errorf("PC after CALL = %s, want target 0x500", m.Reg[PC])
	}

	ret := m.VRead64(m.Reg[SP0])
	if ret != 0x42 {
		t.Errorf("pushed return address = %#x, want 0x42", ret)
	}
}

// execCOANDSW compares against the decoded register-index field of Reg1, not the dereferenced
// register's contents: this is a preserved quirk, not a bug, per DESIGN.md.
func TestCOANDSWComparesRawRegisterIndex(t *testing.T) {
	m := newTestMachine(t)

	m.Reg[R0] = 0xaaaa
	target := Word(0x800)
	m.VWrite64(target, Word(R3)) // memory holds the raw index of R3, not R3's value.

	inst := Instruction{Op: opCOANDSW, Shape: shapeRM, Reg1: R3, Addr: target}
	m.execCOANDSW(inst)

	if m.Reg[R0] != Word(R3) {
		t.Errorf("R0 after COANDSW = %s, want the prior memory value %d", m.Reg[R0], Word(R3))
	}

	if got := m.VRead64(target); got != 0xaaaa {
		t.Errorf("memory after COANDSW swap = %#x, want R0's prior value 0xaaaa", got)
	}
}

func TestCOANDSWNoSwapWhenMismatched(t *testing.T) {
	m := newTestMachine(t)

	target := Word(0x800)
	m.VWrite64(target, 0x1234) // does not equal Word(R3).

	inst := Instruction{Op: opCOANDSW, Shape: shapeRM, Reg1: R3, Addr: target}
	m.execCOANDSW(inst)

	if got := m.VRead64(target); got != 0x1234 {
		t.Errorf("memory after a mismatched COANDSW = %#x, want unchanged 0x1234", got)
	}
}
