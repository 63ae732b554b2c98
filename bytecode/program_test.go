package bytecode

import "testing"

func TestLinearizeResolvesJumpTargets(t *testing.T) {
	// if (r0) jump then else fallthrough to join
	then := Block(1)
	join := Block(2)

	raw := []Instr{
		{Op: OpCreateBlock, Imm: BlockImm{Block: then}},
		{Op: OpCreateBlock, Imm: BlockImm{Block: join}},
		{Op: OpJumpIfTrue, Imm: CondJumpImm{Cond: R0, Target: then, Line: -1}},
		{Op: OpJump, Imm: JumpImm{Target: join, Line: -1}},
		{Op: OpSwitchToBlock, Imm: BlockImm{Block: then}},
		{Op: OpLoadTrue, Imm: RegImm{Dst: R0}},
		{Op: OpSwitchToBlock, Imm: BlockImm{Block: join}},
		{Op: OpReturn},
	}

	prog, err := Linearize(raw)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	// Expected flattened order: JumpIfTrue, Jump, LoadTrue, Return (indices 0..3)
	if len(prog) != 4 {
		t.Fatalf("expected 4 instructions after stripping pseudo-ops, got %d", len(prog))
	}
	jit := prog[0].Imm.(CondJumpImm)
	if jit.Line != 2 {
		t.Fatalf("JumpIfTrue should target index 2 (LoadTrue), got %d", jit.Line)
	}
	j := prog[1].Imm.(JumpImm)
	if j.Line != 3 {
		t.Fatalf("Jump should target index 3 (Return), got %d", j.Line)
	}
}

func TestLinearizeUndeclaredBlockErrors(t *testing.T) {
	raw := []Instr{
		{Op: OpJump, Imm: JumpImm{Target: Block(99), Line: -1}},
	}
	if _, err := Linearize(raw); err == nil {
		t.Fatal("expected error for jump to a block that was never switched into")
	}
}
