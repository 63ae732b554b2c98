package interp

import (
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// StepState is a snapshot of one frame's execution-local state taken right
// after an instruction ran — the registers/locals/temp-stack contents
// cmd/jsrun's :step command renders live.
type StepState struct {
	PC        int
	Instr     bytecode.Instr
	Registers [3]value.Value
	Locals    []value.Value
	Temps     []value.Value
}

// RunScriptTraced runs desc as a top-level script like RunScript, but calls
// trace after every instruction with a snapshot of the frame. It exists for
// debugging aids (cmd/jsrun's :step); RunScript stays the hot path and pays
// none of the snapshot's per-instruction allocation.
func (ip *Interp) RunScriptTraced(desc *runtime.FunctionDescriptor, trace func(StepState)) (value.Value, error) {
	fr := newFrame(desc, value.Undefined, value.Undefined, nil)
	v, err := ip.runFrameTraced(fr, trace)
	if err != nil {
		return value.Undefined, unwrapThrown(ip.rt, err)
	}
	return v, nil
}

// runFrameTraced mirrors runFrame's loop exactly, the only difference being
// the snapshot callback after each step.
func (ip *Interp) runFrameTraced(fr *Frame, trace func(StepState)) (value.Value, error) {
	prog := fr.prog
	for {
		if fr.ip >= len(prog) {
			return value.Undefined, nil
		}
		pc := fr.ip
		instr := prog[fr.ip]
		jumped, ret, retVal, err := ip.step(fr, instr)
		if trace != nil {
			trace(snapshotFrame(fr, pc, instr))
		}
		if err != nil {
			t := ip.raise(err)
			if len(fr.tryStack) > 0 {
				entry := fr.tryStack[len(fr.tryStack)-1]
				fr.tempStack = fr.tempStack[:entry.tempDepth]
				fr.argBase = fr.argBase[:entry.argBaseDepth]
				fr.regs[bytecode.R0] = t.V
				fr.ip = entry.catchIP
				continue
			}
			return value.Undefined, t
		}
		if ret {
			return retVal, nil
		}
		if !jumped {
			fr.ip++
		}
	}
}

func snapshotFrame(fr *Frame, pc int, instr bytecode.Instr) StepState {
	locals := make([]value.Value, len(fr.stack))
	copy(locals, fr.stack)
	temps := make([]value.Value, len(fr.tempStack))
	copy(temps, fr.tempStack)
	return StepState{
		PC:        pc,
		Instr:     instr,
		Registers: fr.regs,
		Locals:    locals,
		Temps:     temps,
	}
}
