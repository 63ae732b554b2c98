package interp

import "github.com/wippyai/jsvm/value"

// createArg opens a new argument span: StackOffset is an ordinary
// (statically allocated) stack slot, so all this needs to do is push it as
// the innermost span's base — nested calls inside an argument expression
// open/close their own span before this one's next PushArg runs.
func (fr *Frame) createArg(stackOffset uint32) {
	fr.argBase = append(fr.argBase, stackOffset)
}

func (fr *Frame) currentArgBase() uint32 {
	return fr.argBase[len(fr.argBase)-1]
}

// pushArg writes one argument value into the current span at its
// StackOffset+Index slot, recording whether it must be spread-expanded at
// finishArgs time.
func (fr *Frame) pushArg(v value.Value, index uint32, spread bool) {
	slot := fr.currentArgBase() + index
	fr.stack[slot] = v
	if spread {
		if fr.spreadMarks == nil {
			fr.spreadMarks = make(map[uint32]bool)
		}
		fr.spreadMarks[slot] = true
	}
}

// finishArgs closes the innermost span, expanding any spread-marked slot
// into its iterated elements, and leaves the final argument slice in
// fr.lastArgs for the OpCall/OpNew that always immediately follows.
func (ip *Interp) finishArgs(fr *Frame, stackOffset, length uint32) error {
	base := fr.argBase[len(fr.argBase)-1]
	fr.argBase = fr.argBase[:len(fr.argBase)-1]

	args := make([]value.Value, 0, length)
	for i := uint32(0); i < length; i++ {
		slot := base + i
		v := fr.stack[slot]
		if fr.spreadMarks != nil && fr.spreadMarks[slot] {
			delete(fr.spreadMarks, slot)
			items, err := ip.iterateToSlice(v)
			if err != nil {
				return err
			}
			args = append(args, items...)
			continue
		}
		args = append(args, v)
	}
	fr.lastArgs = args
	return nil
}

// bindCallArgs writes actual arguments into a callee Frame's declared
// parameter slots [0, arity), placing the overflow actuals into a fresh
// array in the final slot when the function has a rest parameter
// (HasRestParam) — §4.3 Call convention.
func bindCallArgs(ip *Interp, callee *Frame, args []value.Value) {
	desc := callee.desc
	arity := int(desc.Arity)
	for i := 0; i < arity; i++ {
		last := desc.HasRestParam && i == arity-1
		if !last {
			if i < len(args) {
				callee.stack[i] = args[i]
			} else {
				callee.stack[i] = value.Undefined
			}
			continue
		}
		rest := ip.newArray()
		o := ip.rt.Object(rest)
		if i < len(args) {
			o.Elements = append(o.Elements, args[i:]...)
		}
		callee.stack[i] = rest
	}
}
