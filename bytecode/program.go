package bytecode

import "fmt"

// Program is a linearized, directly-executable instruction stream: the
// output of Linearize, with CreateBlock/SwitchToBlock pseudo-ops removed
// and every jump/try target resolved to a concrete instruction index.
type Program []Instr

// Linearize resolves block ids to instruction indices in a single pass
// over raw, exactly as §4.3 describes: it records the output index of
// every SwitchToBlock, then patches every Jump/JumpIfTrue/JumpIfFalse/
// JumpIfIterDone/EnterTry to hold that index as its Line operand.
//
// raw is the stream a FunctionBuilder produced, including CreateBlock and
// SwitchToBlock pseudo-ops; those two opcodes never appear in the result.
func Linearize(raw []Instr) (Program, error) {
	blockIndex := make(map[Block]int, 8)
	out := make([]Instr, 0, len(raw))

	for _, in := range raw {
		switch in.Op {
		case OpCreateBlock:
			// Pure allocation marker; carries no executable meaning.
			continue
		case OpSwitchToBlock:
			imm, ok := in.Imm.(BlockImm)
			if !ok {
				return nil, fmt.Errorf("bytecode: SwitchToBlock with wrong immediate type %T", in.Imm)
			}
			blockIndex[imm.Block] = len(out)
		default:
			out = append(out, in)
		}
	}

	resolve := func(b Block) (int32, error) {
		idx, ok := blockIndex[b]
		if !ok {
			return 0, fmt.Errorf("bytecode: jump/try target block %d was never switched into", b)
		}
		return int32(idx), nil
	}

	for i := range out {
		switch imm := out[i].Imm.(type) {
		case JumpImm:
			line, err := resolve(imm.Target)
			if err != nil {
				return nil, err
			}
			imm.Line = line
			out[i].Imm = imm
		case CondJumpImm:
			line, err := resolve(imm.Target)
			if err != nil {
				return nil, err
			}
			imm.Line = line
			out[i].Imm = imm
		case TryImm:
			line, err := resolve(imm.Catch)
			if err != nil {
				return nil, err
			}
			imm.Line = line
			out[i].Imm = imm
		}
	}

	return Program(out), nil
}
