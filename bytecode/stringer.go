package bytecode

var opNames = [...]string{
	OpCreateBlock:    "CreateBlock",
	OpSwitchToBlock:  "SwitchToBlock",
	OpJump:           "Jump",
	OpJumpIfTrue:     "JumpIfTrue",
	OpJumpIfFalse:    "JumpIfFalse",
	OpJumpIfIterDone: "JumpIfIterDone",
	OpLoadUndefined:  "LoadUndefined",
	OpLoadNull:       "LoadNull",
	OpLoadTrue:       "LoadTrue",
	OpLoadFalse:      "LoadFalse",
	OpLoadThis:       "LoadThis",
	OpLoadNewTarget:  "LoadNewTarget",
	OpLoadNumber:     "LoadNumber",
	OpLoadInt32:      "LoadInt32",
	OpLoadString:     "LoadString",
	OpLoadRegex:      "LoadRegex",
	OpStoreTemp:      "StoreTemp",
	OpReadTemp:       "ReadTemp",
	OpReleaseTemp:    "ReleaseTemp",
	OpAdd:            "Add",
	OpSub:            "Sub",
	OpMul:            "Mul",
	OpDiv:            "Div",
	OpMod:            "Mod",
	OpPow:            "Pow",
	OpShl:            "Shl",
	OpShr:            "Shr",
	OpUShr:           "UShr",
	OpBitAnd:         "BitAnd",
	OpBitOr:          "BitOr",
	OpBitXor:         "BitXor",
	OpLt:             "Lt",
	OpLtEq:           "LtEq",
	OpGt:             "Gt",
	OpGtEq:           "GtEq",
	OpEqEq:           "EqEq",
	OpNotEq:          "NotEq",
	OpEqEqEq:         "EqEqEq",
	OpNotEqEq:        "NotEqEq",
	OpIn:             "In",
	OpInstanceOf:     "InstanceOf",
	OpAddImmI32:      "AddImmI32",
	OpAddImmF32:      "AddImmF32",
	OpAddImmStr:      "AddImmStr",
	OpSubImmI32:      "SubImmI32",
	OpMulImmI32:      "MulImmI32",
	OpLtImmI32:       "LtImmI32",
	OpGtImmI32:       "GtImmI32",
	OpNeg:            "Neg",
	OpPos:            "Pos",
	OpBitNotOp:       "BitNot",
	OpLogicalNot:     "LogicalNot",
	OpTypeOf:         "TypeOf",
	OpVoidOp:         "Void",
	OpDeleteOp:       "Delete",
	OpSelect:         "Select",
	OpGetLocal:       "GetLocal",
	OpSetLocal:       "SetLocal",
	OpGetCapture:     "GetCapture",
	OpSetCapture:     "SetCapture",
	OpGetInherited:   "GetInherited",
	OpSetInherited:   "SetInherited",
	OpGetDynamic:     "GetDynamic",
	OpSetDynamic:     "SetDynamic",
	OpDeclareDynamic: "DeclareDynamic",
	OpPromoteToCapture: "PromoteToCapture",
	OpReadFieldStatic:  "ReadFieldStatic",
	OpWriteFieldStatic: "WriteFieldStatic",
	OpReadField:        "ReadField",
	OpWriteField:       "WriteField",
	OpCreateArray:      "CreateArray",
	OpArrayPush:        "ArrayPush",
	OpArraySpread:      "ArraySpread",
	OpCreateObject:     "CreateObject",
	OpObjectSetStatic:  "ObjectSetStatic",
	OpObjectSetComputed:          "ObjectSetComputed",
	OpObjectDefineGetter:         "ObjectDefineGetter",
	OpObjectDefineSetter:         "ObjectDefineSetter",
	OpObjectDefineGetterComputed: "ObjectDefineGetterComputed",
	OpObjectDefineSetterComputed: "ObjectDefineSetterComputed",
	OpObjectSpread:     "ObjectSpread",
	OpCollectRestObject: "CollectRestObject",
	OpCreateFunction:   "CreateFunction",
	OpCreateArrow:      "CreateArrow",
	OpCreateClass:      "CreateClass",
	OpBindMethod:       "BindMethod",
	OpBindGetter:       "BindGetter",
	OpBindSetter:       "BindSetter",
	OpBindField:        "BindField",
	OpBindPrivate:      "BindPrivate",
	OpCreateArg:        "CreateArg",
	OpPushArg:          "PushArg",
	OpPushArgSpread:    "PushArgSpread",
	OpFinishArgs:       "FinishArgs",
	OpCall:             "Call",
	OpNew:              "New",
	OpReturn:           "Return",
	OpPrepareForIn:     "PrepareForIn",
	OpPrepareForOf:     "PrepareForOf",
	OpIterNext:         "IterNext",
	OpIterCollect:      "IterCollect",
	OpIterDrop:         "IterDrop",
	OpEnterTry:         "EnterTry",
	OpExitTry:          "ExitTry",
	OpThrow:            "Throw",
	OpAwait:            "Await",
	OpYield:            "Yield",
	OpMove:             "Move",
	OpDebugger:         "Debugger",
	OpNop:              "Nop",
}

// String renders an Op's mnemonic, used by the builder's debug tracing and
// by cmd/jsrun's :bytecode disassembly.
func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "Op(?)"
}
