package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/jsvm/builder"
	"github.com/wippyai/jsvm/interp"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// session holds one REPL's long-lived runtime and interpreter. Each
// evaluation compiles a fresh top-level script whose var/let/const and
// function declarations are locals of that script's frame, so they are not
// visible to later evaluations; only assignments to undeclared names, which
// land on the interpreter's shared global object, carry over.
type session struct {
	rt *runtime.Runtime
	ip *interp.Interp
}

func newSession() *session {
	rt := runtime.New()
	return &session{rt: rt, ip: interp.New(rt)}
}

// compile lowers src through the REPL's own small parser and the builder
// package, returning the freshly registered top-level FuncID and its
// descriptor for :bytecode to disassemble or eval to run.
func (s *session) compile(src string) (runtime.FuncID, *runtime.FunctionDescriptor, error) {
	stmts, err := ParseProgram(src)
	if err != nil {
		return 0, nil, fmt.Errorf("parse: %w", err)
	}
	id, err := builder.BuildScript(s.rt, stmts)
	if err != nil {
		return 0, nil, fmt.Errorf("build: %w", err)
	}
	desc, ok := s.rt.GetFunction(id)
	if !ok {
		return 0, nil, fmt.Errorf("build: function %d vanished after registration", id)
	}
	return id, desc, nil
}

// eval compiles and runs src as a script, returning its result (the value
// of a top-level `return`, or undefined; the last expression statement's
// value is not returned) or any thrown/compile error.
func (s *session) eval(src string) (value.Value, error) {
	_, desc, err := s.compile(src)
	if err != nil {
		return value.Undefined, err
	}
	return s.ip.RunScript(desc)
}

// disassemble compiles src and renders its linearized bytecode one
// instruction per line, backing the :bytecode command.
func (s *session) disassemble(src string) (string, error) {
	_, desc, err := s.compile(src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, instr := range desc.Bytecode {
		fmt.Fprintf(&b, "%4d  %s\n", i, instr.Op)
	}
	return b.String(), nil
}

// trace compiles and runs src via RunScriptTraced, rendering a line per
// instruction with the register file and temp-stack depth at that point —
// backing the :step command.
func (s *session) trace(src string) (string, value.Value, error) {
	_, desc, err := s.compile(src)
	if err != nil {
		return "", value.Undefined, err
	}
	var b strings.Builder
	result, err := s.ip.RunScriptTraced(desc, func(st interp.StepState) {
		fmt.Fprintf(&b, "pc=%-3d %-18s R0=%-12s R1=%-12s R2=%-12s temps=%d\n",
			st.PC, st.Instr.Op,
			s.format(st.Registers[0]), s.format(st.Registers[1]), s.format(st.Registers[2]),
			len(st.Temps))
	})
	return b.String(), result, err
}

// format renders a value.Value the way the REPL's result pane shows it:
// strings quoted, everything else via the runtime's own ToString (which
// runs valueOf/toString on objects the same as a `+ ""` coercion would).
func (s *session) format(v value.Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return fmt.Sprintf("%v", v.AsNumber())
	}
	str, err := s.rt.ToString(v)
	if err != nil {
		return "<error formatting value: " + err.Error() + ">"
	}
	if v.IsString() {
		return fmt.Sprintf("%q", str)
	}
	return str
}
