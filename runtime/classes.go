package runtime

import (
	"sync"

	"github.com/wippyai/jsvm/ident"
)

// ClassID is an opaque, runtime-assigned handle to a ClassDef (§3, §6).
type ClassID uint32

// Member describes one method/getter/setter/field bound into a class body
// by the builder's CreateClass/Bind* opcodes (§4.1 Classes).
type Member struct {
	Field     ident.ID
	FuncID    FuncID // unused when IsField is true
	IsField   bool
	IsGetter  bool
	IsSetter  bool
	IsStatic  bool
	IsPrivate bool
}

// ClassDef is the runtime-side record of a class declaration: its
// constructor function, optional superclass, and bound members. The
// interpreter materializes the actual constructor Object (and its
// .prototype object, with the superclass's prototype linked in) each
// time CreateClass executes; ClassDef itself only holds the static
// blueprint the builder produced.
type ClassDef struct {
	Name        string
	Constructor FuncID
	HasSuper    bool
	Super       ClassID
	Members     []Member
}

type classTable struct {
	mu   sync.RWMutex
	defs []*ClassDef
}

func (t *classTable) init() { t.defs = make([]*ClassDef, 0, 8) }

// NewClass registers a class blueprint and returns its ClassID.
func (rt *Runtime) NewClass(def *ClassDef) ClassID {
	rt.classes.mu.Lock()
	defer rt.classes.mu.Unlock()
	rt.classes.defs = append(rt.classes.defs, def)
	return ClassID(len(rt.classes.defs) - 1)
}

// GetClass retrieves a previously registered class blueprint.
func (rt *Runtime) GetClass(id ClassID) (*ClassDef, bool) {
	rt.classes.mu.RLock()
	defer rt.classes.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(rt.classes.defs) {
		return nil, false
	}
	return rt.classes.defs[id], true
}

// BindMember appends a member binding to a previously registered class.
// The builder calls this once per BindMethod/BindGetter/BindSetter/
// BindField/BindPrivate opcode it emits, immediately after CreateClass.
func (rt *Runtime) BindMember(id ClassID, m Member) {
	rt.classes.mu.Lock()
	defer rt.classes.mu.Unlock()
	def := rt.classes.defs[id]
	def.Members = append(def.Members, m)
}
