// Package ident implements the engine's process-wide field-name interning
// table: a monotonic, never-evicted string<->id mapping, used for property
// keys and identifier names so that the interpreter's hot paths compare
// 32-bit ids instead of strings.
package ident

import "sync"

// ID is an interned field-name identifier, unique per string for the
// process lifetime of the owning Table.
type ID uint32

// Table is a reader-preferring interning table: concurrent readers never
// block each other, and writers (new names) only take the lock for the
// rare case of a genuinely new string. Safe for concurrent use, matching
// §5's requirement that interning tables be process-global and lock
// protected.
type Table struct {
	mu     sync.RWMutex
	byName map[string]ID
	names  []string // index i holds the name for ID(i)
}

// NewTable constructs an empty interning table.
func NewTable() *Table {
	return &Table{byName: make(map[string]ID)}
}

// Intern returns the id for name, assigning a new one if name has never
// been seen by this table. IDs are monotonic and never reused or evicted.
func (t *Table) Intern(name string) ID {
	t.mu.RLock()
	if id, ok := t.byName[name]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check under the write lock: another goroutine may have interned
	// the same name while we waited.
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := ID(len(t.names))
	t.names = append(t.names, name)
	t.byName[name] = id
	return id
}

// Lookup returns the interned id for name, if any, without allocating one.
func (t *Table) Lookup(name string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the string an id was interned from. Panics on an id this
// table never issued — a builder or interpreter bug, since every id in
// circulation must have come from Intern on this same table.
func (t *Table) Name(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[id]
}

// Len returns the number of distinct names interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// WellKnown holds the ids of identifiers the builder and interpreter refer
// to structurally rather than by looking them up each time (e.g. the
// synthetic super-constructor binding). Populate once via NewWellKnown.
type WellKnown struct {
	SuperConstructor ID
	Prototype        ID
	Constructor      ID
	Length           ID
	Name             ID
	ToPrimitive      ID // well-known symbol field slot, see runtime.Symbols
	ToStringTag      ID
	HasInstance      ID
	Iterator         ID
	AsyncIterator    ID
}

// NewWellKnown interns the engine's well-known field names into t.
func NewWellKnown(t *Table) WellKnown {
	return WellKnown{
		SuperConstructor: t.Intern("SUPER CONSTRUCTOR"),
		Prototype:        t.Intern("prototype"),
		Constructor:      t.Intern("constructor"),
		Length:           t.Intern("length"),
		Name:             t.Intern("name"),
		ToPrimitive:      t.Intern("@@toPrimitive"),
		ToStringTag:      t.Intern("@@toStringTag"),
		HasInstance:      t.Intern("@@hasInstance"),
		Iterator:         t.Intern("@@iterator"),
		AsyncIterator:    t.Intern("@@asyncIterator"),
	}
}
