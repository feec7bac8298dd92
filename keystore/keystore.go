// Package keystore implements the cross-cutting uniqueness and
// redefinition bookkeeping that ZCONF imposes across a whole document:
// a table cannot redefine a key previously used as a leaf, an
// array-of-tables cannot later be referred to as a plain table, and so
// on.
package keystore

import (
	"fmt"
	"strconv"
	"strings"
)

// Store records, globally per parse or build, every declared key,
// table, array-of-table, and implicit-parent table, and rejects the
// second of any two conflicting declarations.
type Store struct {
	keys                  map[string]bool
	tables                map[string]bool
	arrayOfTables         map[string]int
	implicitArrayOfTables map[string]bool
	currentTable          string
	currentArrayOfTable   string
	currentIndex          int
	inlineScopes          []scopeFrame
}

// scopeFrame saves the scope a PushInlineScope call displaces, so
// PopInlineScope can restore it once the inline table's body is done.
type scopeFrame struct {
	table        string
	arrayOfTable string
	index        int
}

func New() *Store {
	return &Store{
		keys:                  make(map[string]bool),
		tables:                make(map[string]bool),
		arrayOfTables:         make(map[string]int),
		implicitArrayOfTables: make(map[string]bool),
	}
}

// fullyQualifiedLeaf computes trim_dots("{currentArrayOfTable}{index}.
// {currentTable}.{k}"): the namespace that disambiguates a leaf key
// bound within an array-of-tables element from the same key bound
// within a different element.
func (s *Store) fullyQualifiedLeaf(k string) string {
	var parts []string
	if s.currentArrayOfTable != "" {
		parts = append(parts, s.currentArrayOfTable+strconv.Itoa(s.currentIndex))
	}
	if s.currentTable != "" {
		parts = append(parts, s.currentTable)
	}
	parts = append(parts, k)
	return strings.Join(parts, ".")
}

// CurrentPrefix exposes the fully qualified path a bare leaf key k
// would resolve to under the current scope, for callers (the Value
// Tree) that need the same namespacing the Key Store itself uses.
func (s *Store) CurrentPrefix(k string) string {
	return s.fullyQualifiedLeaf(k)
}

func (s *Store) isArrayOfTablesName(name string) bool {
	_, ok := s.arrayOfTables[name]
	return ok
}

// IsValidKey reports whether k may be bound as a new leaf under the
// current scope (Invariant 1).
func (s *Store) IsValidKey(k string) bool {
	fq := s.fullyQualifiedLeaf(k)
	return !s.keys[fq] && !s.tables[fq] && !s.isArrayOfTablesName(fq)
}

// IsValidInlineTable reports whether k may be registered as the name
// of an inline table under the current scope. Inline tables bind a
// leaf key to a Table value, so the same redefinition rule applies.
func (s *Store) IsValidInlineTable(k string) bool {
	return s.IsValidKey(k)
}

// IsValidTableKey reports whether name may be declared as a new
// explicit [table] header (Invariants 2 and 3).
func (s *Store) IsValidTableKey(name string) bool {
	return !s.tables[name] && !s.isArrayOfTablesName(name) && !s.keys[name]
}

// IsValidArrayTableKey reports whether name may be declared (or
// re-declared to append) as an [[array-of-tables]] header (Invariants
// 3 and 4).
func (s *Store) IsValidArrayTableKey(name string) bool {
	return !s.tables[name] && !s.implicitArrayOfTables[name] && !s.keys[name]
}

func (s *Store) IsRegisteredAsTable(name string) bool {
	return s.tables[name]
}

func (s *Store) IsRegisteredAsArrayTable(name string) bool {
	return s.isArrayOfTablesName(name)
}

func (s *Store) IsTableImplicitFromArrayTable(name string) bool {
	return s.implicitArrayOfTables[name]
}

// AddKey registers k as a bound leaf under the current scope.
func (s *Store) AddKey(k string) error {
	if !s.IsValidKey(k) {
		return fmt.Errorf("zconf: key %q already defined", s.fullyQualifiedLeaf(k))
	}
	s.keys[s.fullyQualifiedLeaf(k)] = true
	return nil
}

// AddInlineTableKey registers k as the name under which an inline
// table is nested; it follows the same redefinition rule as a plain
// leaf key.
func (s *Store) AddInlineTableKey(k string) error {
	if !s.IsValidInlineTable(k) {
		return fmt.Errorf("zconf: key %q already defined", s.fullyQualifiedLeaf(k))
	}
	s.keys[s.fullyQualifiedLeaf(k)] = true
	return nil
}

// PushInlineScope qualifies key under the current scope and makes that
// qualified path the current table scope, so leaf keys bound inside the
// inline table's body are namespaced under the inline table itself
// instead of colliding with an unrelated inline table sharing a field
// name at the same outer scope. Symmetric with the Value Tree's own
// BeginInline.
func (s *Store) PushInlineScope(key string) {
	qualified := s.fullyQualifiedLeaf(key)
	s.inlineScopes = append(s.inlineScopes, scopeFrame{
		table:        s.currentTable,
		arrayOfTable: s.currentArrayOfTable,
		index:        s.currentIndex,
	})
	s.currentTable = qualified
	s.currentArrayOfTable = ""
	s.currentIndex = 0
}

// PopInlineScope restores the scope displaced by the matching
// PushInlineScope. Symmetric with the Value Tree's own EndInline.
func (s *Store) PopInlineScope() {
	n := len(s.inlineScopes)
	frame := s.inlineScopes[n-1]
	s.inlineScopes = s.inlineScopes[:n-1]
	s.currentTable = frame.table
	s.currentArrayOfTable = frame.arrayOfTable
	s.currentIndex = frame.index
}

// AddTableKey registers name as an explicit table header, resolving
// whether name (or a dotted prefix of it) is a registered
// array-of-tables; if so, the nearest such prefix becomes the
// enclosing currentArrayOfTable and the remainder becomes
// currentTable so later bare keys scope correctly.
func (s *Store) AddTableKey(name string) error {
	if !s.IsValidTableKey(name) {
		return fmt.Errorf("zconf: table %q already defined or conflicts with an existing key", name)
	}
	s.tables[name] = true
	s.keys[name] = true

	if prefix, idx, found := s.nearestArrayPrefix(name); found {
		s.currentArrayOfTable = prefix
		s.currentIndex = idx
		suffix := strings.TrimPrefix(name, prefix)
		suffix = strings.TrimPrefix(suffix, ".")
		s.currentTable = suffix
	} else {
		s.currentArrayOfTable = ""
		s.currentIndex = 0
		s.currentTable = name
	}
	return nil
}

// AddArrayTableKey registers name as an array-of-tables header. If
// name is new it starts at index 0; otherwise its index is
// incremented, appending a new element. Every proper dotted prefix of
// name that is not itself a registered array-of-tables is recorded as
// an implicit array-of-tables parent.
func (s *Store) AddArrayTableKey(name string) error {
	if !s.IsValidArrayTableKey(name) {
		return fmt.Errorf("zconf: array of tables %q conflicts with an existing key or table", name)
	}
	idx, exists := s.arrayOfTables[name]
	if exists {
		idx++
	} else {
		idx = 0
	}
	s.arrayOfTables[name] = idx

	s.currentArrayOfTable = name
	s.currentIndex = idx
	s.currentTable = ""

	segments := strings.Split(name, ".")
	for i := 1; i < len(segments); i++ {
		candidate := strings.Join(segments[:i], ".")
		if _, already := s.arrayOfTables[candidate]; !already {
			s.implicitArrayOfTables[candidate] = true
		}
	}
	return nil
}

// nearestArrayPrefix returns the longest proper dotted prefix of name
// that is a registered array-of-tables, along with its current index.
func (s *Store) nearestArrayPrefix(name string) (prefix string, idx int, found bool) {
	segments := strings.Split(name, ".")
	for i := len(segments) - 1; i >= 1; i-- {
		candidate := strings.Join(segments[:i], ".")
		if v, ok := s.arrayOfTables[candidate]; ok {
			return candidate, v, true
		}
	}
	return "", 0, false
}
