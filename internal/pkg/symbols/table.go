package symbols

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSymbol matches every error returned by Table.
var ErrSymbol = errors.New("symbol table error")

type ClashError struct {
	Name string
}

func (e *ClashError) Error() string {
	return fmt.Sprintf("identifier %q is already defined", e.Name)
}

func (e *ClashError) Is(target error) bool { return target == ErrSymbol }

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("identifier %q is not defined", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrSymbol }

type UnexpectedTypeError struct {
	Name     string
	Expected Kind
	Found    Kind
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("identifier %q is of kind %s, expected %s", e.Name, e.Found, e.Expected)
}

func (e *UnexpectedTypeError) Is(target error) bool { return target == ErrSymbol }

// Table is a flat namespace shared by all symbol kinds. Entries are never removed.
type Table struct {
	entries map[string]Symbol
}

func NewTable() *Table {
	return &Table{entries: make(map[string]Symbol)}
}

func (t *Table) Insert(s Symbol) error {
	name := s.SymbolName()
	if _, ok := t.entries[name]; ok {
		return &ClashError{Name: name}
	}
	t.entries[name] = s
	return nil
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.entries[name]
	return s, ok
}

func (t *Table) Len() int { return len(t.entries) }

// Require returns the symbol called name if it is of type T.
func Require[T Symbol](t *Table, name string) (T, error) {
	var zero T
	s, ok := t.entries[name]
	if !ok {
		return zero, &NotFoundError{Name: name}
	}
	typed, ok := s.(T)
	if !ok {
		return zero, &UnexpectedTypeError{Name: name, Expected: zero.SymbolKind(), Found: s.SymbolKind()}
	}
	return typed, nil
}

// AllOfType returns every symbol of type T, sorted by name.
func AllOfType[T Symbol](t *Table) []T {
	var out []T
	for _, s := range t.entries {
		if typed, ok := s.(T); ok {
			out = append(out, typed)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolName() < out[j].SymbolName() })
	return out
}
