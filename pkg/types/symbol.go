package types

import "errors"

// SymbolKind represents the kind of code unit extracted from a source file.
type SymbolKind string

const (
	KindModule   SymbolKind = "module"
	KindClass    SymbolKind = "class"
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
)

// Symbol is a documented code unit extracted from a source file. Only
// symbols with a non-empty docstring produce chunks; the extractor keeps
// undocumented symbols out of the index on purpose.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Parent    string // enclosing class or type, empty at module level
	Docstring string
	Body      string
	StartLine int
	EndLine   int
}

// QualifiedName returns the fully-qualified symbol name used to prefix
// docs-domain chunks, e.g. "SampleClass.increment".
func (s *Symbol) QualifiedName() string {
	if s.Parent == "" {
		return s.Name
	}
	return s.Parent + "." + s.Name
}

// Validate checks structural invariants of an extracted symbol.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}
	switch s.Kind {
	case KindModule, KindClass, KindFunction, KindMethod:
	default:
		return errors.New("invalid symbol kind")
	}
	if s.StartLine <= 0 || s.EndLine < s.StartLine {
		return errors.New("invalid symbol line range")
	}
	return nil
}
