// Package ast defines the syntax tree produced by internal/ctstlang/parser.
package ast

import "github.com/containust/containust/internal/ctstlang/lexer"

// Value is the interface implemented by every assignment value: a scalar
// string/int/bool, a list, or a map (brace-delimited block of assignments).
type Value interface {
	valueNode()
	Pos() lexer.Pos
}

// ScalarValue is a string, integer, or boolean literal. Size and duration
// literals are represented as String (their suffix form) and parsed at
// type-check time, per the grammar's deferred-parsing rule.
type ScalarValue struct {
	Kind ScalarKind
	Str  string
	Int  int64
	Bool bool
	At   lexer.Pos
}

// ScalarKind distinguishes the three scalar literal forms.
type ScalarKind int

const (
	StringKind ScalarKind = iota
	IntKind
	BoolKind
)

func (ScalarValue) valueNode()       {}
func (v ScalarValue) Pos() lexer.Pos { return v.At }

// ListValue is a bracketed, comma-separated sequence of values.
type ListValue struct {
	Items []Value
	At    lexer.Pos
}

func (ListValue) valueNode()       {}
func (v ListValue) Pos() lexer.Pos { return v.At }

// MapValue is a brace-delimited block of key = value assignments, used for
// nested property blocks (env, limits, healthcheck) and template bodies.
type MapValue struct {
	Entries []Assignment
	At      lexer.Pos
}

func (MapValue) valueNode()       {}
func (v MapValue) Pos() lexer.Pos { return v.At }

// Get returns the value bound to key and whether it was present.
func (m MapValue) Get(key string) (Value, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Assignment is one "key = value" pair inside a component or map body.
type Assignment struct {
	Key   string
	Value Value
	At    lexer.Pos
}

// ImportStmt is `IMPORT "<path>" [AS <alias>]`.
type ImportStmt struct {
	Path  string
	Alias string // empty if no AS clause
	At    lexer.Pos
}

// ComponentDecl is `COMPONENT name [FROM tmpl] { ... }`. Any component may
// itself serve as another's FROM base; the grammar has no separate
// template-declaration form.
type ComponentDecl struct {
	Name string
	From string // base component name, empty if none
	Body MapValue
	At   lexer.Pos
}

// ConnectStmt is `CONNECT source -> target`.
type ConnectStmt struct {
	Source string
	Target string
	At     lexer.Pos
}

// ExposeStmt is `EXPOSE <component> <port>` or `EXPOSE <component>
// "<host>:<container>"`; the bare-port form means host port == container
// port.
type ExposeStmt struct {
	Component string
	HostPort  int
	CtrPort   int
	At        lexer.Pos
}

// File is one parsed composition file, before import resolution and
// template merging have been applied.
type File struct {
	Path       string
	Imports    []ImportStmt
	Components []ComponentDecl
	Connects   []ConnectStmt
	Exposes    []ExposeStmt
}

// Severity distinguishes a fatal diagnostic from a warning.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one localised parse or semantic-analysis finding: an E0xx
// code plus file:line:column and a single-line message.
type Diagnostic struct {
	Code     string
	Severity Severity
	Pos      lexer.Pos
	Message  string
}

func (d Diagnostic) Error() string {
	return d.Pos.String() + ": " + d.Code + ": " + d.Message
}

