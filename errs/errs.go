// Package errs defines the four error kinds of the BQL error taxonomy
// (spec §7), grounded on the teacher's auth package convention of
// declaring package-level *errors.Kind values with gopkg.in/src-d/go-errors.v1
// rather than plain sentinel errors, so callers can match on kind.
package errs

import (
	"fmt"

	"github.com/bqlquery/bql/ast"
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// Syntax is raised by the lexer/parser when a statement cannot be
	// parsed into an AST. It always carries a single-position span.
	Syntax = errors.NewKind("syntax error")

	// Compilation is raised by the compiler when an AST is well-formed
	// but semantically invalid.
	Compilation = errors.NewKind("%s")

	// Parameter is raised by parameter binding.
	Parameter = errors.NewKind("%s")

	// Interface is raised by misuse of the Connection/Cursor API.
	Interface = errors.NewKind("%s")
)

// Spanned wraps an error with the source span it applies to, when known.
type Spanned struct {
	Span Span
	Err  error
}

// Span is a position in source text; kept distinct from ast.Span so this
// package does not need to import parser internals, but convertible
// from one directly.
type Span struct {
	Start, End, Line int
}

// FromASTSpan converts an ast.Span to errs.Span.
func FromASTSpan(s ast.Span) Span {
	return Span{Start: s.Start, End: s.End, Line: s.Line}
}

func (s *Spanned) Error() string {
	return fmt.Sprintf("%s (line %d, pos %d)", s.Err.Error(), s.Span.Line, s.Span.Start)
}

func (s *Spanned) Unwrap() error { return s.Err }

// NewSyntax builds a Syntax error at a single position.
func NewSyntax(pos, line int, msg string) error {
	err := Syntax.New()
	if msg != "" {
		err = fmt.Errorf("%w: %s", err, msg)
	}
	return &Spanned{Span: Span{Start: pos, End: pos, Line: line}, Err: err}
}

// NewCompilation builds a Compilation error, optionally spanned.
func NewCompilation(span *ast.Span, format string, args ...interface{}) error {
	err := Compilation.New(fmt.Sprintf(format, args...))
	if span == nil {
		return err
	}
	return &Spanned{Span: FromASTSpan(*span), Err: err}
}

// NewParameter builds a Parameter error.
func NewParameter(format string, args ...interface{}) error {
	return Parameter.New(fmt.Sprintf(format, args...))
}

// NewInterface builds an Interface error.
func NewInterface(format string, args ...interface{}) error {
	return Interface.New(fmt.Sprintf(format, args...))
}
