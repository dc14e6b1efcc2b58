package ctstlang

import (
	"strings"

	"github.com/containust/containust/internal/ctstlang/ast"
)

// Diagnostics aggregates every diagnostic collected across a file and its
// imports, so a whole-composition validation pass can report everything at
// once rather than stopping at the first error, per spec's "full-file
// validation runs to completion" rule.
type Diagnostics []ast.Diagnostic

// HasErrors reports whether any diagnostic is an error (as opposed to a
// warning like E009/E010).
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity == ast.SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (d Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Severity == ast.SeverityError {
			out = append(out, diag)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (d Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Severity == ast.SeverityWarning {
			out = append(out, diag)
		}
	}
	return out
}

// Error implements the error interface, rendering one line per diagnostic.
func (d Diagnostics) Error() string {
	lines := make([]string, 0, len(d))
	for _, diag := range d {
		lines = append(lines, diag.Error())
	}
	return strings.Join(lines, "\n")
}
