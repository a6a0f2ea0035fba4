// Package check provides the default expression checker wired into the
// CLI replay command.
//
// It is deliberately structural-only: bracket balance and a minimal
// well-formedness scan. It makes NO mathematical validity claim - real
// validity belongs to an external symbolic or numeric engine plugged in
// through the query.Checker interface. This checker exists so replay is
// usable out of the box without pretending to verify mathematics.
package check

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/uamlab/uam/internal/query"
)

// Structural checks bracket balance and basic well-formedness of a
// formula string. Implements query.Checker.
type Structural struct{}

var opening = map[rune]rune{')': '(', ']': '[', '}': '{'}

// Check reports whether the expression is structurally well formed.
// Empty or whitespace-only expressions are unevaluable, not invalid.
func (Structural) Check(expr string) (bool, string, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return false, "", &query.EvaluationError{
			Expr: expr,
			Err:  fmt.Errorf("empty expression"),
		}
	}

	var stack []rune
	for i, r := range trimmed {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != opening[r] {
				return false, fmt.Sprintf("unbalanced %q at offset %d", r, i), nil
			}
			stack = stack[:len(stack)-1]
		default:
			if unicode.IsControl(r) && r != '\t' {
				return false, "", &query.EvaluationError{
					Expr: expr,
					Err:  fmt.Errorf("control character at offset %d", i),
				}
			}
		}
	}
	if len(stack) > 0 {
		return false, fmt.Sprintf("%d unclosed bracket(s)", len(stack)), nil
	}

	return true, "structurally well formed", nil
}
