// Package condition evaluates branch conditions for automation graph walks.
package condition

import (
	"strconv"
	"strings"
	"time"

	"github.com/cadenzahq/cadenza/pkg/template"
)

// Operator identifies a comparison applied between two resolved operands.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
)

// IsValid reports whether the operator is one of the supported comparisons.
func (op Operator) IsValid() bool {
	switch op {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith,
		OpIsEmpty, OpIsNotEmpty, OpGt, OpGte, OpLt, OpLte:
		return true
	default:
		return false
	}
}

// Evaluate resolves both operands against vars and applies op.
//
// Operands are resolved in three steps: a string containing {token} placeholders is
// rendered as a template; a bare variable key (including the now.* built-ins) resolves
// to its value; anything else is taken as a literal. Unknown operators and non-numeric
// operands under numeric operators evaluate to false, never to an error.
func Evaluate(left string, op Operator, right string, vars map[string]string) bool {
	lv := resolveOperand(left, vars)
	rv := resolveOperand(right, vars)

	switch op {
	case OpEquals:
		return lv == rv
	case OpContains:
		return strings.Contains(strings.ToLower(lv), strings.ToLower(rv))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(lv), strings.ToLower(rv))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(lv), strings.ToLower(rv))
	case OpIsEmpty:
		return strings.TrimSpace(lv) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(lv) != ""
	case OpGt, OpGte, OpLt, OpLte:
		return compareNumeric(lv, op, rv)
	default:
		return false
	}
}

func compareNumeric(left string, op Operator, right string) bool {
	ln, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return false
	}

	rn, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return false
	}

	switch op {
	case OpGt:
		return ln > rn
	case OpGte:
		return ln >= rn
	case OpLt:
		return ln < rn
	case OpLte:
		return ln <= rn
	default:
		return false
	}
}

func resolveOperand(operand string, vars map[string]string) string {
	if template.HasTokens(operand) {
		return template.Render(operand, vars)
	}

	if value, ok := vars[operand]; ok {
		return value
	}

	if value, ok := builtin(operand); ok {
		return value
	}

	return operand
}

// builtin resolves the now.* operands when the caller did not seed them into vars.
func builtin(operand string) (string, bool) {
	now := time.Now().UTC()

	switch operand {
	case "now.hour":
		return strconv.Itoa(now.Hour()), true
	case "now.weekday":
		return now.Weekday().String(), true
	case "now.iso":
		return now.Format(time.RFC3339), true
	case "now.date":
		return now.Format("2006-01-02"), true
	default:
		return "", false
	}
}
