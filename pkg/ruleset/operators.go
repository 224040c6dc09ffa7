package ruleset

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a comparison token of an equation condition.
type Operator string

const (
	OpAssign          Operator = "="
	OpEqual           Operator = "=="
	OpNotEqual        Operator = "!="
	OpLess            Operator = "<"
	OpLessEqual       Operator = "<="
	OpLessEqualAlt    Operator = "=<"
	OpGreater         Operator = ">"
	OpGreaterEqual    Operator = ">="
	OpGreaterEqualAlt Operator = "=>"
)

// ParseOperator validates an operator token.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.TrimSpace(s))
	switch op {
	case OpAssign, OpEqual, OpNotEqual,
		OpLess, OpLessEqual, OpLessEqualAlt,
		OpGreater, OpGreaterEqual, OpGreaterEqualAlt:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
}

// IsLess reports whether op belongs to the < family.
func (op Operator) IsLess() bool {
	return op == OpLess || op == OpLessEqual || op == OpLessEqualAlt
}

// IsGreater reports whether op belongs to the > family.
func (op Operator) IsGreater() bool {
	return op == OpGreater || op == OpGreaterEqual || op == OpGreaterEqualAlt
}

// IsEquality reports whether op is = or ==.
func (op Operator) IsEquality() bool {
	return op == OpAssign || op == OpEqual
}

// IsContinuous reports whether op compares ranges rather than discrete values.
func (op Operator) IsContinuous() bool {
	return !(op.IsEquality() || op == OpNotEqual)
}

// Negate returns the complementary operator. Unknown tokens are returned
// unchanged.
func (op Operator) Negate() Operator {
	switch op {
	case OpAssign, OpEqual:
		return OpNotEqual
	case OpNotEqual:
		return OpAssign
	case OpLess:
		return OpGreaterEqual
	case OpGreaterEqual, OpGreaterEqualAlt:
		return OpLess
	case OpGreater:
		return OpLessEqual
	case OpLessEqual, OpLessEqualAlt:
		return OpGreater
	default:
		return op
	}
}

// Analyze evaluates "value op ruleValue". Both sides are compared as numbers
// when they parse, otherwise as strings.
func Analyze(value string, op Operator, ruleValue string) bool {
	if a, ok := parseNumber(value); ok {
		if b, ok := parseNumber(ruleValue); ok {
			return compareWith(op, cmpFloat(a, b), a != b)
		}
	}
	c := strings.Compare(value, ruleValue)
	return compareWith(op, c, c != 0)
}

// compareWith maps a three-way comparison result onto op. NaN operands yield
// c == 0 with notEqual set, so only != holds for them.
func compareWith(op Operator, c int, notEqual bool) bool {
	switch op {
	case OpAssign, OpEqual:
		return c == 0 && !notEqual
	case OpNotEqual:
		return notEqual
	case OpLess:
		return c < 0
	case OpLessEqual, OpLessEqualAlt:
		return c <= 0 && (c < 0 || !notEqual)
	case OpGreater:
		return c > 0
	default:
		return c >= 0 && (c > 0 || !notEqual)
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
