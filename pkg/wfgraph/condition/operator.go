package condition

import (
	"fmt"
	"strings"
)

// Operator names a clause comparison.
type Operator string

// Supported operators.
const (
	Equals             Operator = "equals"
	NotEquals          Operator = "not_equals"
	Contains           Operator = "contains"
	GreaterThan        Operator = "greater_than"
	LessThan           Operator = "less_than"
	GreaterThanOrEqual Operator = "greater_than_or_equal"
	LessThanOrEqual    Operator = "less_than_or_equal"
	IsEmpty            Operator = "is_empty"
)

// aliases maps symbol and shorthand spellings onto canonical operators.
var aliases = map[string]Operator{
	"==":          Equals,
	"=":           Equals,
	"eq":          Equals,
	"!=":          NotEquals,
	"ne":          NotEquals,
	"neq":         NotEquals,
	">":           GreaterThan,
	"gt":          GreaterThan,
	"<":           LessThan,
	"lt":          LessThan,
	">=":          GreaterThanOrEqual,
	"gte":         GreaterThanOrEqual,
	"<=":          LessThanOrEqual,
	"lte":         LessThanOrEqual,
	"empty":       IsEmpty,
	"isempty":     IsEmpty,
	"is-empty":    IsEmpty,
	"notequals":   NotEquals,
	"greaterthan": GreaterThan,
	"lessthan":    LessThan,

	"greaterthanorequal": GreaterThanOrEqual,
	"lessthanorequal":    LessThanOrEqual,
}

// ParseOperator returns the canonical Operator for s. Canonical names,
// camelCase names and the symbol forms (==, !=, >, <, >=, <=) are accepted.
func ParseOperator(s string) (Operator, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch op := Operator(norm); op {
	case Equals, NotEquals, Contains, GreaterThan, LessThan,
		GreaterThanOrEqual, LessThanOrEqual, IsEmpty:
		return op, nil
	}
	if op, ok := aliases[norm]; ok {
		return op, nil
	}
	if op, ok := aliases[strings.ReplaceAll(norm, "_", "")]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown condition operator %q", s)
}

// Valid reports whether op is a canonical operator or a recognised alias.
func (op Operator) Valid() bool {
	_, err := ParseOperator(string(op))
	return err == nil
}

// symbol returns the expr comparison token for binary operators.
func (op Operator) symbol() string {
	switch op {
	case Equals:
		return "=="
	case NotEquals:
		return "!="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case GreaterThanOrEqual:
		return ">="
	case LessThanOrEqual:
		return "<="
	case Contains:
		return "contains"
	default:
		return ""
	}
}
