package expr

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnresolved is returned in strict mode when an operand names a variable
// that is not present.
var ErrUnresolved = errors.New("unresolved variable")

// BinaryOp is a function that compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

// Evaluator evaluates boolean expressions with optional custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
	strict    bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers a custom binary operator.
// The operator name should not conflict with built-in operators.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// WithStrictVariables makes bare identifiers that do not resolve against
// the variables an error instead of a string literal.
func WithStrictVariables() Option {
	return func(e *Evaluator) {
		e.strict = true
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate evaluates a boolean expression against the provided variables.
//
// Supported syntax, loosest binding first: "or", "and", "not"/"!", then a
// single comparison (==, !=, >=, <=, >, <, contains, custom operators) or a
// bare operand tested for truthiness. Operands may be quoted strings,
// numbers, true/false/null, or dot-path variable references.
func (e *Evaluator) Evaluate(expr string, vars map[string]any) (bool, error) {
	return e.evaluateCondition(expr, vars)
}

// Eval is a convenience function that evaluates an expression using
// the default evaluator (no custom operators).
func Eval(expr string, vars map[string]any) (bool, error) {
	return New().Evaluate(expr, vars)
}

// comparisonOps lists built-in operators with longer tokens first so ">="
// is never split as ">".
var comparisonOps = []struct {
	token string
	op    string
}{
	{"==", "=="},
	{"!=", "!="},
	{">=", ">="},
	{"<=", "<="},
	{">", ">"},
	{"<", "<"},
	{" contains ", "contains"},
}

func (e *Evaluator) evaluateCondition(expr string, vars map[string]any) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, nil
	}

	if parts := strings.SplitN(expr, " or ", 2); len(parts) == 2 {
		left, err := e.evaluateCondition(parts[0], vars)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return e.evaluateCondition(parts[1], vars)
	}

	if parts := strings.SplitN(expr, " and ", 2); len(parts) == 2 {
		left, err := e.evaluateCondition(parts[0], vars)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil
		}
		return e.evaluateCondition(parts[1], vars)
	}

	if inner, ok := strings.CutPrefix(expr, "not "); ok {
		result, err := e.evaluateCondition(inner, vars)
		return !result, err
	}
	if inner, ok := strings.CutPrefix(expr, "!"); ok && !strings.HasPrefix(inner, "=") {
		result, err := e.evaluateCondition(inner, vars)
		return !result, err
	}

	for _, c := range comparisonOps {
		if parts := strings.SplitN(expr, c.token, 2); len(parts) == 2 {
			left, right, err := e.operands(parts, vars)
			if err != nil {
				return false, err
			}
			return Compare(left, right, c.op)
		}
	}

	// Custom operators are tried in name order (wrapped with spaces for
	// word boundaries) so evaluation does not depend on map iteration.
	names := make([]string, 0, len(e.customOps))
	for name := range e.customOps {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if parts := strings.SplitN(expr, " "+name+" ", 2); len(parts) == 2 {
			left, right, err := e.operands(parts, vars)
			if err != nil {
				return false, err
			}
			return e.customOps[name](left, right), nil
		}
	}

	val, err := e.operand(expr, vars)
	if err != nil {
		return false, err
	}
	return IsTruthy(val), nil
}

func (e *Evaluator) operands(parts []string, vars map[string]any) (any, any, error) {
	left, err := e.operand(parts[0], vars)
	if err != nil {
		return nil, nil, err
	}
	right, err := e.operand(parts[1], vars)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (e *Evaluator) operand(s string, vars map[string]any) (any, error) {
	s = strings.TrimSpace(s)
	v := Resolve(s, vars)
	if e.strict && isIdentifier(s) {
		if str, ok := v.(string); ok && str == s {
			if _, found := Lookup(s, vars); !found {
				return nil, fmt.Errorf("%w: %s", ErrUnresolved, s)
			}
		}
	}
	return v, nil
}

// isIdentifier reports whether s looks like a variable reference rather
// than a literal.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
