package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/expr"
)

// Port names for the fixed branches of a condition node.
const (
	// PortTrue is the port of the if-branch (first branch).
	PortTrue = "true"

	// PortFalse is the port of the else-branch, selected when no other
	// branch matches.
	PortFalse = "false"
)

// ElseIndex is the Selection.Index of the else-branch.
const ElseIndex = -1

// Clause is one comparison in a branch's conjunctive predicate.
type Clause struct {
	// Field is a dot path into the node's resolved inputs.
	Field string `json:"field" yaml:"field"`

	// Operator selects the comparison.
	Operator Operator `json:"operator" yaml:"operator"`

	// Value is the comparison value. Ignored by IsEmpty.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
}

// String renders the clause for logs, e.g. "score greater_than 5".
func (c Clause) String() string {
	if c.Operator == IsEmpty {
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}

// Branch is an if or else-if arm of a condition node.
//
// A branch matches when every clause is true and, if Expression is set, the
// expression evaluates true. Validate rejects a branch with neither clauses
// nor an expression; Matches treats one as never matching.
type Branch struct {
	// Port is the source port edges use to follow this branch. The first
	// branch always answers to PortTrue (or "if"), so Port is only required
	// on else-if branches.
	Port string `json:"port,omitempty" yaml:"port,omitempty"`

	// Clauses are ANDed in declaration order.
	Clauses []Clause `json:"clauses,omitempty" yaml:"clauses,omitempty"`

	// Expression is an optional boolean expression in the expr syntax.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// CanonicalPort maps a source port spelling onto the port the evaluator
// selects: "if" becomes PortTrue and "else" becomes PortFalse. Other
// values are returned trimmed.
func CanonicalPort(port string) string {
	p := strings.TrimSpace(port)
	switch strings.ToLower(p) {
	case "if", PortTrue:
		return PortTrue
	case "else", PortFalse:
		return PortFalse
	}
	return p
}

// Ports returns the canonical ports a condition with these branches
// exposes: PortTrue, any else-if ports in order, then PortFalse.
func Ports(branches []Branch) []string {
	ports := []string{PortTrue}
	for i := 1; i < len(branches); i++ {
		ports = append(ports, CanonicalPort(branches[i].Port))
	}
	return append(ports, PortFalse)
}

// PortFor returns the canonical port of branch index i, or PortFalse for
// ElseIndex.
func PortFor(branches []Branch, i int) string {
	switch {
	case i == 0:
		return PortTrue
	case i > 0 && i < len(branches):
		return CanonicalPort(branches[i].Port)
	default:
		return PortFalse
	}
}

// Validate checks a branch list for structural problems and returns every
// problem found.
func Validate(branches []Branch) []error {
	var errs []error
	if len(branches) == 0 {
		errs = append(errs, errors.New("condition has no if-branch"))
	}

	seen := map[string]bool{PortTrue: true, PortFalse: true}
	for i, b := range branches {
		if i > 0 {
			port := CanonicalPort(b.Port)
			switch {
			case port == "":
				errs = append(errs, fmt.Errorf("else-if branch %d has no port", i))
			case seen[port]:
				errs = append(errs, fmt.Errorf("else-if branch %d reuses port %q", i, port))
			default:
				seen[port] = true
			}
		}
		if len(b.Clauses) == 0 && strings.TrimSpace(b.Expression) == "" {
			errs = append(errs, fmt.Errorf("branch %d has no clauses or expression", i))
		}
		for j, c := range b.Clauses {
			if strings.TrimSpace(c.Field) == "" {
				errs = append(errs, fmt.Errorf("branch %d clause %d has no field", i, j))
			}
			if !c.Operator.Valid() {
				errs = append(errs, fmt.Errorf("branch %d clause %d: unknown operator %q", i, j, c.Operator))
			}
		}
	}
	return errs
}

// Selection is the outcome of evaluating a condition's branches.
type Selection struct {
	// Port is the canonical port of the selected branch.
	Port string

	// Index is the selected branch index, or ElseIndex.
	Index int
}

// Else reports whether the else-branch was selected.
func (s Selection) Else() bool { return s.Index == ElseIndex }

// Evaluator selects condition branches.
// The zero value is not usable; create with NewEvaluator.
type Evaluator struct {
	exprs *expr.Evaluator
}

// NewEvaluator creates an Evaluator. Expression-form branches are evaluated
// with strict variable resolution, so a reference to a missing field is an
// evaluation error and the branch does not match.
func NewEvaluator(opts ...expr.Option) *Evaluator {
	return &Evaluator{
		exprs: expr.New(append([]expr.Option{expr.WithStrictVariables()}, opts...)...),
	}
}

// Select evaluates branches in declared order against vars and returns the
// first match, falling back to the else-branch. Exactly one branch is
// always selected and evaluation never fails.
func (e *Evaluator) Select(branches []Branch, vars map[string]any) Selection {
	for i, b := range branches {
		if e.Matches(b, vars) {
			return Selection{Port: PortFor(branches, i), Index: i}
		}
	}
	return Selection{Port: PortFalse, Index: ElseIndex}
}

// Matches reports whether every clause of b holds and its expression, if
// any, evaluates true.
func (e *Evaluator) Matches(b Branch, vars map[string]any) bool {
	if len(b.Clauses) == 0 && strings.TrimSpace(b.Expression) == "" {
		return false
	}
	for _, c := range b.Clauses {
		if !EvaluateClause(c, vars) {
			return false
		}
	}
	if strings.TrimSpace(b.Expression) != "" {
		ok, err := e.exprs.Evaluate(b.Expression, vars)
		if err != nil {
			return false
		}
		return ok
	}
	return true
}

// EvaluateClause evaluates one clause against vars. A field that does not
// resolve makes the clause false, whatever the operator.
func EvaluateClause(c Clause, vars map[string]any) bool {
	val, ok := expr.Lookup(c.Field, vars)
	if !ok {
		return false
	}
	op, err := ParseOperator(string(c.Operator))
	if err != nil {
		return false
	}
	if op == IsEmpty {
		return expr.IsEmpty(val)
	}
	result, err := expr.Compare(val, c.Value, op.symbol())
	if err != nil {
		return false
	}
	return result
}
