package condition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreAbove(n int) Branch {
	return Branch{Clauses: []Clause{{Field: "score", Operator: GreaterThan, Value: n}}}
}

func TestEvaluator_Select_IfElse(t *testing.T) {
	branches := []Branch{scoreAbove(5)}
	e := NewEvaluator()

	tests := []struct {
		name string
		vars map[string]any
		want string
	}{
		{"above threshold selects if", map[string]any{"score": 10}, PortTrue},
		{"below threshold selects else", map[string]any{"score": 3}, PortFalse},
		{"missing field selects else", map[string]any{}, PortFalse},
		{"nil vars selects else", nil, PortFalse},
		{"numeric string compares numerically", map[string]any{"score": "12"}, PortTrue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := e.Select(branches, tt.vars)
			assert.Equal(t, tt.want, sel.Port)
			assert.Equal(t, tt.want == PortFalse, sel.Else())
		})
	}
}

func TestEvaluator_Select_ElseIfOrder(t *testing.T) {
	branches := []Branch{
		scoreAbove(90),
		{Port: "good", Clauses: []Clause{{Field: "score", Operator: GreaterThan, Value: 70}}},
		{Port: "ok", Clauses: []Clause{{Field: "score", Operator: GreaterThan, Value: 50}}},
	}
	e := NewEvaluator()

	assert.Equal(t, Selection{Port: PortTrue, Index: 0}, e.Select(branches, map[string]any{"score": 95}))
	assert.Equal(t, Selection{Port: "good", Index: 1}, e.Select(branches, map[string]any{"score": 80}))
	assert.Equal(t, Selection{Port: "ok", Index: 2}, e.Select(branches, map[string]any{"score": 60}))
	assert.Equal(t, Selection{Port: PortFalse, Index: ElseIndex}, e.Select(branches, map[string]any{"score": 10}))
}

func TestEvaluator_Select_ClausesAreConjunctive(t *testing.T) {
	branches := []Branch{{Clauses: []Clause{
		{Field: "status", Operator: Equals, Value: "open"},
		{Field: "owner", Operator: IsEmpty},
	}}}
	e := NewEvaluator()

	assert.Equal(t, PortTrue, e.Select(branches, map[string]any{"status": "open", "owner": ""}).Port)
	assert.Equal(t, PortFalse, e.Select(branches, map[string]any{"status": "open", "owner": "ada"}).Port)
	assert.Equal(t, PortFalse, e.Select(branches, map[string]any{"status": "closed", "owner": ""}).Port)
}

func TestEvaluator_Select_Expression(t *testing.T) {
	e := NewEvaluator()
	branches := []Branch{{Expression: "count > 0 and mode == 'fast'"}}

	assert.Equal(t, PortTrue, e.Select(branches, map[string]any{"count": 3, "mode": "fast"}).Port)
	assert.Equal(t, PortFalse, e.Select(branches, map[string]any{"count": 0, "mode": "fast"}).Port)
	// Unresolved references are errors, and errors never match.
	assert.Equal(t, PortFalse, e.Select(branches, map[string]any{"count": 3}).Port)
}

func TestEvaluator_EmptyBranchNeverMatches(t *testing.T) {
	e := NewEvaluator()
	assert.False(t, e.Matches(Branch{}, map[string]any{"x": 1}))
	assert.Equal(t, PortFalse, e.Select([]Branch{{}}, nil).Port)
	assert.Equal(t, PortFalse, e.Select(nil, nil).Port)
}

func TestEvaluateClause(t *testing.T) {
	vars := map[string]any{
		"name":  "release-42",
		"count": 3,
		"tags":  []any{"go", "wf"},
		"empty": []any{},
		"user":  map[string]any{"age": 30},
	}

	tests := []struct {
		name   string
		clause Clause
		want   bool
	}{
		{"equals string", Clause{"name", Equals, "release-42"}, true},
		{"equals number across types", Clause{"count", Equals, 3.0}, true},
		{"not equals", Clause{"count", NotEquals, 4}, true},
		{"contains substring", Clause{"name", Contains, "42"}, true},
		{"contains element", Clause{"tags", Contains, "wf"}, true},
		{"contains missing element", Clause{"tags", Contains, "rust"}, false},
		{"greater than nested", Clause{"user.age", GreaterThan, 18}, true},
		{"less than", Clause{"count", LessThan, 2}, false},
		{"greater or equal", Clause{"count", GreaterThanOrEqual, 3}, true},
		{"less or equal", Clause{"count", LessThanOrEqual, 2}, false},
		{"is empty slice", Clause{Field: "empty", Operator: IsEmpty}, true},
		{"is empty non-empty", Clause{Field: "name", Operator: IsEmpty}, false},
		{"symbol alias", Clause{"count", Operator(">"), 1}, true},
		{"camel alias", Clause{"count", Operator("notEquals"), 1}, true},
		{"missing field equals", Clause{"nope", Equals, nil}, false},
		{"missing field not equals", Clause{"nope", NotEquals, "x"}, false},
		{"missing field is empty", Clause{Field: "nope", Operator: IsEmpty}, false},
		{"unknown operator", Clause{"count", Operator("~"), 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateClause(tt.clause, vars))
		})
	}
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{
		"equals":          Equals,
		" == ":            Equals,
		"NOT_EQUALS":      NotEquals,
		"greaterThan":     GreaterThan,
		"<":               LessThan,
		"isEmpty":         IsEmpty,
		"lte":             LessThanOrEqual,
		"lessThanOrEqual": LessThanOrEqual,
	} {
		got, err := ParseOperator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOperator("matches")
	assert.Error(t, err)
}

func TestPorts(t *testing.T) {
	branches := []Branch{
		scoreAbove(1),
		{Port: "mid", Clauses: []Clause{{Field: "x", Operator: IsEmpty}}},
	}
	assert.Equal(t, []string{PortTrue, "mid", PortFalse}, Ports(branches))
	assert.Equal(t, PortTrue, CanonicalPort(" IF "))
	assert.Equal(t, PortFalse, CanonicalPort("else"))
	assert.Equal(t, "mid", CanonicalPort("mid"))
	assert.Equal(t, PortFalse, PortFor(branches, ElseIndex))
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate([]Branch{scoreAbove(1)}))

	errs := Validate(nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no if-branch")

	errs = Validate([]Branch{
		{Clauses: []Clause{{Field: "", Operator: Operator("bogus")}}},
		{Port: "", Expression: "x"},
		{Port: "else", Expression: "x"},
		{Port: "a", Expression: "x"},
		{Port: "a", Expression: "x"},
	})
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0].Error(), "no field")
	assert.Contains(t, errs[1].Error(), "unknown operator")
	assert.Contains(t, errs[2].Error(), "no port")
	assert.Contains(t, errs[3].Error(), "reuses port \"false\"")
	assert.Contains(t, errs[4].Error(), "reuses port \"a\"")

	errs = Validate([]Branch{{}, {Port: "b", Clauses: []Clause{}}, {Port: "c", Expression: "  "}})
	require.Len(t, errs, 3)
	for i, err := range errs {
		assert.Contains(t, err.Error(), fmt.Sprintf("branch %d has no clauses or expression", i))
	}
}

func TestClause_String(t *testing.T) {
	assert.Equal(t, "score greater_than 5", Clause{"score", GreaterThan, 5}.String())
	assert.Equal(t, "owner is_empty", Clause{Field: "owner", Operator: IsEmpty}.String())
}
