// Package condition decides which branch of a condition node is live.
//
// A condition carries an ordered list of branches. The first is the
// if-branch (port "true", also spelled "if"), later ones are else-if
// branches with their own ports, and an implicit else-branch (port
// "false", also spelled "else") matches when nothing else does:
//
//	branches := []condition.Branch{
//	    {Clauses: []condition.Clause{{Field: "score", Operator: condition.GreaterThan, Value: 5}}},
//	}
//	sel := condition.NewEvaluator().Select(branches, map[string]any{"score": 10})
//	// sel.Port == "true"
//
// Clauses use the comparison rules of package expr. A clause whose field
// cannot be resolved is false, so a missing field falls through to the
// next branch instead of failing.
package condition
