/*
Package expr evaluates the small boolean expression language used by
condition nodes, and supplies the value helpers (dot-path lookup,
truthiness, numeric coercion) shared by the condition and template packages.

# Expression Syntax

	<expr> := <expr> 'or' <expr>
	        | <expr> 'and' <expr>
	        | 'not' <expr>
	        | '!' <expr>
	        | <value> <op> <value>
	        | <value>

	<op>    := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains'
	<value> := 'string' | "string" | number | true | false | null | path

"or" binds loosest, then "and", then negation. A path is a dot-separated
reference into the variables, such as result.score or items.0.

# Comparison

Equality is numeric when both sides are numbers (or numeric strings) and
string-based otherwise, so count == 5, count == 5.0 and count == '5' agree.
Ordering is numeric for two numbers and lexical for two non-numbers; a
number never orders against a non-number. nil equals only nil.

contains tests substrings on strings, element membership on slices and key
presence on maps.

# Example

	vars := map[string]any{"result": map[string]any{"score": 0.9}}
	ok, _ := expr.Eval("result.score > 0.8 and result.score <= 1", vars) // true

Unknown bare identifiers resolve to their own text by default. Use
WithStrictVariables to report them as ErrUnresolved instead.
*/
package expr
