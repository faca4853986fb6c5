// Package template substitutes {{fieldRef}} placeholders with values
// resolved from a node's inputs.
//
// A field reference is a dot path resolved with expr.Lookup:
//
//	template.Render("Hi {{user.name}}, you have {{count}} items", vars)
//
// Render and RenderMap are what workflow nodes use: unresolved placeholders
// become the empty string and rendering never fails. An Expander gives
// control over missing fields (keep, empty, error) for other callers:
//
//	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
//	out, err := exp.Expand("{{host}}/api", vars)
//
// When a map or slice value is exactly one placeholder, ExpandMap keeps the
// referenced value's type, so tool arguments like {"limit": "{{n}}"} stay
// numeric.
package template
