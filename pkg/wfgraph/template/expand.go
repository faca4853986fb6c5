package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/expr"
)

// placeholderPattern matches {{ field.path }} with optional inner spaces.
// Any text without braces is a field reference; expr.Lookup decides whether
// it resolves, so {{ prénom }} and {{first name}} are placeholders too.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Expander substitutes {{fieldRef}} placeholders in strings.
//
// Create with NewExpander() and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	typed         bool
}

// NewExpander creates a new Expander with the given options.
//
// Default configuration:
//   - MissingAction: MissingKeep (keep placeholders as-is)
//   - TypedPlaceholders: enabled
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		typed:         true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand substitutes placeholders in s using vars. Field references are
// resolved with expr.Lookup, so {{result.score}} reaches into nested maps.
// Non-string values are rendered with expr.Stringify (maps and slices as JSON).
//
// Errors are only returned when MissingAction is MissingError and
// a field is not found.
//
// Example:
//
//	exp := NewExpander()
//	result, err := exp.Expand("Hello {{user.name}}", map[string]any{
//	    "user": map[string]any{"name": "World"},
//	})
//	// result: "Hello World"
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := expr.Lookup(path, vars); ok {
			return expr.Stringify(val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, path)
			return match
		default: // MissingKeep
			return match
		}
	})

	if len(missing) > 0 {
		return result, &UndefinedFieldError{Names: missing}
	}
	return result, nil
}

// MustExpand expands placeholders in s and panics on error.
//
// Use this when you're certain all fields are present or when using
// MissingKeep/MissingEmpty which never return errors.
func (e *Expander) MustExpand(s string, vars map[string]any) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

// ExpandMap expands placeholders in every string value of m, recursing into
// nested maps and slices. Non-string scalars are copied as-is.
// On error (with MissingError), returns nil and the first error.
//
// Example:
//
//	exp := NewExpander()
//	args, _ := exp.ExpandMap(map[string]any{
//	    "query": "{{question}}",
//	    "limit": "{{limit}}", // keeps limit's type
//	}, vars)
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		expanded, err := e.ExpandValue(v, vars)
		if err != nil {
			return nil, err
		}
		result[k] = expanded
	}
	return result, nil
}

// ExpandValue expands a single structured value.
func (e *Expander) ExpandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		if e.typed {
			if path, ok := soloPlaceholder(val); ok {
				if resolved, found := expr.Lookup(path, vars); found {
					return resolved, nil
				}
			}
		}
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := e.ExpandValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

// Fields returns the distinct field references used in s, in order of
// first appearance.
func Fields(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	seen := make(map[string]bool, len(matches))
	var fields []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			fields = append(fields, m[1])
		}
	}
	return fields
}

// soloPlaceholder reports whether s is exactly one placeholder.
func soloPlaceholder(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	loc := placeholderPattern.FindStringSubmatchIndex(trimmed)
	if loc == nil || loc[0] != 0 || loc[1] != len(trimmed) {
		return "", false
	}
	return trimmed[loc[2]:loc[3]], true
}

// UndefinedFieldError is returned when MissingError is set and
// one or more placeholders do not resolve.
type UndefinedFieldError struct {
	// Names is the list of unresolved field references.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedFieldError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined field: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined fields: %s", strings.Join(e.Names, ", "))
}

// renderer is the expander used by template nodes and prompt rendering.
var renderer = NewExpander(WithMissingAction(MissingEmpty))

// Render substitutes placeholders in s, replacing unresolved ones with the
// empty string. It never fails.
//
// Example:
//
//	template.Render("Count: {{count}}", map[string]any{"count": 3})
//	// "Count: 3"
func Render(s string, vars map[string]any) string {
	result, _ := renderer.Expand(s, vars)
	return result
}

// RenderMap expands placeholders in m the way Render does, keeping the type
// of values referenced by a lone placeholder.
func RenderMap(m map[string]any, vars map[string]any) map[string]any {
	result, _ := renderer.ExpandMap(m, vars)
	return result
}
