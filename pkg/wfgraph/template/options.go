package template

// MissingAction specifies how to handle placeholders whose field reference
// does not resolve.
type MissingAction int

const (
	// MissingKeep keeps the placeholder as-is when the field is not found.
	// This is the default behavior.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with an empty string when
	// the field is not found. Template nodes render with this action.
	MissingEmpty

	// MissingError returns an error when a field is not found.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how unresolved placeholders are handled.
//
// Default: MissingKeep (keep placeholder as-is)
//
// Example:
//
//	exp := NewExpander(WithMissingAction(MissingError))
//	_, err := exp.Expand("{{missing}}", nil)
//	// err: "undefined field: missing"
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithTypedPlaceholders controls whether ExpandMap and ExpandValue keep the
// original type of a value when a string consists of exactly one
// placeholder. With it enabled, {"limit": "{{n}}"} and n=5 expands to the
// integer 5 rather than the string "5".
//
// Default: true
func WithTypedPlaceholders(enabled bool) Option {
	return func(e *Expander) {
		e.typed = enabled
	}
}
