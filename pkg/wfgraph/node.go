package wfgraph

import (
	"strings"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
)

// NodeKind identifies what a node does.
type NodeKind string

// Node kinds.
const (
	KindInput     NodeKind = "input"
	KindOutput    NodeKind = "output"
	KindLLM       NodeKind = "llm"
	KindTool      NodeKind = "tool"
	KindCondition NodeKind = "condition"
	KindHTTP      NodeKind = "http"
	KindTemplate  NodeKind = "template"
	KindNote      NodeKind = "note"
)

// Valid reports whether k is a known kind.
func (k NodeKind) Valid() bool {
	switch k {
	case KindInput, KindOutput, KindLLM, KindTool, KindCondition, KindHTTP, KindTemplate, KindNote:
		return true
	}
	return false
}

// Functional reports whether nodes of this kind take part in execution.
// Notes are documentation only.
func (k NodeKind) Functional() bool {
	return k.Valid() && k != KindNote
}

// NodeConfig is the kind-specific configuration of a node. It is a closed
// set: the variants are the *Config types in this package.
type NodeConfig interface {
	// Kind returns the node kind this configuration belongs to.
	Kind() NodeKind

	nodeConfig()
}

// InputConfig configures the Input node. The Input node returns the run's
// initial payload unchanged.
type InputConfig struct{}

// OutputConfig configures an Output node.
type OutputConfig struct {
	// Field, if set, is a dot path into the node's inputs that becomes the
	// run output. Otherwise the output is the single resolved input, or a
	// map of every resolved input keyed by input key.
	Field string `json:"field,omitempty"`
}

// LLMConfig configures an LLM node.
type LLMConfig struct {
	// Model is the model identifier passed to the completion capability.
	Model string `json:"model,omitempty"`

	// Prompt and SystemPrompt are templates rendered against the node's
	// inputs with {{field}} placeholders.
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"systemPrompt,omitempty"`

	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// JSON asks for a JSON answer and parses it into the "data" field of
	// the node's output.
	JSON bool `json:"json,omitempty"`
}

// ToolConfig configures a Tool node.
type ToolConfig struct {
	Server string `json:"server"`
	Tool   string `json:"tool"`

	// Args are the tool arguments. String values may hold {{field}}
	// placeholders; a value that is exactly one placeholder keeps the
	// referenced value's type. With no Args the node's merged inputs are
	// passed as arguments.
	Args map[string]any `json:"args,omitempty"`
}

// ConditionConfig configures a Condition node.
type ConditionConfig struct {
	// Branches are evaluated in order. The first is the if-branch and
	// answers on port "true"; later ones are else-if branches with their
	// own ports. When none match the else-branch, port "false", is taken.
	Branches []condition.Branch `json:"branches"`
}

// HTTPConfig configures an HTTP node. URL, header values and Body are
// templates rendered against the node's inputs.
type HTTPConfig struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// AllowNon2xx makes non-2xx responses succeed. By default they fail
	// the node.
	AllowNon2xx bool `json:"allowNon2xx,omitempty"`
}

// method returns the upper-cased method, defaulting to GET.
func (c HTTPConfig) method() string {
	if c.Method == "" {
		return "GET"
	}
	return strings.ToUpper(c.Method)
}

// TemplateConfig configures a Template node.
type TemplateConfig struct {
	// Template is rendered against the node's inputs. Unresolved
	// placeholders become empty strings.
	Template string `json:"template"`
}

// NoteConfig is a documentation node. Notes are never executed.
type NoteConfig struct {
	Text string `json:"text,omitempty"`
}

func (InputConfig) Kind() NodeKind { return KindInput }
func (OutputConfig) Kind() NodeKind { return KindOutput }
func (LLMConfig) Kind() NodeKind { return KindLLM }
func (ToolConfig) Kind() NodeKind { return KindTool }
func (ConditionConfig) Kind() NodeKind { return KindCondition }
func (HTTPConfig) Kind() NodeKind { return KindHTTP }
func (TemplateConfig) Kind() NodeKind { return KindTemplate }
func (NoteConfig) Kind() NodeKind { return KindNote }

func (InputConfig) nodeConfig() {}
func (OutputConfig) nodeConfig() {}
func (LLMConfig) nodeConfig() {}
func (ToolConfig) nodeConfig() {}
func (ConditionConfig) nodeConfig() {}
func (HTTPConfig) nodeConfig() {}
func (TemplateConfig) nodeConfig() {}
func (NoteConfig) nodeConfig() {}
