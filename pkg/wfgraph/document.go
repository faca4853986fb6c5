package wfgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// nodeDocument is the serialized form of a Node. The "data" object holds
// the kind-specific configuration.
type nodeDocument struct {
	ID       string          `json:"id"`
	Type     NodeKind        `json:"type"`
	Label    string          `json:"label,omitempty"`
	Position *Position       `json:"position,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	doc := nodeDocument{
		ID:       n.ID,
		Type:     n.Kind,
		Label:    n.Label,
		Position: n.Position,
	}
	if n.Config != nil {
		data, err := json.Marshal(n.Config)
		if err != nil {
			return nil, fmt.Errorf("node %s: encode data: %w", n.ID, err)
		}
		doc.Data = data
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler. The "data" object is decoded
// into the config variant named by "type". A node of unknown type decodes
// with a nil Config so Validate can report it with every other problem.
func (n *Node) UnmarshalJSON(b []byte) error {
	var doc nodeDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	kind := NodeKind(strings.ToLower(strings.TrimSpace(string(doc.Type))))
	cfg, err := decodeConfig(kind, doc.Data)
	if err != nil {
		return fmt.Errorf("node %s: decode %s data: %w", doc.ID, kind, err)
	}

	*n = Node{
		ID:       doc.ID,
		Kind:     kind,
		Label:    doc.Label,
		Position: doc.Position,
		Config:   cfg,
	}
	return nil
}

func decodeConfig(kind NodeKind, data json.RawMessage) (NodeConfig, error) {
	switch kind {
	case KindInput:
		return decodeAs[InputConfig](data)
	case KindOutput:
		return decodeAs[OutputConfig](data)
	case KindLLM:
		return decodeAs[LLMConfig](data)
	case KindTool:
		return decodeAs[ToolConfig](data)
	case KindCondition:
		return decodeAs[ConditionConfig](data)
	case KindHTTP:
		return decodeAs[HTTPConfig](data)
	case KindTemplate:
		return decodeAs[TemplateConfig](data)
	case KindNote:
		return decodeAs[NoteConfig](data)
	}
	return nil, nil
}

func decodeAs[T NodeConfig](data json.RawMessage) (NodeConfig, error) {
	var cfg T
	if len(data) == 0 || string(data) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseGraph decodes a JSON graph document:
//
//	{
//	  "id": "triage",
//	  "nodes": [{"id": "in", "type": "input", "data": {}}, ...],
//	  "edges": [{"source": "check", "sourceHandle": "true", "target": "out"}, ...]
//	}
//
// The result is not validated; Compile does that.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	return &g, nil
}

// ParseGraphYAML decodes a graph document written in YAML. It accepts the
// same shape as ParseGraph.
func ParseGraphYAML(data []byte) (*Graph, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph yaml: %w", err)
	}
	// Round-trip through JSON so both formats share one decoder.
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse graph yaml: %w", err)
	}
	return ParseGraph(b)
}

// LoadGraphFile reads a graph document. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
func LoadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseGraphYAML(data)
	default:
		return ParseGraph(data)
	}
}
