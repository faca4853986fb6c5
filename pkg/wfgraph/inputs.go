package wfgraph

import (
	"maps"
	"slices"
)

// Inputs are the values a node receives from its live predecessors.
//
// Each live edge contributes its source's output under the edge's target
// port, or under the source node id when the edge has no target port. The
// first edge to claim a key wins.
type Inputs struct {
	keys   []string
	values map[string]any
	named  bool
	vars   map[string]any
}

// add records v under key unless the key is taken.
func (in *Inputs) add(key string, v any, named bool) {
	if in.values == nil {
		in.values = make(map[string]any)
	}
	if _, taken := in.values[key]; taken {
		return
	}
	in.keys = append(in.keys, key)
	in.values[key] = v
	in.named = in.named || named
}

// seal builds the evaluation view: the fields of every map-valued input,
// first writer winning, overlaid by the keyed inputs themselves. Both
// "count" and "input.count" resolve when input produced {"count": 3}.
func (in *Inputs) seal() {
	vars := make(map[string]any)
	for _, k := range in.keys {
		if m, ok := in.values[k].(map[string]any); ok {
			for field, v := range m {
				if _, taken := vars[field]; !taken {
					vars[field] = v
				}
			}
		}
	}
	maps.Copy(vars, in.values)
	in.vars = vars
}

// Get returns the input delivered under key.
func (in Inputs) Get(key string) (any, bool) {
	v, ok := in.values[key]
	return v, ok
}

// Keys returns the input keys in edge order.
func (in Inputs) Keys() []string {
	return slices.Clone(in.keys)
}

// Len returns the number of inputs.
func (in Inputs) Len() int {
	return len(in.keys)
}

// Vars returns the evaluation view that conditions, templates and
// argument placeholders resolve against. Callers must not modify it.
func (in Inputs) Vars() map[string]any {
	if in.vars == nil {
		return map[string]any{}
	}
	return in.vars
}

// gather returns the node's inputs as one value: the single input itself
// when there is exactly one and it arrived without a target port,
// otherwise a map keyed by input key.
func (in Inputs) gather() any {
	if len(in.keys) == 1 && !in.named {
		return in.values[in.keys[0]]
	}
	return maps.Clone(in.values)
}
