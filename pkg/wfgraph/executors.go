package wfgraph

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph/condition"
	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/expr"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/httpcap"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/llm"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/template"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/tool"
)

// nodeResult is what an executor hands back to the scheduler.
type nodeResult struct {
	output any

	// branch is the selected port of a Condition node.
	branch string
}

// executor runs nodes. It holds no run state: every call works only on
// its arguments, so calls for different nodes may run concurrently.
type executor struct {
	payload    any
	conditions *condition.Evaluator
}

// execute runs n against its inputs. This is the only place that switches
// on the config variant.
func (x *executor) execute(ctx *executionContext, n Node, in Inputs) (nodeResult, error) {
	switch cfg := n.Config.(type) {
	case InputConfig:
		return nodeResult{output: x.payload}, nil
	case OutputConfig:
		return nodeResult{output: executeOutput(cfg, in)}, nil
	case LLMConfig:
		out, err := executeLLM(ctx, cfg, in)
		return nodeResult{output: out}, err
	case ToolConfig:
		out, err := executeTool(ctx, cfg, in)
		return nodeResult{output: out}, err
	case ConditionConfig:
		sel := x.conditions.Select(cfg.Branches, in.Vars())
		return nodeResult{output: maps.Clone(in.Vars()), branch: sel.Port}, nil
	case HTTPConfig:
		out, err := executeHTTP(ctx, cfg, in)
		return nodeResult{output: out}, err
	case TemplateConfig:
		return nodeResult{output: template.Render(cfg.Template, in.Vars())}, nil
	case NoteConfig:
		return nodeResult{}, ErrNotExecutable
	default:
		return nodeResult{}, fmt.Errorf("unsupported node config %T", cfg)
	}
}

func executeOutput(cfg OutputConfig, in Inputs) any {
	if cfg.Field != "" {
		v, _ := expr.Lookup(cfg.Field, in.Vars())
		return v
	}
	return in.gather()
}

func executeLLM(ctx *executionContext, cfg LLMConfig, in Inputs) (any, error) {
	client := ctx.LLM()
	if client == nil {
		return nil, &ExternalCallError{Capability: "llm", Target: cfg.Model, Err: ErrCapabilityMissing}
	}

	vars := in.Vars()
	req := llm.UserPrompt(cfg.Model, template.Render(cfg.Prompt, vars))
	req.SystemPrompt = template.Render(cfg.SystemPrompt, vars)
	req.MaxTokens = cfg.MaxTokens
	req.Temperature = cfg.Temperature
	req.JSON = cfg.JSON

	resp, err := client.Complete(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("empty completion response")
	}
	if err != nil {
		return nil, &ExternalCallError{Capability: "llm", Target: cfg.Model, Err: err}
	}

	out := map[string]any{
		"text":         resp.Content,
		"model":        resp.Model,
		"finishReason": resp.FinishReason,
		"usage": map[string]any{
			"inputTokens":  resp.Usage.InputTokens,
			"outputTokens": resp.Usage.OutputTokens,
			"totalTokens":  resp.Usage.TotalTokens,
		},
	}
	if cfg.JSON {
		data, err := parseJSONAnswer(resp.Content)
		if err != nil {
			return nil, err
		}
		out["data"] = data
	}
	return out, nil
}

// parseJSONAnswer decodes a completion that should be JSON, tolerating a
// surrounding markdown code fence.
func parseJSONAnswer(content string) (any, error) {
	s := strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		rest = strings.TrimPrefix(rest, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}

	var data any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, &fgerrors.JSONParseError{Input: truncate(content, 200), Message: err.Error()}
	}
	return data, nil
}

func executeTool(ctx *executionContext, cfg ToolConfig, in Inputs) (any, error) {
	ref := tool.Ref{Server: cfg.Server, Tool: cfg.Tool}.String()
	invoker := ctx.Tools()
	if invoker == nil {
		return nil, &ExternalCallError{Capability: "tool", Target: ref, Err: ErrCapabilityMissing}
	}

	args := maps.Clone(in.Vars())
	if cfg.Args != nil {
		args = template.RenderMap(cfg.Args, in.Vars())
	}

	result, err := invoker.Invoke(ctx, cfg.Server, cfg.Tool, args)
	if err != nil {
		return nil, &ExternalCallError{Capability: "tool", Target: ref, Err: err}
	}
	return result, nil
}

func executeHTTP(ctx *executionContext, cfg HTTPConfig, in Inputs) (any, error) {
	vars := in.Vars()
	req := httpcap.Request{
		Method: cfg.method(),
		URL:    template.Render(cfg.URL, vars),
	}
	if len(cfg.Headers) > 0 {
		req.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			req.Headers[k] = template.Render(v, vars)
		}
	}
	if cfg.Body != "" {
		req.Body = []byte(template.Render(cfg.Body, vars))
	}

	target := req.Method + " " + req.URL
	doer := ctx.HTTP()
	if doer == nil {
		return nil, &ExternalCallError{Capability: "http", Target: target, Err: ErrCapabilityMissing}
	}

	resp, err := doer.Do(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("empty http response")
	}
	if err != nil {
		return nil, &ExternalCallError{Capability: "http", Target: target, Err: err}
	}
	if !resp.OK() && !cfg.AllowNon2xx {
		return nil, &ExternalCallError{
			Capability: "http",
			Target:     target,
			Err: &fgerrors.HTTPError{
				StatusCode: resp.Status,
				Message:    truncate(string(resp.Body), 200),
				Endpoint:   req.URL,
			},
		}
	}

	headers := make(map[string]any, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	out := map[string]any{
		"status":  resp.Status,
		"headers": headers,
		"body":    string(resp.Body),
	}
	if looksLikeJSON(resp) {
		var decoded any
		if err := json.Unmarshal(resp.Body, &decoded); err == nil {
			out["json"] = decoded
		}
	}
	return out, nil
}

func looksLikeJSON(resp *httpcap.Response) bool {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "Content-Type") && strings.Contains(strings.ToLower(v), "json") {
			return true
		}
	}
	body := strings.TrimSpace(string(resp.Body))
	return strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
