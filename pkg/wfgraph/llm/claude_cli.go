package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
)

// ClaudeCLI implements Client using the Claude CLI binary.
type ClaudeCLI struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI creates a new Claude CLI client.
// Assumes "claude" is available in PATH unless overridden with WithClaudePath.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{
		path:    "claude",
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithWorkdir sets the working directory for claude commands.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.workdir = dir }
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) { c.timeout = d }
}

// Complete implements Client. Failures are returned as categorized errors
// so RetryClient can tell rate limits and timeouts from permanent failures.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &fgerrors.TimeoutError{Operation: "claude complete", Duration: time.Since(start)}
		}
		if ctx.Err() != nil {
			return nil, fgerrors.Permanent(ctx.Err(), "claude complete")
		}

		errMsg := strings.TrimSpace(stderr.String())
		cause := fmt.Errorf("%w: %s", err, errMsg)
		if isRetryableError(errMsg) {
			return nil, fgerrors.Transient(cause, "claude complete")
		}
		return nil, fgerrors.Permanent(cause, "claude complete")
	}

	resp := c.parseResponse(stdout.Bytes(), req)
	resp.Duration = time.Since(start)
	return resp, nil
}

// buildArgs constructs CLI arguments from a request.
func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print", "--output-format", "json"}

	system := req.SystemPrompt
	if req.JSON {
		system = strings.TrimSpace(system + "\nRespond with a single JSON value and nothing else.")
	}
	if system != "" {
		args = append(args, "--system-prompt", system)
	}

	// Model priority: request > client default
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}

	// The CLI takes a single prompt, so earlier assistant turns are inlined
	// as context between user turns.
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		case RoleAssistant:
			if prompt.Len() > 0 {
				prompt.WriteString("\nAssistant: ")
				prompt.WriteString(msg.Content)
				prompt.WriteString("\n\nUser: ")
			}
		}
	}
	if p := strings.TrimSpace(prompt.String()); p != "" {
		args = append(args, "-p", p)
	}

	return args
}

// cliResult is the envelope printed by --output-format json.
type cliResult struct {
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// parseResponse extracts response data from CLI output. Output that is not
// the JSON envelope is taken as plain text.
func (c *ClaudeCLI) parseResponse(data []byte, req CompletionRequest) *CompletionResponse {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp := &CompletionResponse{
		Content:      strings.TrimSpace(string(data)),
		FinishReason: "stop",
		Model:        model,
	}

	var env cliResult
	if err := json.Unmarshal(data, &env); err != nil || env.Result == "" {
		return resp
	}
	resp.Content = strings.TrimSpace(env.Result)
	if env.StopReason != "" {
		resp.FinishReason = env.StopReason
	}
	resp.Usage = TokenUsage{
		InputTokens:  env.Usage.InputTokens,
		OutputTokens: env.Usage.OutputTokens,
		TotalTokens:  env.Usage.InputTokens + env.Usage.OutputTokens,
	}
	return resp
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}
