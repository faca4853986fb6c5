package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		client   *ClaudeCLI
		req      CompletionRequest
		contains []string
		excludes []string
	}{
		{
			name:     "basic request",
			client:   NewClaudeCLI(),
			req:      UserPrompt("", "Hello"),
			contains: []string{"--print", "--output-format", "json", "-p", "Hello"},
			excludes: []string{"--model", "--system-prompt"},
		},
		{
			name:   "with system prompt",
			client: NewClaudeCLI(),
			req: CompletionRequest{
				SystemPrompt: "Be helpful",
				Messages:     []Message{{Role: RoleUser, Content: "Hi"}},
			},
			contains: []string{"--system-prompt", "Be helpful"},
		},
		{
			name:     "model from client",
			client:   NewClaudeCLI(WithModel("claude-sonnet")),
			req:      UserPrompt("", "Test"),
			contains: []string{"--model", "claude-sonnet"},
		},
		{
			name:     "model from request overrides client",
			client:   NewClaudeCLI(WithModel("default-model")),
			req:      UserPrompt("request-model", "Test"),
			contains: []string{"request-model"},
			excludes: []string{"default-model"},
		},
		{
			name:   "max tokens",
			client: NewClaudeCLI(),
			req: CompletionRequest{
				MaxTokens: 1000,
				Messages:  []Message{{Role: RoleUser, Content: "Test"}},
			},
			contains: []string{"--max-tokens", "1000"},
		},
		{
			name:     "json mode adds instruction",
			client:   NewClaudeCLI(),
			req:      CompletionRequest{JSON: true, Messages: []Message{{Role: RoleUser, Content: "x"}}},
			contains: []string{"--system-prompt", "Respond with a single JSON value and nothing else."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.client.buildArgs(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, args, unwanted)
			}
		})
	}
}

func TestBuildArgs_ConversationHistory(t *testing.T) {
	c := NewClaudeCLI()
	args := c.buildArgs(CompletionRequest{Messages: []Message{
		{Role: RoleUser, Content: "What is 2+2?"},
		{Role: RoleAssistant, Content: "4"},
		{Role: RoleUser, Content: "Double it"},
	}})

	prompt := args[len(args)-1]
	assert.Equal(t, "-p", args[len(args)-2])
	assert.Contains(t, prompt, "What is 2+2?")
	assert.Contains(t, prompt, "Assistant: 4")
	assert.Contains(t, prompt, "User: Double it")
}

func TestParseResponse(t *testing.T) {
	c := NewClaudeCLI(WithModel("default"))

	resp := c.parseResponse([]byte(`{"result":" hi there ","stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`), CompletionRequest{})
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, "default", resp.Model)
	assert.Equal(t, TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}, resp.Usage)

	resp = c.parseResponse([]byte("  plain text answer \n"), CompletionRequest{Model: "m"})
	assert.Equal(t, "plain text answer", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "m", resp.Model)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError("Error: Rate limit exceeded"))
	assert.True(t, isRetryableError("request timeout"))
	assert.True(t, isRetryableError("API overloaded (529)"))
	assert.False(t, isRetryableError("invalid api key"))
	assert.False(t, isRetryableError(""))
}

func TestCompletionRequest_Prompt(t *testing.T) {
	req := CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}}
	assert.Equal(t, "a\nc", req.Prompt())
}
