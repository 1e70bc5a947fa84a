package llm

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"

	// Model identifiers for the two supported variants.
	ModelFastChat  = "deepseek-chat"
	ModelReasoning = "deepseek-reasoner"

	requestTimeout = 120 * time.Second
)

// Message is one turn in a chat-completion payload. Content may be empty
// on assistant turns that only carry tool calls.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a model-emitted request to run a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// SamplingParams carries the per-request generation knobs.
type SamplingParams struct {
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Completion is the normalized provider response.
type Completion struct {
	Message      Message
	FinishReason string
}

// Completer is the dispatcher-facing capability of the client.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, tools []ToolDefinition, params SamplingParams) (Completion, error)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	api *openai.Client
}

// NewClient builds a client for the given credential. The base URL comes
// from LLM_BASE_URL when set.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: API key is required")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}

	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

// Complete sends one chat-completion request with the tool catalog attached
// and returns the first choice. The client never touches persistent state.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, tools []ToolDefinition, params SamplingParams) (Completion, error) {
	if c == nil || c.api == nil {
		return Completion{}, errors.New("llm: client is nil")
	}
	if len(messages) == 0 {
		return Completion{}, errors.New("llm: messages cannot be empty")
	}

	req := openai.ChatCompletionRequest{
		Model:            model,
		Messages:         buildAPIMessages(messages),
		Temperature:      float32(params.Temperature),
		TopP:             float32(params.TopP),
		FrequencyPenalty: float32(params.FrequencyPenalty),
		PresencePenalty:  float32(params.PresencePenalty),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	if len(tools) > 0 {
		req.Tools = buildAPITools(tools)
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, ClassifyError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &Error{Type: ErrorTypeUpstream, Message: "response contains no choices"}
	}

	choice := resp.Choices[0]
	out := Message{
		Role:    RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return Completion{Message: out, FinishReason: string(choice.FinishReason)}, nil
}

func buildAPIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		entry := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			entry.ToolCalls = append(entry.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, entry)
	}
	return out
}

func buildAPITools(tools []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}
