package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"hrassist_back/erp"
	"hrassist_back/hr"
	"hrassist_back/llm"
)

const (
	// historyWindow is the number of prior user/assistant messages fed back
	// to the model each turn.
	historyWindow = 20

	// maxIterations caps tool rounds per turn. Hitting it is a user-visible
	// condition, not a crash.
	maxIterations = 5

	iterationCapMessage = "too many tool steps; please narrow the request"
)

// ErrConfigMissing means the user has no usable API credential yet.
var ErrConfigMissing = errors.New("API key not configured")

// CompleterFactory builds an LLM client from a stored credential. Swapped
// out in tests for a scripted double.
type CompleterFactory func(apiKey string) (llm.Completer, error)

// Dispatcher runs one conversational turn: persist the user message, loop
// completion and tool execution until the model produces a final answer,
// persist that answer.
type Dispatcher struct {
	store        *Store
	registry     *hr.Registry
	newCompleter CompleterFactory
	logger       *zap.Logger
}

func NewDispatcher(store *Store, registry *hr.Registry, factory CompleterFactory, logger *zap.Logger) *Dispatcher {
	if factory == nil {
		factory = func(apiKey string) (llm.Completer, error) {
			return llm.NewClient(apiKey)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:        store,
		registry:     registry,
		newCompleter: factory,
		logger:       logger.Named("dispatcher"),
	}
}

// turnExtras records which tools a turn went through; nothing is written
// for plain question-answer turns.
func turnExtras(iterations int, toolsUsed []string) datatypes.JSON {
	if len(toolsUsed) == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]any{
		"iterations": iterations,
		"tool_calls": toolsUsed,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// TurnResult is what the caller gets back from one successful turn.
type TurnResult struct {
	Response       string `json:"response"`
	ConversationID uint   `json:"conversation_id"`
	MessageID      uint   `json:"message_id"`
	Iterations     int    `json:"iterations"`
}

// SendMessage handles one user turn end to end. On LLM failure the user
// message stays persisted and the error is returned as is; no assistant
// message is written.
func (d *Dispatcher) SendMessage(ctx context.Context, userID, conversationID uint, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message cannot be empty")
	}

	conv, err := d.store.GetOrCreate(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := d.store.HistoryWindow(ctx, conv.ID, historyWindow)
	if err != nil {
		return nil, err
	}

	if _, err := d.store.AppendMessage(ctx, conv.ID, RoleUser, text, MessageMeta{}); err != nil {
		return nil, err
	}

	cfg, err := d.store.GetConfiguration(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrConfigMissing
	}
	if !strings.HasPrefix(cfg.APIKey, "sk-") {
		return nil, erp.ValidationError("api_key must start with sk-")
	}
	completer, err := d.newCompleter(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	preamble := cfg.SystemPrompt
	if strings.TrimSpace(preamble) == "" {
		preamble = defaultSystemPrompt
	}

	// The working list is per-turn ephemera; only the final answer and an
	// optional reasoning trace ever reach the store.
	working := make([]llm.Message, 0, len(history)+2)
	working = append(working, llm.Message{Role: llm.RoleSystem, Content: preamble})
	for _, msg := range history {
		working = append(working, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	working = append(working, llm.Message{Role: llm.RoleUser, Content: text})

	params := llm.SamplingParams{
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}

	started := time.Now()
	var toolsUsed []string
	for i := 1; i <= maxIterations; i++ {
		completion, err := completer.Complete(ctx, cfg.Model, working, d.registry.Catalog(), params)
		if err != nil {
			d.logger.Warn("completion failed",
				zap.Uint("conversation", conv.ID),
				zap.Int("iteration", i),
				zap.Error(err))
			return nil, err
		}

		if len(completion.Message.ToolCalls) > 0 {
			working = append(working, completion.Message)
			for _, call := range completion.Message.ToolCalls {
				toolsUsed = append(toolsUsed, call.Name)
				result := d.registry.ExecuteTool(ctx, call.Name, call.Arguments)
				d.logger.Debug("tool executed",
					zap.Uint("conversation", conv.ID),
					zap.String("tool", call.Name))
				working = append(working, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: call.ID,
					Content:    result,
				})
			}
			continue
		}

		trace, content := llm.ExtractReasoning(completion.Message.Content)
		if trace != "" && cfg.Model == llm.ModelReasoning {
			if _, err := d.store.AppendMessage(ctx, conv.ID, RoleSystem, "", MessageMeta{
				Model:          cfg.Model,
				ReasoningTrace: &trace,
			}); err != nil {
				return nil, err
			}
		}

		elapsed := time.Since(started).Seconds()
		msg, err := d.store.AppendMessage(ctx, conv.ID, RoleAssistant, content, MessageMeta{
			Model:        cfg.Model,
			ResponseTime: &elapsed,
			Extras:       turnExtras(i, toolsUsed),
		})
		if err != nil {
			return nil, err
		}
		return &TurnResult{
			Response:       msg.Content,
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			Iterations:     i,
		}, nil
	}

	// Cap reached: persist a salvage answer so the turn stays coherent in
	// the transcript.
	msg, err := d.store.AppendMessage(ctx, conv.ID, RoleAssistant, iterationCapMessage, MessageMeta{
		Model:  cfg.Model,
		Extras: turnExtras(maxIterations, toolsUsed),
	})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Response:       msg.Content,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Iterations:     maxIterations,
	}, nil
}
