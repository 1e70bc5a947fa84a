package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hrassist_back/erp"
	"hrassist_back/hr"
	"hrassist_back/llm"
)

type testEnv struct {
	db       *gorm.DB
	store    *Store
	registry *hr.Registry
	erpStore *erp.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	erpStore, err := erp.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, erpStore.Migrate())
	require.NoError(t, db.AutoMigrate(&Conversation{}, &Message{}, &Configuration{}))

	registry, err := hr.NewRegistry(erpStore, nil, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return &testEnv{db: db, store: NewStore(db), registry: registry, erpStore: erpStore}
}

// scriptedCompleter plays back a fixed sequence of completions, recording
// every prompt it was given.
type scriptedCompleter struct {
	script  []llm.Completion
	err     error
	prompts [][]llm.Message
}

func (s *scriptedCompleter) Complete(ctx context.Context, model string, messages []llm.Message, tools []llm.ToolDefinition, params llm.SamplingParams) (llm.Completion, error) {
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	s.prompts = append(s.prompts, copied)

	if s.err != nil {
		return llm.Completion{}, s.err
	}
	if len(s.script) == 0 {
		return llm.Completion{}, errors.New("scripted completer exhausted")
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next, nil
}

func answer(content string) llm.Completion {
	return llm.Completion{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		FinishReason: "stop",
	}
}

func toolCall(name, arguments string) llm.Completion {
	return llm.Completion{
		Message: llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: uuid.NewString(), Name: name, Arguments: arguments},
			},
		},
		FinishReason: "tool_calls",
	}
}

func newTestDispatcher(env *testEnv, completer llm.Completer) *Dispatcher {
	factory := func(apiKey string) (llm.Completer, error) { return completer, nil }
	return NewDispatcher(env.store, env.registry, factory, nil)
}

func configureAPIKey(t *testing.T, env *testEnv, userID uint) {
	t.Helper()
	key := "sk-test-key"
	_, err := env.store.UpdateConfiguration(context.Background(), userID, ConfigurationUpdate{APIKey: &key})
	require.NoError(t, err)
}

func conversationMessages(t *testing.T, env *testEnv, conversationID uint) []Message {
	t.Helper()
	var messages []Message
	require.NoError(t, env.db.Where("conversation_id = ?", conversationID).Order("seq").Find(&messages).Error)
	return messages
}

func TestSendMessagePlainAnswer(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	completer := &scriptedCompleter{script: []llm.Completion{answer("There are 3 employees.")}}
	d := newTestDispatcher(env, completer)

	result, err := d.SendMessage(context.Background(), 1, 0, "How many employees do we have?")
	require.NoError(t, err)
	assert.Equal(t, "There are 3 employees.", result.Response)
	assert.Equal(t, 1, result.Iterations)
	require.NotZero(t, result.ConversationID)

	messages := conversationMessages(t, env, result.ConversationID)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "How many employees do we have?", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.NotNil(t, messages[1].ResponseTime)
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(env, &scriptedCompleter{})

	_, err := d.SendMessage(context.Background(), 1, 0, "   ")
	require.Error(t, err)
}

func TestSendMessageToolLoop(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	completer := &scriptedCompleter{script: []llm.Completion{
		toolCall("create_employee", `{"name": "Alice Nguyen"}`),
		answer("Alice Nguyen has been added."),
	}}
	d := newTestDispatcher(env, completer)

	result, err := d.SendMessage(context.Background(), 1, 0, "Add Alice Nguyen as an employee")
	require.NoError(t, err)
	assert.Equal(t, "Alice Nguyen has been added.", result.Response)
	assert.Equal(t, 2, result.Iterations)

	// The tool actually ran against the HR layer.
	count, err := env.erpStore.Count(context.Background(), "employee", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Intermediate tool traffic never reaches the table.
	messages := conversationMessages(t, env, result.ConversationID)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Contains(t, string(messages[1].Extras), "create_employee")

	// Second round trip carried the tool result back to the model.
	require.Len(t, completer.prompts, 2)
	second := completer.prompts[1]
	assert.Equal(t, llm.RoleTool, second[len(second)-1].Role)
}

func TestSendMessageIterationCap(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	// Endless tool hunger: the loop must bail out with a salvage answer.
	completer := &scriptedCompleter{script: []llm.Completion{
		toolCall("get_employees", `{}`),
		toolCall("get_employees", `{}`),
		toolCall("get_employees", `{}`),
		toolCall("get_employees", `{}`),
		toolCall("get_employees", `{}`),
		toolCall("get_employees", `{}`),
	}}
	d := newTestDispatcher(env, completer)

	result, err := d.SendMessage(context.Background(), 1, 0, "list employees forever")
	require.NoError(t, err)
	assert.Equal(t, iterationCapMessage, result.Response)
	assert.Equal(t, maxIterations, result.Iterations)
	require.Len(t, completer.prompts, maxIterations)

	messages := conversationMessages(t, env, result.ConversationID)
	require.Len(t, messages, 2)
	assert.Equal(t, iterationCapMessage, messages[1].Content)
}

func TestSendMessageConfigMissing(t *testing.T) {
	env := newTestEnv(t)

	completer := &scriptedCompleter{script: []llm.Completion{answer("never reached")}}
	d := newTestDispatcher(env, completer)

	_, err := d.SendMessage(context.Background(), 1, 0, "hello")
	require.ErrorIs(t, err, ErrConfigMissing)

	// No completion was attempted, but the user message is retained.
	assert.Empty(t, completer.prompts)

	var conv Conversation
	require.NoError(t, env.db.Take(&conv, "user_id = ?", 1).Error)
	messages := conversationMessages(t, env, conv.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
}

func TestSendMessageInvalidKeyFormat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The update path rejects malformed keys, so plant one directly.
	_, err := env.store.GetConfiguration(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&Configuration{}).
		Where("user_id = ?", 1).
		Update("api_key", "legacy-token").Error)

	completer := &scriptedCompleter{script: []llm.Completion{answer("never reached")}}
	d := newTestDispatcher(env, completer)

	_, err = d.SendMessage(ctx, 1, 0, "hello")
	require.ErrorIs(t, err, erp.ErrValidation)
	assert.Empty(t, completer.prompts)
}

func TestSendMessageProviderErrorRetainsUserMessage(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	providerErr := &llm.Error{Type: llm.ErrorTypeRateLimit, Message: "rate limit exceeded", StatusCode: 429}
	completer := &scriptedCompleter{err: providerErr}
	d := newTestDispatcher(env, completer)

	_, err := d.SendMessage(context.Background(), 1, 0, "hello")
	require.Error(t, err)

	var classified *llm.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, llm.ErrorTypeRateLimit, classified.Type)

	var conv Conversation
	require.NoError(t, env.db.Take(&conv, "user_id = ?", 1).Error)
	messages := conversationMessages(t, env, conv.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
}

func TestSendMessageReasoningTrace(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	model := llm.ModelReasoning
	_, err := env.store.UpdateConfiguration(context.Background(), 1, ConfigurationUpdate{Model: &model})
	require.NoError(t, err)

	completer := &scriptedCompleter{script: []llm.Completion{
		answer("<think>count heads, then answer</think>There are 3 employees."),
	}}
	d := newTestDispatcher(env, completer)

	result, err := d.SendMessage(context.Background(), 1, 0, "headcount?")
	require.NoError(t, err)
	assert.Equal(t, "There are 3 employees.", result.Response)

	messages := conversationMessages(t, env, result.ConversationID)
	require.Len(t, messages, 3)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleSystem, messages[1].Role)
	require.NotNil(t, messages[1].ReasoningTrace)
	assert.Equal(t, "count heads, then answer", *messages[1].ReasoningTrace)
	assert.Equal(t, RoleAssistant, messages[2].Role)
	assert.Equal(t, "There are 3 employees.", messages[2].Content)
}

func TestSendMessageReasoningMarkersIgnoredOnChatModel(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	completer := &scriptedCompleter{script: []llm.Completion{
		answer("<think>hidden</think>Plain answer."),
	}}
	d := newTestDispatcher(env, completer)

	result, err := d.SendMessage(context.Background(), 1, 0, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Plain answer.", result.Response)

	messages := conversationMessages(t, env, result.ConversationID)
	require.Len(t, messages, 2)
}

func TestSendMessageFeedsHistoryWindow(t *testing.T) {
	env := newTestEnv(t)
	configureAPIKey(t, env, 1)

	completer := &scriptedCompleter{script: []llm.Completion{
		answer("First answer."),
		answer("Second answer."),
	}}
	d := newTestDispatcher(env, completer)

	ctx := context.Background()
	first, err := d.SendMessage(ctx, 1, 0, "first question")
	require.NoError(t, err)

	_, err = d.SendMessage(ctx, 1, first.ConversationID, "second question")
	require.NoError(t, err)

	require.Len(t, completer.prompts, 2)
	prompt := completer.prompts[1]
	require.Len(t, prompt, 4)
	assert.Equal(t, llm.RoleSystem, prompt[0].Role)
	assert.Equal(t, "first question", prompt[1].Content)
	assert.Equal(t, "First answer.", prompt[2].Content)
	assert.Equal(t, "second question", prompt[3].Content)
}
