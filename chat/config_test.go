package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func TestGetConfigurationCreatesDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg, err := env.store.GetConfiguration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, llm.ModelFastChat, cfg.Model)
	assert.Equal(t, 1.0, cfg.Temperature)
	assert.Equal(t, 2000, cfg.MaxTokens)
	assert.Equal(t, 1.0, cfg.TopP)
	assert.Equal(t, defaultSystemPrompt, cfg.SystemPrompt)
	assert.Empty(t, cfg.APIKey)
	assert.True(t, cfg.Active)

	// Second read returns the same row, not a new one.
	again, err := env.store.GetConfiguration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID)
}

func TestUpdateConfigurationMaskSentinelKeepsKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg, err := env.store.UpdateConfiguration(ctx, 1, ConfigurationUpdate{APIKey: strPtr("sk-real-key")})
	require.NoError(t, err)
	assert.Equal(t, "sk-real-key", cfg.APIKey)

	// Clients echo the mask back; the stored credential must survive.
	cfg, err = env.store.UpdateConfiguration(ctx, 1, ConfigurationUpdate{
		APIKey:      strPtr(maskedKey),
		Temperature: f64Ptr(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-real-key", cfg.APIKey)
	assert.Equal(t, 0.5, cfg.Temperature)
}

func TestUpdateConfigurationRejectsBadKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.UpdateConfiguration(context.Background(), 1, ConfigurationUpdate{APIKey: strPtr("not-a-key")})
	require.ErrorIs(t, err, erp.ErrValidation)
}

func TestUpdateConfigurationModel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg, err := env.store.UpdateConfiguration(ctx, 1, ConfigurationUpdate{Model: strPtr(llm.ModelReasoning)})
	require.NoError(t, err)
	assert.Equal(t, llm.ModelReasoning, cfg.Model)

	_, err = env.store.UpdateConfiguration(ctx, 1, ConfigurationUpdate{Model: strPtr("gpt-99")})
	require.ErrorIs(t, err, erp.ErrValidation)
}

func TestUpdateConfigurationRanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []ConfigurationUpdate{
		{Temperature: f64Ptr(2.1)},
		{Temperature: f64Ptr(-0.1)},
		{MaxTokens: intPtr(0)},
		{MaxTokens: intPtr(8001)},
		{TopP: f64Ptr(1.5)},
		{FrequencyPenalty: f64Ptr(2.5)},
		{PresencePenalty: f64Ptr(-2.5)},
	}
	for _, update := range cases {
		_, err := env.store.UpdateConfiguration(ctx, 1, update)
		assert.ErrorIs(t, err, erp.ErrValidation)
	}

	cfg, err := env.store.UpdateConfiguration(ctx, 1, ConfigurationUpdate{
		Temperature:      f64Ptr(0),
		MaxTokens:        intPtr(8000),
		TopP:             f64Ptr(0.9),
		FrequencyPenalty: f64Ptr(-2),
		PresencePenalty:  f64Ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 8000, cfg.MaxTokens)
	assert.Equal(t, -2.0, cfg.FrequencyPenalty)
}

func TestDescribeConfigurationMasksKey(t *testing.T) {
	withKey := DescribeConfiguration(&Configuration{APIKey: "sk-secret", Model: llm.ModelFastChat})
	assert.Equal(t, maskedKey, withKey["api_key"])
	assert.NotContains(t, withKey["api_key"], "sk-secret")

	withoutKey := DescribeConfiguration(&Configuration{Model: llm.ModelFastChat})
	assert.Equal(t, "", withoutKey["api_key"])
}
