package chat

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

// maskedKey is what the API returns instead of the stored credential and
// what clients send back to mean "keep the current one".
const maskedKey = "••••••••"

const defaultSystemPrompt = "You are an HR assistant embedded in the company ERP. " +
	"You can help with employee management, attendance, leave, payroll, insurance, " +
	"recruitment, skills, timesheets, and reports. When the user asks about HR data, " +
	"call the available functions instead of guessing."

// GetConfiguration returns the user's active configuration, creating one
// with defaults on first access.
func (s *Store) GetConfiguration(ctx context.Context, userID uint) (*Configuration, error) {
	var cfg Configuration
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Take(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg = Configuration{
		UserID:       userID,
		Model:        llm.ModelFastChat,
		Temperature:  1,
		MaxTokens:    2000,
		TopP:         1,
		SystemPrompt: defaultSystemPrompt,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigurationUpdate carries the writable configuration fields. Nil
// pointers leave the stored value untouched.
type ConfigurationUpdate struct {
	APIKey           *string  `json:"api_key"`
	Model            *string  `json:"model"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	SystemPrompt     *string  `json:"system_prompt"`
}

// UpdateConfiguration validates and applies the changed fields. The masked
// sentinel in api_key means the stored credential stays as is.
func (s *Store) UpdateConfiguration(ctx context.Context, userID uint, update ConfigurationUpdate) (*Configuration, error) {
	cfg, err := s.GetConfiguration(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if update.APIKey != nil {
		key := strings.TrimSpace(*update.APIKey)
		if key != "" && key != maskedKey {
			if !strings.HasPrefix(key, "sk-") {
				return nil, erp.ValidationError("api_key must start with sk-")
			}
			values["api_key"] = key
		}
	}
	if update.Model != nil {
		model := strings.TrimSpace(*update.Model)
		if model != llm.ModelFastChat && model != llm.ModelReasoning {
			return nil, erp.ValidationError("model must be %s or %s", llm.ModelFastChat, llm.ModelReasoning)
		}
		values["model"] = model
	}
	if update.Temperature != nil {
		if *update.Temperature < 0 || *update.Temperature > 2 {
			return nil, erp.ValidationError("temperature must be between 0 and 2")
		}
		values["temperature"] = *update.Temperature
	}
	if update.MaxTokens != nil {
		if *update.MaxTokens < 1 || *update.MaxTokens > 8000 {
			return nil, erp.ValidationError("max_tokens must be between 1 and 8000")
		}
		values["max_tokens"] = *update.MaxTokens
	}
	if update.TopP != nil {
		if *update.TopP < 0 || *update.TopP > 1 {
			return nil, erp.ValidationError("top_p must be between 0 and 1")
		}
		values["top_p"] = *update.TopP
	}
	if update.FrequencyPenalty != nil {
		if *update.FrequencyPenalty < -2 || *update.FrequencyPenalty > 2 {
			return nil, erp.ValidationError("frequency_penalty must be between -2 and 2")
		}
		values["frequency_penalty"] = *update.FrequencyPenalty
	}
	if update.PresencePenalty != nil {
		if *update.PresencePenalty < -2 || *update.PresencePenalty > 2 {
			return nil, erp.ValidationError("presence_penalty must be between -2 and 2")
		}
		values["presence_penalty"] = *update.PresencePenalty
	}
	if update.SystemPrompt != nil {
		values["system_prompt"] = strings.TrimSpace(*update.SystemPrompt)
	}

	if len(values) > 0 {
		if err := s.db.WithContext(ctx).Model(&Configuration{}).
			Where("id = ?", cfg.ID).
			Updates(values).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Take(cfg, "id = ?", cfg.ID).Error; err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DescribeConfiguration renders a configuration with the credential masked.
func DescribeConfiguration(cfg *Configuration) map[string]any {
	key := ""
	if cfg.APIKey != "" {
		key = maskedKey
	}
	return map[string]any{
		"api_key":           key,
		"model":             cfg.Model,
		"temperature":       cfg.Temperature,
		"max_tokens":        cfg.MaxTokens,
		"top_p":             cfg.TopP,
		"frequency_penalty": cfg.FrequencyPenalty,
		"presence_penalty":  cfg.PresencePenalty,
		"system_prompt":     cfg.SystemPrompt,
	}
}
