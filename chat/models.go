package chat

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles as stored. Tool-role messages never reach the table; they
// exist only inside one dispatcher turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Conversation struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_conversations_user_active,priority:1;not null"`
	Title     string `gorm:"size:256;not null"`
	Active    bool   `gorm:"index:idx_conversations_user_active,priority:2;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID uint   `gorm:"index;not null"`
	Seq            int    `gorm:"not null"`
	Role           string `gorm:"size:16;not null"`
	Content        string `gorm:"type:text;not null"`
	Model          string `gorm:"size:64"`
	TokensUsed     *int
	ResponseTime   *float64
	ReasoningTrace *string        `gorm:"type:text"`
	Extras         datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time
}

func (Message) TableName() string { return "messages" }

// Configuration is the per-user completion profile. One active row per
// user; auto-created with defaults on first access.
type Configuration struct {
	ID               uint    `gorm:"primaryKey"`
	UserID           uint    `gorm:"index;not null"`
	APIKey           string  `gorm:"size:256"`
	Model            string  `gorm:"size:64;not null;default:'deepseek-chat'"`
	Temperature      float64 `gorm:"not null;default:1"`
	MaxTokens        int     `gorm:"not null;default:2000"`
	TopP             float64 `gorm:"not null;default:1"`
	FrequencyPenalty float64 `gorm:"not null;default:0"`
	PresencePenalty  float64 `gorm:"not null;default:0"`
	SystemPrompt     string  `gorm:"type:text"`
	Active           bool    `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Configuration) TableName() string { return "chat_configurations" }
