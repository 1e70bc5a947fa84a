package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hrassist_back/erp"
)

// emptyContentPlaceholder keeps NOT NULL message rows readable when the
// model returns a blank final answer.
const emptyContentPlaceholder = "[empty message]"

// Store persists conversations and their messages. Every mutation checks
// conversation ownership; callers never pass a conversation they do not own.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// MessageMeta carries the optional bookkeeping columns for a message.
type MessageMeta struct {
	Model          string
	TokensUsed     *int
	ResponseTime   *float64
	ReasoningTrace *string
	Extras         datatypes.JSON
}

func defaultTitle(now time.Time) string {
	return "Chat " + now.Format("2006-01-02 15:04")
}

// GetOrCreate loads the conversation when id is non-zero, verifying
// ownership, or creates a fresh one owned by userID.
func (s *Store) GetOrCreate(ctx context.Context, userID, conversationID uint) (*Conversation, error) {
	if conversationID != 0 {
		return s.owned(ctx, userID, conversationID)
	}

	conv := Conversation{
		UserID: userID,
		Title:  defaultTitle(time.Now().UTC()),
		Active: true,
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// owned loads a conversation and enforces that userID is its owner.
func (s *Store) owned(ctx context.Context, userID, conversationID uint) (*Conversation, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).Take(&conv, "id = ?", conversationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, erp.NotFoundError("conversation", conversationID)
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, erp.AccessError("conversation %d belongs to another user", conversationID)
	}
	return &conv, nil
}

// AppendMessage writes one message with the next sequence number and bumps
// the conversation's updated timestamp, atomically.
func (s *Store) AppendMessage(ctx context.Context, conversationID uint, role, content string, meta MessageMeta) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		content = emptyContentPlaceholder
	}

	msg := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Model:          meta.Model,
		TokensUsed:     meta.TokensUsed,
		ResponseTime:   meta.ResponseTime,
		ReasoningTrace: meta.ReasoningTrace,
		Extras:         meta.Extras,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last Message
		if err := tx.Where("conversation_id = ?", conversationID).Order("seq DESC").Take(&last).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			msg.Seq = 1
		} else {
			msg.Seq = last.Seq + 1
		}

		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListRecent returns up to limit messages in ascending creation order.
func (s *Store) ListRecent(ctx context.Context, userID, conversationID uint, limit int) ([]Message, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// HistoryWindow returns the last limit user/assistant messages in ascending
// order. System and tool traffic is per-turn ephemera and stays out of the
// prompt.
func (s *Store) HistoryWindow(ctx context.Context, conversationID uint, limit int) ([]Message, error) {
	query := s.db.WithContext(ctx).
		Where("conversation_id = ? AND role IN ?", conversationID, []string{RoleUser, RoleAssistant}).
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func reverse(messages []Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// ConversationSummary is the listing shape with computed counters.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	Title         string     `json:"title"`
	Active        bool       `json:"active"`
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// List returns the caller's conversations, active or deleted.
func (s *Store) List(ctx context.Context, userID uint, active bool) ([]ConversationSummary, error) {
	var conversations []Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, active).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary, err := s.summarize(ctx, conv)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Store) summarize(ctx context.Context, conv Conversation) (ConversationSummary, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ?", conv.ID).
		Count(&count).Error; err != nil {
		return ConversationSummary{}, err
	}

	summary := ConversationSummary{
		ID:           conv.ID,
		Title:        conv.Title,
		Active:       conv.Active,
		MessageCount: count,
		CreatedAt:    conv.CreatedAt,
	}
	if count > 0 {
		var last Message
		if err := s.db.WithContext(ctx).
			Where("conversation_id = ?", conv.ID).
			Order("seq DESC").Take(&last).Error; err == nil {
			summary.LastMessageAt = &last.CreatedAt
		}
	}
	return summary, nil
}

// SoftDelete hides a conversation without touching its messages.
func (s *Store) SoftDelete(ctx context.Context, userID, conversationID uint) error {
	return s.setActive(ctx, userID, conversationID, false)
}

// Restore brings back a soft-deleted conversation.
func (s *Store) Restore(ctx context.Context, userID, conversationID uint) error {
	return s.setActive(ctx, userID, conversationID, true)
}

func (s *Store) setActive(ctx context.Context, userID, conversationID uint, active bool) error {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update("active", active).Error
}

// HardDelete removes a conversation and every message in it.
func (s *Store) HardDelete(ctx context.Context, userID, conversationID uint) error {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Conversation{}, "id = ?", conversationID).Error
	})
}

// UpdateTitle renames a conversation.
func (s *Store) UpdateTitle(ctx context.Context, userID, conversationID uint, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return erp.ValidationError("title cannot be empty")
	}
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update("title", title).Error
}

// Duplicate deep-copies a conversation and its messages under a "(copy)" title.
func (s *Store) Duplicate(ctx context.Context, userID, conversationID uint) (*Conversation, error) {
	source, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	clone := Conversation{
		UserID: userID,
		Title:  source.Title + " (copy)",
		Active: true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}

		var messages []Message
		if err := tx.Where("conversation_id = ?", conversationID).Order("seq").Find(&messages).Error; err != nil {
			return err
		}
		for _, msg := range messages {
			copied := Message{
				ConversationID: clone.ID,
				Seq:            msg.Seq,
				Role:           msg.Role,
				Content:        msg.Content,
				Model:          msg.Model,
				TokensUsed:     msg.TokensUsed,
				ResponseTime:   msg.ResponseTime,
				ReasoningTrace: msg.ReasoningTrace,
				Extras:         msg.Extras,
			}
			if err := tx.Create(&copied).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &clone, nil
}

// BulkSetActive soft-deletes or restores several conversations at once.
// Every id must belong to the caller or the whole batch is rejected.
func (s *Store) BulkSetActive(ctx context.Context, userID uint, conversationIDs []uint, active bool) error {
	if len(conversationIDs) == 0 {
		return erp.ValidationError("conversation_ids cannot be empty")
	}
	for _, id := range conversationIDs {
		if _, err := s.owned(ctx, userID, id); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Model(&Conversation{}).
		Where("id IN ? AND user_id = ?", conversationIDs, userID).
		Update("active", active).Error
}

// Search matches the caller's conversations by title or message content.
func (s *Store) Search(ctx context.Context, userID uint, query string, limit int) ([]ConversationSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, erp.ValidationError("query cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(query) + "%"

	var conversations []Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Where("LOWER(title) LIKE ? OR id IN (?)",
			pattern,
			s.db.Model(&Message{}).Select("conversation_id").Where("LOWER(content) LIKE ?", pattern),
		).
		Order("updated_at DESC").
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary, err := s.summarize(ctx, conv)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Stats aggregates the caller's conversation and message counts.
func (s *Store) Stats(ctx context.Context, userID uint) (map[string]any, error) {
	var active, deleted, messages int64
	db := s.db.WithContext(ctx)

	if err := db.Model(&Conversation{}).Where("user_id = ? AND active = ?", userID, true).Count(&active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Conversation{}).Where("user_id = ? AND active = ?", userID, false).Count(&deleted).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Message{}).
		Where("conversation_id IN (?)", db.Model(&Conversation{}).Select("id").Where("user_id = ?", userID)).
		Count(&messages).Error; err != nil {
		return nil, err
	}

	return map[string]any{
		"active_conversations":  active,
		"deleted_conversations": deleted,
		"total_messages":        messages,
	}, nil
}

// Describe renders a single message for API responses.
func Describe(msg Message) map[string]any {
	payload := map[string]any{
		"id":         msg.ID,
		"role":       msg.Role,
		"content":    msg.Content,
		"created_at": msg.CreatedAt,
	}
	if msg.Model != "" {
		payload["model"] = msg.Model
	}
	if msg.TokensUsed != nil {
		payload["tokens_used"] = *msg.TokensUsed
	}
	if msg.ResponseTime != nil {
		payload["response_time"] = *msg.ResponseTime
	}
	if msg.ReasoningTrace != nil {
		payload["reasoning_trace"] = *msg.ReasoningTrace
	}
	if len(msg.Extras) > 0 {
		payload["extras"] = json.RawMessage(msg.Extras)
	}
	return payload
}
