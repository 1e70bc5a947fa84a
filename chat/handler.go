package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrassist_back/authorization"
	"hrassist_back/erp"
	"hrassist_back/hr"
	"hrassist_back/llm"
)

// Module serves the conversational endpoints under /chat.
type Module struct {
	store      *Store
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// RegisterRoutes mounts the chat API. The HR registry supplies the tool
// catalog; the guard authenticates every route.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, store *Store, registry *hr.Registry, logger *zap.Logger) (*Module, error) {
	if router == nil {
		return nil, errors.New("chat: router is required")
	}
	if store == nil {
		return nil, errors.New("chat: store is required")
	}
	if registry == nil {
		return nil, errors.New("chat: registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Module{
		store:      store,
		dispatcher: NewDispatcher(store, registry, nil, logger),
		logger:     logger.Named("chat"),
	}

	group := router.Group("/chat")
	if guard != nil {
		group.Use(guard.RequireAuthenticated())
	}

	group.POST("/send", m.handleSend)
	group.GET("/ws", m.handleWebSocket)

	group.GET("/conversations", m.handleListConversations)
	group.GET("/conversations/search", m.handleSearchConversations)
	group.GET("/conversations/stats", m.handleStats)
	group.GET("/conversations/:id/messages", m.handleGetMessages)
	group.PUT("/conversations/:id/title", m.handleUpdateTitle)
	group.POST("/conversations/:id/restore", m.handleRestore)
	group.POST("/conversations/:id/duplicate", m.handleDuplicate)
	group.DELETE("/conversations/:id", m.handleSoftDelete)
	group.DELETE("/conversations/:id/hard", m.handleHardDelete)
	group.POST("/conversations/bulk-delete", m.handleBulkDelete)
	group.POST("/conversations/bulk-restore", m.handleBulkRestore)

	group.GET("/config", m.handleGetConfig)
	group.PUT("/config", m.handleSetConfig)

	return m, nil
}

type sendRequest struct {
	Message        string `json:"message"`
	ConversationID uint   `json:"conversation_id"`
}

func (m *Module) handleSend(c *gin.Context) {
	userID := authorization.CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message is required"})
		return
	}

	result, err := m.dispatcher.SendMessage(c.Request.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		status, message := turnErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"response":        result.Response,
		"conversation_id": result.ConversationID,
		"message_id":      result.MessageID,
	})
}

// turnErrorStatus maps a dispatcher failure to a transport status. LLM
// errors keep their own message so the operator sees the upstream cause.
func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrConfigMissing):
		return http.StatusBadRequest, "API key not configured"
	case errors.Is(err, erp.ErrAccess):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, erp.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, erp.ErrValidation):
		return http.StatusBadRequest, err.Error()
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Type {
		case llm.ErrorTypeAuth:
			return http.StatusUnauthorized, llmErr.Error()
		case llm.ErrorTypeRateLimit:
			return http.StatusTooManyRequests, llmErr.Error()
		case llm.ErrorTypeBadRequest:
			return http.StatusBadRequest, llmErr.Error()
		case llm.ErrorTypeTimeout:
			return http.StatusGatewayTimeout, llmErr.Error()
		default:
			return http.StatusBadGateway, llmErr.Error()
		}
	}
	return http.StatusInternalServerError, err.Error()
}

func (m *Module) conversationID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid conversation id"})
		return 0, false
	}
	return uint(id), true
}

func (m *Module) requireUser(c *gin.Context) (uint, bool) {
	userID := authorization.CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return 0, false
	}
	return userID, true
}

func (m *Module) storeFail(c *gin.Context, err error) {
	status, message := turnErrorStatus(err)
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (m *Module) handleListConversations(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}
	active := c.DefaultQuery("state", "active") != "deleted"

	summaries, err := m.store.List(c.Request.Context(), userID, active)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": summaries})
}

func (m *Module) handleGetMessages(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}
	id, ok := m.conversationID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := m.store.ListRecent(c.Request.Context(), userID, id, limit)
	if err != nil {
		m.storeFail(c, err)
		return
	}

	payload := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, Describe(msg))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": payload})
}

type titleRequest struct {
	Title string `json:"title"`
}

func (m *Module) handleUpdateTitle(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}
	id, ok := m.conversationID(c)
	if !ok {
		return
	}

	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload"})
		return
	}

	if err := m.store.UpdateTitle(c.Request.Context(), userID, id, req.Title); err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) handleSoftDelete(c *gin.Context) {
	m.mutateConversation(c, m.store.SoftDelete)
}

func (m *Module) handleHardDelete(c *gin.Context) {
	m.mutateConversation(c, m.store.HardDelete)
}

func (m *Module) handleRestore(c *gin.Context) {
	m.mutateConversation(c, m.store.Restore)
}

func (m *Module) mutateConversation(c *gin.Context, op func(ctx context.Context, userID, id uint) error) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}
	id, ok := m.conversationID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), userID, id); err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) handleDuplicate(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}
	id, ok := m.conversationID(c)
	if !ok {
		return
	}

	clone, err := m.store.Duplicate(c.Request.Context(), userID, id)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation_id": clone.ID, "title": clone.Title})
}

type bulkRequest struct {
	ConversationIDs []uint `json:"conversation_ids"`
}

func (m *Module) handleBulkDelete(c *gin.Context) {
	m.bulkSetActive(c, false)
}

func (m *Module) handleBulkRestore(c *gin.Context) {
	m.bulkSetActive(c, true)
}

func (m *Module) bulkSetActive(c *gin.Context, active bool) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}

	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload"})
		return
	}

	if err := m.store.BulkSetActive(c.Request.Context(), userID, req.ConversationIDs, active); err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(req.ConversationIDs)})
}

func (m *Module) handleSearchConversations(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	summaries, err := m.store.Search(c.Request.Context(), userID, c.Query("q"), limit)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": summaries})
}

func (m *Module) handleStats(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}

	stats, err := m.store.Stats(c.Request.Context(), userID)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (m *Module) handleGetConfig(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}

	cfg, err := m.store.GetConfiguration(c.Request.Context(), userID)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": DescribeConfiguration(cfg)})
}

func (m *Module) handleSetConfig(c *gin.Context) {
	userID, ok := m.requireUser(c)
	if !ok {
		return
	}

	var update ConfigurationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload"})
		return
	}

	cfg, err := m.store.UpdateConfiguration(c.Request.Context(), userID, update)
	if err != nil {
		m.storeFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": DescribeConfiguration(cfg)})
}
