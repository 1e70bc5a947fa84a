package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hrassist_back/authorization"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is handled by the CORS layer; the socket
		// itself is guarded by the JWT middleware on the route.
		return true
	},
}

type wsTurnRequest struct {
	Message        string `json:"message"`
	ConversationID uint   `json:"conversation_id"`
}

type wsTurnResponse struct {
	Success        bool   `json:"success"`
	Response       string `json:"response,omitempty"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	MessageID      uint   `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// handleWebSocket serves a turn-per-frame channel: each JSON frame in is one
// user turn, each frame out is the finished assistant answer. A failed turn
// answers with an error frame and keeps the socket open.
func (m *Module) handleWebSocket(c *gin.Context) {
	userID := authorization.CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		var req wsTurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				if ce.Code != websocket.CloseNormalClosure && ce.Code != websocket.CloseGoingAway {
					m.logger.Debug("websocket closed", zap.Int("code", ce.Code))
				}
				return
			}
			_ = conn.WriteJSON(wsTurnResponse{Success: false, Error: "invalid frame"})
			continue
		}

		result, err := m.dispatcher.SendMessage(ctx, userID, req.ConversationID, req.Message)
		if err != nil {
			_, message := turnErrorStatus(err)
			if writeErr := conn.WriteJSON(wsTurnResponse{Success: false, Error: message}); writeErr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsTurnResponse{
			Success:        true,
			Response:       result.Response,
			ConversationID: result.ConversationID,
			MessageID:      result.MessageID,
		}); err != nil {
			return
		}
	}
}
