package authorization

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type adminRequestPayload struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// adminRequestMailer notifies an operator address when someone requests
// administrator access. Optional; configured entirely from environment.
type adminRequestMailer struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	recipient string
	subject   string
}

func newAdminRequestMailerFromEnv() (*adminRequestMailer, error) {
	m := &adminRequestMailer{
		host:      strings.TrimSpace(os.Getenv("ADMIN_REQUEST_SMTP_HOST")),
		username:  strings.TrimSpace(os.Getenv("ADMIN_REQUEST_SMTP_USERNAME")),
		password:  os.Getenv("ADMIN_REQUEST_SMTP_PASSWORD"),
		from:      sanitizeMailHeader(os.Getenv("ADMIN_REQUEST_MAIL_FROM")),
		recipient: sanitizeMailHeader(os.Getenv("ADMIN_REQUEST_RECIPIENT_EMAIL")),
		subject:   sanitizeMailHeader(os.Getenv("ADMIN_REQUEST_MAIL_SUBJECT")),
	}
	if m.from == "" {
		m.from = m.username
	}

	switch {
	case m.recipient == "":
		return nil, errors.New("admin request recipient email is not configured")
	case m.host == "":
		return nil, errors.New("admin request SMTP host is not configured")
	case m.username == "" || strings.TrimSpace(m.password) == "":
		return nil, errors.New("admin request SMTP credentials are not configured")
	case m.from == "":
		return nil, errors.New("admin request mail sender address is not configured")
	}

	rawPort := strings.TrimSpace(os.Getenv("ADMIN_REQUEST_SMTP_PORT"))
	if rawPort == "" {
		rawPort = "587"
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("admin request SMTP port is invalid: %s", rawPort)
	}
	m.port = port

	return m, nil
}

// Send mails a plain-text summary of the request. Header values pass
// through sanitizeMailHeader so user input cannot inject extra headers.
func (m *adminRequestMailer) Send(user *User, payload *adminRequestPayload) error {
	if m == nil {
		return errors.New("admin request mailer not configured")
	}
	if user == nil {
		return errors.New("user information is required")
	}

	subject := m.subject
	if subject == "" {
		subject = "Admin Access Request"
	}
	now := time.Now().UTC()

	lines := []string{
		"A new administrator access request has been submitted.",
		"",
		fmt.Sprintf("User ID: %d", user.ID),
	}
	if user.Username != "" {
		lines = append(lines, "Username: "+sanitizeMailHeader(user.Username))
	}
	if user.DisplayName != "" {
		lines = append(lines, "Display Name: "+sanitizeMailHeader(user.DisplayName))
	}
	if user.EmployeeID != nil {
		lines = append(lines, fmt.Sprintf("Employee ID: %d", *user.EmployeeID))
	}
	lines = append(lines, "Requested At (UTC): "+now.Format(time.RFC3339))
	if payload != nil {
		if payload.Source != "" {
			lines = append(lines, "Source: "+sanitizeMailHeader(payload.Source))
		}
		if note := strings.TrimSpace(payload.Message); note != "" {
			lines = append(lines, "", "Additional Message:", note)
		}
	}

	headers := []string{
		"From: " + m.from,
		"To: " + m.recipient,
		"Subject: " + encodeMailSubject(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"Date: " + now.Format(time.RFC1123Z),
		"",
	}

	mail := strings.Join(append(headers, lines...), "\r\n") + "\r\n"
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	return smtp.SendMail(addr, auth, m.from, []string{m.recipient}, []byte(mail))
}

// encodeMailSubject base64-encodes non-ASCII subjects per RFC 2047.
func encodeMailSubject(subject string) string {
	for i := 0; i < len(subject); i++ {
		if subject[i] >= 0x80 {
			encoded := base64.StdEncoding.EncodeToString([]byte(subject))
			return "=?UTF-8?B?" + encoded + "?="
		}
	}
	return subject
}

func sanitizeMailHeader(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.ReplaceAll(value, "\n", " ")
}

// handleAdminRequest grants the admin role to the requester and notifies
// the operator mailbox when a mailer is configured.
func (m *Module) handleAdminRequest(c *gin.Context) {
	var payload adminRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		// An empty body is fine; the request needs no fields.
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	userID := CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx := c.Request.Context()
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		}
		return
	}

	assigned, err := m.users.GrantRoleByCode(ctx, userID, "admin")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin role not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant admin role"})
		}
		return
	}

	roles, err := m.users.FindRoleNames(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}

	message := "admin role already assigned"
	if assigned {
		message = "admin role granted"
	}
	response := gin.H{
		"message":  message,
		"assigned": assigned,
		"roles":    roles,
		"user":     userResponse(user, roles),
	}

	if m.adminMailer != nil {
		if err := m.adminMailer.Send(user, &payload); err != nil {
			log.Printf("authorization: failed to send admin request email: %v", err)
			response["warning"] = "failed to notify administrator"
		}
	}
	c.JSON(http.StatusOK, response)
}
