package authorization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	identityKey  = "user_id"
	tokenTimeout = time.Hour
	tokenRefresh = 24 * time.Hour
)

// Module owns the authentication endpoints and the JWT middleware shared
// with the rest of the service.
type Module struct {
	db            *gorm.DB
	users         *UserStore
	accounts      *AccountService
	jwtMiddleware *jwt.GinJWTMiddleware
	captcha       *CaptchaStore
	adminMailer   *adminRequestMailer
}

// RegisterRoutes migrates the account tables, seeds the built-in roles and
// mounts the /auth endpoints on the shared database handle.
func RegisterRoutes(router *gin.Engine, db *gorm.DB) (*Module, error) {
	if db == nil {
		return nil, errors.New("authorization: database handle is required")
	}
	if err := db.AutoMigrate(&User{}, &Role{}, &UserRole{}); err != nil {
		return nil, fmt.Errorf("authorization: migrate models: %w", err)
	}
	if err := seedRoles(db); err != nil {
		return nil, err
	}

	users := &UserStore{db: db}
	m := &Module{
		db:       db,
		users:    users,
		accounts: &AccountService{users: users},
		captcha:  NewCaptchaStore(3 * time.Minute),
	}

	middleware, err := m.buildJWTMiddleware()
	if err != nil {
		return nil, err
	}
	m.jwtMiddleware = middleware

	mailer, err := newAdminRequestMailerFromEnv()
	if err != nil {
		// Notification mail is optional; the grant flow still works without it.
		log.Printf("authorization: admin request mailer disabled: %v", err)
		mailer = nil
	}
	m.adminMailer = mailer

	group := router.Group("/auth")
	group.GET("/captcha", m.handleCaptcha)
	group.POST("/register", m.handleRegister)
	group.POST("/login", m.handleLogin)
	group.POST("/refresh", middleware.RefreshHandler)

	secured := group.Group("")
	secured.Use(middleware.MiddlewareFunc())
	secured.GET("/profile", m.handleProfile)
	secured.PUT("/profile", m.handleUpdateProfile)
	secured.POST("/admin-request", m.handleAdminRequest)

	return m, nil
}

// LoginRequest is the login payload; the captcha gates brute forcing.
type LoginRequest struct {
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required"`
	CaptchaID     string `json:"captcha_id" binding:"required"`
	CaptchaAnswer string `json:"captcha_answer" binding:"required"`
}

type RegisterRequest struct {
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required,min=6"`
	DisplayName   string `json:"display_name"`
	CaptchaID     string `json:"captcha_id" binding:"required"`
	CaptchaAnswer string `json:"captcha_answer" binding:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	EmployeeID  *uint   `json:"employee_id"`
}

func (m *Module) handleCaptcha(c *gin.Context) {
	challenge, err := m.captcha.Issue()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate captcha"})
		return
	}

	ttl := int(challenge.TTL.Seconds())
	if ttl < 1 {
		ttl = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"captcha_id":    challenge.ID,
		"captcha_image": challenge.ImageBase64,
		"expires_in":    ttl,
		"expires_at":    challenge.ExpiresAt.UTC(),
	})
}

func (m *Module) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if !m.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
		return
	}

	ctx := c.Request.Context()
	user, err := m.accounts.Register(ctx, req.Username, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrMissingLoginValues):
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		case errors.Is(err, ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrWeakPassword.Error()})
		case errors.Is(err, ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		}
		return
	}

	roles, err := m.users.FindRoleNames(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userResponse(user, roles)})
}

// handleLogin verifies the captcha before handing the body to the JWT login
// handler, which re-reads it.
func (m *Module) handleLogin(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if !m.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
		return
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	m.jwtMiddleware.LoginHandler(c)
}

func (m *Module) handleProfile(c *gin.Context) {
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
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	roles, err := m.users.FindRoleNames(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user, roles)})
}

func (m *Module) handleUpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.DisplayName == nil && req.EmployeeID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	userID := CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx := c.Request.Context()
	user, err := m.users.UpdateProfile(ctx, userID, UpdateProfileParams{
		DisplayName: req.DisplayName,
		EmployeeID:  req.EmployeeID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDisplayName):
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidDisplayName.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		}
		return
	}

	roles, err := m.users.FindRoleNames(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user, roles)})
}

func (m *Module) buildJWTMiddleware() (*jwt.GinJWTMiddleware, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("authorization: JWT_SECRET environment variable is required")
	}

	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:         "hrassist",
		Key:           []byte(secret),
		Timeout:       tokenTimeout,
		MaxRefresh:    tokenRefresh,
		IdentityKey:   identityKey,
		TokenLookup:   "header: Authorization, cookie: jwt, cookie: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			identity, ok := data.(*Identity)
			if !ok {
				return jwt.MapClaims{}
			}
			return jwt.MapClaims{
				identityKey: identity.ID,
				"username":  identity.Username,
				"roles":     identity.Roles,
			}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			username, _ := claims["username"].(string)
			return &Identity{ID: claimUserID(claims), Username: username, Roles: claimRoles(claims)}
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			identity, err := m.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				return nil, err
			}
			c.Set("authenticated_user", identity)
			return identity, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			_, ok := data.(*Identity)
			return ok
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{"error": message})
		},
		LoginResponse:   m.tokenResponse,
		RefreshResponse: m.tokenResponse,
	})
}

// tokenResponse attaches the full user payload next to the token so clients
// need no follow-up profile call.
func (m *Module) tokenResponse(c *gin.Context, code int, token string, expire time.Time) {
	response := gin.H{"token": token, "expire": expire}

	userID := uint(0)
	roles := []string{}
	if value, ok := c.Get("authenticated_user"); ok {
		if identity, ok := value.(*Identity); ok && identity != nil {
			userID = identity.ID
			roles = identity.Roles
		}
	}
	if userID == 0 {
		claims := jwt.ExtractClaims(c)
		userID = claimUserID(claims)
		roles = claimRoles(claims)
	}

	if userID != 0 {
		if user, err := m.users.FindByID(c.Request.Context(), userID); err == nil {
			response["user"] = userResponse(user, roles)
		}
	}
	c.JSON(code, response)
}

// CurrentUserID reads the authenticated user id from the request's JWT
// claims, 0 when unauthenticated.
func CurrentUserID(c *gin.Context) uint {
	return claimUserID(jwt.ExtractClaims(c))
}

func claimUserID(claims jwt.MapClaims) uint {
	switch v := claims[identityKey].(type) {
	case float64:
		return uint(v)
	case int64:
		return uint(v)
	case uint64:
		return uint(v)
	case int:
		return uint(v)
	case uint:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return uint(parsed)
		}
	}
	return 0
}

func claimRoles(claims jwt.MapClaims) []string {
	switch raw := claims["roles"].(type) {
	case []string:
		return append([]string{}, raw...)
	case []interface{}:
		roles := make([]string, 0, len(raw))
		for _, entry := range raw {
			if name, ok := entry.(string); ok {
				roles = append(roles, name)
			}
		}
		return roles
	}
	return []string{}
}

func userResponse(user *User, roles []string) gin.H {
	if user == nil {
		return gin.H{}
	}
	if roles == nil {
		roles = []string{}
	}
	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"display_name":  user.DisplayName,
		"employee_id":   user.EmployeeID,
		"status":        user.Status,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
		"roles":         roles,
	}
}
