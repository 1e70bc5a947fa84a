package authorization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jwt "github.com/appleboy/gin-jwt/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("authorization: username already exists")
	ErrWeakPassword       = errors.New("authorization: password must be at least 6 characters")
	ErrInvalidDisplayName = errors.New("authorization: display name cannot be empty")
)

// Identity is the minimal caller description carried in JWT claims.
type Identity struct {
	ID       uint
	Username string
	Roles    []string
}

// AccountService covers credential checks and account creation over the
// user store.
type AccountService struct {
	users *UserStore
}

// Authenticate verifies the password and loads the caller's roles. Wrong
// credentials surface as the middleware's failed-authentication error so the
// response never says which half was wrong.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, jwt.ErrMissingLoginValues
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jwt.ErrFailedAuthentication
		}
		return nil, fmt.Errorf("authorization: authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, jwt.ErrFailedAuthentication
	}

	roles, err := s.users.FindRoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("authorization: load roles: %w", err)
	}
	s.users.touchLastLogin(ctx, user.ID)

	return &Identity{ID: user.ID, Username: user.Username, Roles: roles}, nil
}

// Register creates an account and attaches the default HR role.
func (s *AccountService) Register(ctx context.Context, username, password, displayName string) (*User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	displayName = strings.TrimSpace(displayName)

	if username == "" || password == "" {
		return nil, jwt.ErrMissingLoginValues
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("authorization: hash password: %w", err)
	}

	user := &User{Username: username, PasswordHash: string(hash), DisplayName: displayName}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("authorization: create user: %w", err)
	}
	if err := s.users.AssignRole(ctx, user.ID, "hr"); err != nil {
		return nil, fmt.Errorf("authorization: assign default role: %w", err)
	}
	return user, nil
}
