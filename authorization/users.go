package authorization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an application account. EmployeeID links the account to its HR
// employee record when the user is also on the payroll.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:128;not null;default:''"`
	EmployeeID   *uint  `gorm:"index"`
	Status       string `gorm:"size:32;default:'active'"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:64;not null"`
	Code      string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserRole struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"uniqueIndex:idx_user_role;not null"`
	RoleID    uint `gorm:"uniqueIndex:idx_user_role;not null"`
	CreatedAt time.Time
}

// seedRoles inserts the built-in roles when missing so registration always
// has a default role to attach.
func seedRoles(db *gorm.DB) error {
	for _, role := range []Role{
		{Name: "Administrator", Code: "admin"},
		{Name: "HR Staff", Code: "hr"},
	} {
		var count int64
		if err := db.Model(&Role{}).Where("code = ?", role.Code).Count(&count).Error; err != nil {
			return fmt.Errorf("authorization: check role %s: %w", role.Code, err)
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("authorization: seed role %s: %w", role.Code, err)
		}
	}
	return nil
}

// UserStore is the gorm-backed account repository.
type UserStore struct {
	db *gorm.DB
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Take(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// AssignRole links the user to the role with the given code.
func (s *UserStore) AssignRole(ctx context.Context, userID uint, code string) error {
	var role Role
	if err := s.db.WithContext(ctx).Take(&role, "code = ?", code).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&UserRole{UserID: userID, RoleID: role.ID}).Error
}

// GrantRoleByCode assigns the role unless already assigned. The boolean
// reports whether a new assignment was made.
func (s *UserStore) GrantRoleByCode(ctx context.Context, userID uint, code string) (bool, error) {
	var role Role
	if err := s.db.WithContext(ctx).Take(&role, "code = ?", code).Error; err != nil {
		return false, err
	}

	var existing UserRole
	err := s.db.WithContext(ctx).
		Take(&existing, "user_id = ? AND role_id = ?", userID, role.ID).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := s.db.WithContext(ctx).Create(&UserRole{UserID: userID, RoleID: role.ID}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// FindRoleNames returns the role names assigned to the user, never nil.
func (s *UserStore) FindRoleNames(ctx context.Context, userID uint) ([]string, error) {
	roles := []string{}
	err := s.db.WithContext(ctx).
		Model(&Role{}).
		Select("roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// UpdateProfileParams holds the fields eligible for profile updates. A zero
// EmployeeID clears the link.
type UpdateProfileParams struct {
	DisplayName *string
	EmployeeID  *uint
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID uint, params UpdateProfileParams) (*User, error) {
	values := map[string]any{}

	if params.DisplayName != nil {
		name := strings.TrimSpace(*params.DisplayName)
		if name == "" {
			return nil, ErrInvalidDisplayName
		}
		values["display_name"] = name
	}
	if params.EmployeeID != nil {
		if *params.EmployeeID == 0 {
			values["employee_id"] = nil
		} else {
			values["employee_id"] = *params.EmployeeID
		}
	}
	if len(values) == 0 {
		return s.FindByID(ctx, userID)
	}

	values["updated_at"] = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.FindByID(ctx, userID)
}

func (s *UserStore) touchLastLogin(ctx context.Context, userID uint) {
	now := time.Now().UTC()
	_ = s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("last_login_at", &now).Error
}
