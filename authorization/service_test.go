package authorization

import (
	"context"
	"fmt"
	"testing"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestAccounts(t *testing.T) (*AccountService, *UserStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Role{}, &UserRole{}))
	require.NoError(t, seedRoles(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	users := &UserStore{db: db}
	return &AccountService{users: users}, users
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	accounts, users := newTestAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "jsmith", "hunter22", "Jordan Smith")
	require.NoError(t, err)
	assert.Equal(t, "jsmith", user.Username)
	assert.Equal(t, "Jordan Smith", user.DisplayName)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	roles, err := users.FindRoleNames(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"HR Staff"}, roles)
}

func TestRegisterValidation(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, "", "hunter22", "")
	require.ErrorIs(t, err, jwt.ErrMissingLoginValues)

	_, err = accounts.Register(ctx, "jsmith", "short", "")
	require.ErrorIs(t, err, ErrWeakPassword)

	// Blank display name falls back to the username.
	user, err := accounts.Register(ctx, "jsmith", "hunter22", "  ")
	require.NoError(t, err)
	assert.Equal(t, "jsmith", user.DisplayName)

	_, err = accounts.Register(ctx, "jsmith", "hunter22", "Again")
	require.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, "jsmith", "hunter22", "Jordan Smith")
	require.NoError(t, err)

	identity, err := accounts.Authenticate(ctx, "jsmith", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "jsmith", identity.Username)
	assert.Equal(t, []string{"HR Staff"}, identity.Roles)

	_, err = accounts.Authenticate(ctx, "jsmith", "wrong")
	require.ErrorIs(t, err, jwt.ErrFailedAuthentication)

	_, err = accounts.Authenticate(ctx, "nobody", "hunter22")
	require.ErrorIs(t, err, jwt.ErrFailedAuthentication)

	_, err = accounts.Authenticate(ctx, "", "")
	require.ErrorIs(t, err, jwt.ErrMissingLoginValues)
}

func TestGrantRoleByCodeIsIdempotent(t *testing.T) {
	accounts, users := newTestAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "jsmith", "hunter22", "")
	require.NoError(t, err)

	assigned, err := users.GrantRoleByCode(ctx, user.ID, "admin")
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = users.GrantRoleByCode(ctx, user.ID, "admin")
	require.NoError(t, err)
	assert.False(t, assigned)

	roles, err := users.FindRoleNames(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	_, err = users.GrantRoleByCode(ctx, user.ID, "superuser")
	require.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	accounts, users := newTestAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "jsmith", "hunter22", "Jordan Smith")
	require.NoError(t, err)

	blank := "  "
	_, err = users.UpdateProfile(ctx, user.ID, UpdateProfileParams{DisplayName: &blank})
	require.ErrorIs(t, err, ErrInvalidDisplayName)

	name := "Jordan S."
	employee := uint(7)
	updated, err := users.UpdateProfile(ctx, user.ID, UpdateProfileParams{
		DisplayName: &name,
		EmployeeID:  &employee,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jordan S.", updated.DisplayName)
	require.NotNil(t, updated.EmployeeID)
	assert.Equal(t, uint(7), *updated.EmployeeID)

	// Zero clears the employee link.
	zero := uint(0)
	updated, err = users.UpdateProfile(ctx, user.ID, UpdateProfileParams{EmployeeID: &zero})
	require.NoError(t, err)
	assert.Nil(t, updated.EmployeeID)

	_, err = users.UpdateProfile(ctx, 9999, UpdateProfileParams{DisplayName: &name})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSanitizeMailHeader(t *testing.T) {
	assert.Equal(t, "ops@example.com", sanitizeMailHeader("  ops@example.com  "))
	assert.Equal(t, "a  b c", sanitizeMailHeader("a\r\nb\nc"))
	assert.Equal(t, "plain", sanitizeMailHeader("plain"))
}

func TestEncodeMailSubject(t *testing.T) {
	assert.Equal(t, "Admin Access Request", encodeMailSubject("Admin Access Request"))
	assert.Contains(t, encodeMailSubject("Zugriff prüfen"), "=?UTF-8?B?")
}
