package erp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return store
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func TestStoreCreateAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "employee", Record{
		"name":       "Alice Nguyen",
		"work_email": "alice@example.com",
		"active":     true,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	record, err := store.Read(ctx, "employee", id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice Nguyen", record["name"])
	assert.Equal(t, "alice@example.com", record["work_email"])
	assert.Equal(t, true, record["active"])
	assert.Nil(t, record["department_id"])
}

func TestStoreReadFieldFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "employee", Record{"name": "Bob Tran"})
	require.NoError(t, err)

	record, err := store.Read(ctx, "employee", id, []string{"name"})
	require.NoError(t, err)
	assert.Len(t, record, 1)
	assert.Equal(t, "Bob Tran", record["name"])

	_, err = store.Read(ctx, "employee", id, []string{"nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreReadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(context.Background(), "employee", 9999, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUnknownModel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Search(ctx, "spaceship", nil, 0, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Create(ctx, "spaceship", Record{"name": "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreCreateUnknownField(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), "employee", Record{"name": "Eve", "favorite_color": "red"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreCreateKeepsExplicitFalse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The active column carries a true default; an explicit false must win.
	id, err := store.Create(ctx, "employee", Record{"name": "Carol Pham", "active": false})
	require.NoError(t, err)

	record, err := store.Read(ctx, "employee", id, nil)
	require.NoError(t, err)
	assert.Equal(t, false, record["active"])

	count, err := store.Count(ctx, "employee", Domain{F("active", "=", true)})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "department", Record{"name": "Engineering"})
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "department", id, Record{"name": "Platform Engineering"}))

	record, err := store.Read(ctx, "department", id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineering", record["name"])

	err = store.Write(ctx, "department", 4242, Record{"name": "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Write(ctx, "department", id, Record{"unknown_col": 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreArchive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "job", Record{"name": "Backend Engineer", "active": true})
	require.NoError(t, err)

	require.NoError(t, store.Archive(ctx, "job", id))

	record, err := store.Read(ctx, "job", id, nil)
	require.NoError(t, err)
	assert.Equal(t, false, record["active"])

	// Attendance has no active flag, so archival is rejected.
	err = store.Archive(ctx, "attendance", 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreSearchAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"Alice Nguyen", "Bob Tran", "Carol Pham"}
	for i, name := range names {
		_, err := store.Create(ctx, "employee", Record{"name": name, "active": i != 2})
		require.NoError(t, err)
	}

	active, err := store.Search(ctx, "employee", Domain{F("active", "=", true)}, 0, "name")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Alice Nguyen", active[0]["name"])
	assert.Equal(t, "Bob Tran", active[1]["name"])

	limited, err := store.Search(ctx, "employee", nil, 1, "name desc")
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Carol Pham", limited[0]["name"])

	count, err := store.Count(ctx, "employee", Domain{F("active", "=", false)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStoreSearchIlike(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "employee", Record{"name": "Nguyen Van An"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "employee", Record{"name": "Tran Thi Binh"})
	require.NoError(t, err)

	records, err := store.Search(ctx, "employee", Domain{F("name", "ilike", "nguyen")}, 0, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Nguyen Van An", records[0]["name"])
}

func TestStoreSearchOrDomain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "leave_request", Record{
		"name": "Annual leave", "employee_id": 1, "leave_type_id": 1,
		"date_from": mustTime(t, "2026-03-02"), "date_to": mustTime(t, "2026-03-04"),
		"number_of_days": 3, "state": "draft",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, "leave_request", Record{
		"name": "Sick leave", "employee_id": 2, "leave_type_id": 1,
		"date_from": mustTime(t, "2026-03-09"), "date_to": mustTime(t, "2026-03-09"),
		"number_of_days": 1, "state": "validate",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, "leave_request", Record{
		"name": "Unpaid leave", "employee_id": 3, "leave_type_id": 1,
		"date_from": mustTime(t, "2026-03-16"), "date_to": mustTime(t, "2026-03-16"),
		"number_of_days": 1, "state": "refuse",
	})
	require.NoError(t, err)

	records, err := store.Search(ctx, "leave_request", Domain{
		Or(), F("state", "=", "draft"), F("state", "=", "validate"),
	}, 0, "id")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Annual leave", records[0]["name"])
	assert.Equal(t, "Sick leave", records[1]["name"])
}

func TestStoreSearchInvalidOrder(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), "employee", nil, 0, "favorite_color")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Search(context.Background(), "employee", nil, 0, "name sideways")
	assert.ErrorIs(t, err, ErrValidation)
}
