package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrassist_back/erp"
)

func seedConversation(t *testing.T, env *testEnv, userID uint, turns ...string) *Conversation {
	t.Helper()
	ctx := context.Background()

	conv, err := env.store.GetOrCreate(ctx, userID, 0)
	require.NoError(t, err)

	role := RoleUser
	for _, content := range turns {
		_, err := env.store.AppendMessage(ctx, conv.ID, role, content, MessageMeta{})
		require.NoError(t, err)
		if role == RoleUser {
			role = RoleAssistant
		} else {
			role = RoleUser
		}
	}
	return conv
}

func TestStoreOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "hello", "hi")

	_, err := env.store.GetOrCreate(ctx, 2, conv.ID)
	require.ErrorIs(t, err, erp.ErrAccess)

	_, err = env.store.ListRecent(ctx, 2, conv.ID, 10)
	require.ErrorIs(t, err, erp.ErrAccess)

	require.ErrorIs(t, env.store.SoftDelete(ctx, 2, conv.ID), erp.ErrAccess)
	require.ErrorIs(t, env.store.UpdateTitle(ctx, 2, conv.ID, "stolen"), erp.ErrAccess)

	_, err = env.store.GetOrCreate(ctx, 1, 9999)
	require.ErrorIs(t, err, erp.ErrNotFound)
}

func TestStoreAppendAssignsSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "one", "two", "three")

	messages, err := env.store.ListRecent(ctx, 1, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, i+1, msg.Seq)
	}
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "three", messages[2].Content)
}

func TestStoreListRecentHonorsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "a", "b", "c", "d")

	messages, err := env.store.ListRecent(ctx, 1, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// Most recent two, still in ascending order.
	assert.Equal(t, "c", messages[0].Content)
	assert.Equal(t, "d", messages[1].Content)
}

func TestStoreHistoryWindowSkipsSystemRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "question", "answer")
	trace := "internal reasoning"
	_, err := env.store.AppendMessage(ctx, conv.ID, RoleSystem, "", MessageMeta{ReasoningTrace: &trace})
	require.NoError(t, err)

	history, err := env.store.HistoryWindow(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
}

func TestStoreSoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "keep me", "ok")

	require.NoError(t, env.store.SoftDelete(ctx, 1, conv.ID))

	active, err := env.store.List(ctx, 1, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	deleted, err := env.store.List(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, int64(2), deleted[0].MessageCount)

	// Messages survive the soft delete.
	messages, err := env.store.ListRecent(ctx, 1, conv.ID, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	require.NoError(t, env.store.Restore(ctx, 1, conv.ID))
	active, err = env.store.List(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStoreHardDeleteRemovesMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "gone", "soon")
	require.NoError(t, env.store.HardDelete(ctx, 1, conv.ID))

	_, err := env.store.GetOrCreate(ctx, 1, conv.ID)
	require.ErrorIs(t, err, erp.ErrNotFound)

	var count int64
	require.NoError(t, env.db.Model(&Message{}).Where("conversation_id = ?", conv.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStoreUpdateTitle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1)

	require.ErrorIs(t, env.store.UpdateTitle(ctx, 1, conv.ID, "  "), erp.ErrValidation)
	require.NoError(t, env.store.UpdateTitle(ctx, 1, conv.ID, "Quarterly review prep"))

	reloaded, err := env.store.GetOrCreate(ctx, 1, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly review prep", reloaded.Title)
}

func TestStoreDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1, "original question", "original answer")
	require.NoError(t, env.store.UpdateTitle(ctx, 1, conv.ID, "Payroll"))

	clone, err := env.store.Duplicate(ctx, 1, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Payroll (copy)", clone.Title)
	assert.NotEqual(t, conv.ID, clone.ID)

	messages, err := env.store.ListRecent(ctx, 1, clone.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "original question", messages[0].Content)
	assert.Equal(t, 1, messages[0].Seq)
}

func TestStoreBulkSetActiveRejectsForeignIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine := seedConversation(t, env, 1)
	theirs := seedConversation(t, env, 2)

	err := env.store.BulkSetActive(ctx, 1, []uint{mine.ID, theirs.ID}, false)
	require.ErrorIs(t, err, erp.ErrAccess)

	// The batch failed as a whole.
	active, err := env.store.List(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.ErrorIs(t, env.store.BulkSetActive(ctx, 1, nil, false), erp.ErrValidation)

	require.NoError(t, env.store.BulkSetActive(ctx, 1, []uint{mine.ID}, false))
	active, err = env.store.List(ctx, 1, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStoreSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payroll := seedConversation(t, env, 1, "How do I run payroll?", "Use the payroll module.")
	require.NoError(t, env.store.UpdateTitle(ctx, 1, payroll.ID, "Payroll help"))
	seedConversation(t, env, 1, "Unrelated chit chat", "Sure.")
	seedConversation(t, env, 2, "payroll for someone else", "ok")

	_, err := env.store.Search(ctx, 1, "   ", 10)
	require.ErrorIs(t, err, erp.ErrValidation)

	byTitle, err := env.store.Search(ctx, 1, "PAYROLL", 10)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, payroll.ID, byTitle[0].ID)

	byContent, err := env.store.Search(ctx, 1, "chit chat", 10)
	require.NoError(t, err)
	require.Len(t, byContent, 1)
}

func TestStoreStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedConversation(t, env, 1, "a", "b")
	gone := seedConversation(t, env, 1, "c")
	require.NoError(t, env.store.SoftDelete(ctx, 1, gone.ID))
	seedConversation(t, env, 2, "not yours")

	stats, err := env.store.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["active_conversations"])
	assert.Equal(t, int64(1), stats["deleted_conversations"])
	assert.Equal(t, int64(3), stats["total_messages"])
}

func TestStoreAppendBlankContentPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, 1)
	msg, err := env.store.AppendMessage(ctx, conv.ID, RoleAssistant, "   ", MessageMeta{})
	require.NoError(t, err)
	assert.Equal(t, emptyContentPlaceholder, msg.Content)
}
