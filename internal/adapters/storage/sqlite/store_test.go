package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "insight.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionRoundTripWithPendingTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	sess := &domain.Session{
		ID:        "s1",
		UserID:    "u1",
		Title:     "weekly review",
		CreatedAt: now,
		UpdatedAt: now,
		View:      domain.ViewState{Mode: domain.ModeDefault},
	}
	require.NoError(t, store.CreateSession(ctx, sess))
	require.ErrorIs(t, store.CreateSession(ctx, sess), domain.ErrSessionExists)

	sess.View.Pending = &domain.PendingTransition{Target: domain.ModeCausal, Label: "loading", Progress: 30}
	sess.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.UpdateSession(ctx, sess))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "weekly review", got.Title)
	assert.Equal(t, domain.ModeDefault, got.View.Mode)
	require.NotNil(t, got.View.Pending)
	assert.Equal(t, domain.ModeCausal, got.View.Pending.Target)
	assert.Equal(t, 30, got.View.Pending.Progress)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Minute)))

	sess.View = domain.ViewState{Mode: domain.ModeCausal}
	require.NoError(t, store.UpdateSession(ctx, sess))

	got, err = store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCausal, got.View.Mode)
	assert.Nil(t, got.View.Pending)
}

func TestSessionNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetSession(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = store.UpdateSession(ctx, &domain.Session{ID: "missing", View: domain.ViewState{Mode: domain.ModeDefault}})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListSessionsByUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateSession(ctx, &domain.Session{
			ID:        domain.SessionID(fmt.Sprintf("s%d", i)),
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base,
			View:      domain.ViewState{Mode: domain.ModeDefault},
		}))
	}

	got, err := store.ListSessionsByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SessionID("s2"), got[0].ID)

	none, err := store.ListSessionsByUser(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMessagesKeepInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// identical timestamps: order must still follow insertion
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendMessage(ctx, &domain.Message{
			ID:        domain.MessageID(fmt.Sprintf("m%d", i)),
			SessionID: "s1",
			Author:    domain.RoleUser,
			Text:      fmt.Sprintf("msg %d", i),
			Mode:      domain.ModeDefault,
			CreatedAt: ts,
		}))
	}

	all, err := store.GetMessagesBySession(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, m := range all {
		assert.Equal(t, fmt.Sprintf("msg %d", i), m.Text)
	}

	last, err := store.GetMessagesBySession(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "msg 3", last[0].Text)
	assert.Equal(t, "msg 4", last[1].Text)
}

func TestCorruptTimestampIsReported(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateSession(ctx, &domain.Session{
		ID: "s1", UserID: "u1", CreatedAt: now, UpdatedAt: now,
		View: domain.ViewState{Mode: domain.ModeDefault},
	}))
	require.NoError(t, store.AppendMessage(ctx, &domain.Message{
		ID: "m1", SessionID: "s1", Author: domain.RoleUser, Text: "안녕", CreatedAt: now, Mode: domain.ModeDefault,
	}))

	_, err := store.db.ExecContext(ctx, `UPDATE sessions SET updated_at = 'yesterday' WHERE id = 's1'`)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, `UPDATE messages SET created_at = '' WHERE id = 'm1'`)
	require.NoError(t, err)

	_, err = store.GetSession(ctx, "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Contains(t, err.Error(), "yesterday")

	_, err = store.ListSessionsByUser(ctx, "u1", 10)
	require.Error(t, err)

	_, err = store.GetMessagesBySession(ctx, "s1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m1")
}
