package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyTime = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

func turns() []domain.Message {
	return []domain.Message{
		{ID: "m1", Role: domain.RoleUser, Text: "cost bulan ini?", CreatedAt: historyTime},
		{ID: "m2", Role: domain.RoleAssistant, Text: "Total Cost Rp 100.", CreatedAt: historyTime.Add(time.Second)},
		{ID: "m3", Role: domain.RoleUser, Text: "kalau ctr?", CreatedAt: historyTime.Add(2 * time.Second)},
	}
}

func TestMemoryHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository(logger.Discard())

	require.NoError(t, repo.Append(ctx, "sess-1", turns()...))
	require.NoError(t, repo.Append(ctx, "sess-2", turns()[0]))

	all, err := repo.Recent(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sess-1", all[0].SessionID)

	last, err := repo.Recent(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "m2", last[0].ID)
	assert.Equal(t, "m3", last[1].ID)

	// returned slices are copies
	last[0].Text = "changed"
	again, err := repo.Recent(ctx, "sess-1", 2)
	require.NoError(t, err)
	assert.Equal(t, "Total Cost Rp 100.", again[0].Text)

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	gone, err := repo.Recent(ctx, "sess-1", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)

	other, err := repo.Recent(ctx, "sess-2", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestPostgresHistoryEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "chat_messages"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "chat_messages_session_idx" ON "chat_messages"`).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresHistoryRepository(db, "", logger.Discard())
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	msgs := turns()[:2]
	mock.ExpectBegin()
	for _, m := range msgs {
		mock.ExpectExec(`INSERT INTO "chat_messages"`).
			WithArgs(m.ID, "sess-1", string(m.Role), m.Text, m.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	repo := NewPostgresHistoryRepository(db, "", logger.Discard())
	require.NoError(t, repo.Append(context.Background(), "sess-1", msgs...))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryAppendRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "chat_messages"`).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	repo := NewPostgresHistoryRepository(db, "", logger.Discard())
	err = repo.Append(context.Background(), "sess-1", turns()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert message m1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	msgs := turns()
	rows := sqlmock.NewRows([]string{"id", "session_id", "role", "text", "created_at"}).
		AddRow(msgs[2].ID, "sess-1", "user", msgs[2].Text, msgs[2].CreatedAt).
		AddRow(msgs[1].ID, "sess-1", "assistant", msgs[1].Text, msgs[1].CreatedAt)
	mock.ExpectQuery(`SELECT id, session_id, role, text, created_at FROM "history"`).
		WithArgs("sess-1", 2).
		WillReturnRows(rows)

	repo := NewPostgresHistoryRepository(db, "history", logger.Discard())
	got, err := repo.Recent(context.Background(), "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, domain.RoleAssistant, got[0].Role)
	assert.Equal(t, "m3", got[1].ID)
	assert.Equal(t, historyTime.Add(2*time.Second), got[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHistoryDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM "chat_messages" WHERE session_id = \$1`).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewPostgresHistoryRepository(db, "", logger.Discard())
	require.NoError(t, repo.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
