package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"

	"github.com/lib/pq"
)

const defaultHistoryTable = "chat_messages"

// implements domain.HistoryRepository on PostgreSQL
type PostgresHistoryRepository struct {
	db     *sql.DB
	name   string
	table  string
	logger *logger.Logger
}

func NewPostgresHistoryRepository(db *sql.DB, table string, logger *logger.Logger) *PostgresHistoryRepository {
	if table == "" {
		table = defaultHistoryTable
	}
	return &PostgresHistoryRepository{
		db:     db,
		name:   table,
		table:  pq.QuoteIdentifier(table),
		logger: logger,
	}
}

// creates the messages table and its session index when missing
func (r *PostgresHistoryRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (session_id, created_at)`,
		pq.QuoteIdentifier(r.name+"_session_idx"), r.table)
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) Append(ctx context.Context, sessionID string, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (id, session_id, role, text, created_at) VALUES ($1, $2, $3, $4, $5)`, r.table)
	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx, query, msg.ID, sessionID, string(msg.Role), msg.Text, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": sessionID,
		"count":      len(messages),
	}).Debug("Stored chat messages in postgres")
	return nil
}

// returns the last limit messages oldest first; limit <= 0 returns all
func (r *PostgresHistoryRepository) Recent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		query := fmt.Sprintf(`
			SELECT id, session_id, role, text, created_at FROM %s
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, r.table)
		rows, err = r.db.QueryContext(ctx, query, sessionID, limit)
	} else {
		query := fmt.Sprintf(`
			SELECT id, session_id, role, text, created_at FROM %s
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC`, r.table)
		rows, err = r.db.QueryContext(ctx, query, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			msg  domain.Message
			role string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	// newest first from the query, callers want chronological order
	slices.Reverse(messages)
	return messages, nil
}

func (r *PostgresHistoryRepository) Delete(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, r.table)
	res, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete history for %s: %w", sessionID, err)
	}

	n, _ := res.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": sessionID,
		"deleted":    n,
	}).Info("Deleted chat history")
	return nil
}
