package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by RowCache.Get when the key is absent or expired.
	ErrCacheMiss = errors.New("row cache miss")
	// ErrAnswerNotConfigured is returned by an AnswerGenerator with no gateway URL.
	ErrAnswerNotConfigured = errors.New("answer gateway URL not configured")
)

// fetches worksheet rows from a spreadsheet source
type RowSource interface {
	FetchWorksheets(ctx context.Context, sourceID string) ([]Worksheet, error)
}

// caches fetched rows per source
type RowCache interface {
	Get(ctx context.Context, key string) ([]Worksheet, error)
	Set(ctx context.Context, key string, worksheets []Worksheet) error
	Status(ctx context.Context) ([]CacheEntry, error)
	Clear(ctx context.Context) (int, error)
}

// interface for chat history persistence
type HistoryRepository interface {
	Append(ctx context.Context, sessionID string, messages ...Message) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	Delete(ctx context.Context, sessionID string) error
}

// produces a natural-language answer from an aggregate summary
type AnswerGenerator interface {
	Generate(ctx context.Context, req AnswerRequest) (string, error)
}

type CacheEntry struct {
	Key       string        `json:"key"`
	Rows      int           `json:"rows"`
	Age       time.Duration `json:"age"`
	ExpiresIn time.Duration `json:"expires_in"`
	Expired   bool          `json:"expired"`
}
