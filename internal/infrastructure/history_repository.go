package infrastructure

import (
	"context"
	"sync"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"
)

// implements domain.HistoryRepository in process memory
type MemoryHistoryRepository struct {
	data   map[string][]domain.Message
	mutex  sync.RWMutex
	logger *logger.Logger
}

func NewMemoryHistoryRepository(logger *logger.Logger) *MemoryHistoryRepository {
	return &MemoryHistoryRepository{
		data:   make(map[string][]domain.Message),
		logger: logger,
	}
}

func (r *MemoryHistoryRepository) Append(ctx context.Context, sessionID string, messages ...domain.Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, msg := range messages {
		msg.SessionID = sessionID
		r.data[sessionID] = append(r.data[sessionID], msg)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": sessionID,
		"count":      len(messages),
	}).Debug("Stored chat messages in memory")
	return nil
}

// returns the last limit messages oldest first; limit <= 0 returns all
func (r *MemoryHistoryRepository) Recent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	messages := r.data[sessionID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	result := make([]domain.Message, len(messages))
	copy(result, messages)
	return result, nil
}

func (r *MemoryHistoryRepository) Delete(ctx context.Context, sessionID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, sessionID)

	r.logger.WithContext(ctx).WithField("session_id", sessionID).Info("Deleted chat history")
	return nil
}
