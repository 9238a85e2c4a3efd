package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/linkresolver/internal/models"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

// InMemorySettingsRepository keeps provider settings for local development
// and deployments without a database.
type InMemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemorySettingsRepository returns an empty settings store.
func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{}
}

// Load returns the saved configuration or ErrNotFound.
func (s *InMemorySettingsRepository) Load(_ context.Context) (resolver.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values == nil {
		return resolver.ProviderConfig{}, ErrNotFound
	}
	return rowsToSettings(s.values)
}

// Save replaces the stored configuration.
func (s *InMemorySettingsRepository) Save(_ context.Context, cfg resolver.ProviderConfig) error {
	s.mu.Lock()
	s.values = settingsToRows(cfg)
	s.mu.Unlock()
	return nil
}

// InMemoryHistoryRepository keeps the most recent resolution records in a
// bounded buffer.
type InMemoryHistoryRepository struct {
	mu       sync.RWMutex
	records  []models.ResolutionRecord
	capacity int
}

// NewInMemoryHistoryRepository keeps at most capacity records.
func NewInMemoryHistoryRepository(capacity int) *InMemoryHistoryRepository {
	if capacity <= 0 {
		capacity = MaxHistoryLimit
	}
	return &InMemoryHistoryRepository{capacity: capacity}
}

// Record appends a record, evicting the oldest when full.
func (s *InMemoryHistoryRepository) Record(_ context.Context, record models.ResolutionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.ID == record.ID {
			return ErrConflict
		}
	}
	s.records = append(s.records, record)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append([]models.ResolutionRecord(nil), s.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *InMemoryHistoryRepository) Recent(_ context.Context, limit int) ([]models.ResolutionRecord, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ResolutionRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
