package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore is a TaskStore kept in memory. It backs tests and
// database-less runs, where tasks don't survive a restart.
type MemoryTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	now     func() time.Time
}

// NewMemoryTaskStore creates an empty store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: map[uuid.UUID]*Record{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.records[task.ID()] = &Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   append([]byte(nil), task.Payload()...),
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

func (s *MemoryTaskStore) GetPendingTasks(ctx context.Context) ([]Record, error) {
	return s.find(TaskStatusPending, 0), nil
}

func (s *MemoryTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.find(TaskStatusProcessing, olderThan), nil
}

// Get returns a copy of the record for taskID.
func (s *MemoryTaskStore) Get(taskID uuid.UUID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (s *MemoryTaskStore) find(status TaskStatus, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && rec.UpdatedAt.After(cutoff) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

var _ TaskStore = (*MemoryTaskStore)(nil)
