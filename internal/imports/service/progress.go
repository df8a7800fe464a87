package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the lifecycle of an import job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// maxRecordedFailures caps the per-row failures kept in a progress snapshot.
const maxRecordedFailures = 100

// RecordFailure describes why one row did not import. Row is 1-based.
type RecordFailure struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Progress is the live state of an import job.
type Progress struct {
	JobID      string          `json:"jobId"`
	Status     Status          `json:"status"`
	Total      int             `json:"total"`
	Processed  int             `json:"processed"`
	Success    int             `json:"success"`
	Errors     int             `json:"errors"`
	Created    int             `json:"created"`
	Updated    int             `json:"updated"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

// ProgressStore persists progress snapshots for polling clients.
type ProgressStore interface {
	Save(ctx context.Context, progress Progress) error
	Get(ctx context.Context, jobID string) (Progress, bool, error)
}

// MemoryProgressStore keeps progress in process memory.
type MemoryProgressStore struct {
	mu   sync.RWMutex
	jobs map[string]Progress
}

// NewMemoryProgressStore creates an empty store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{jobs: make(map[string]Progress)}
}

func (s *MemoryProgressStore) Save(_ context.Context, progress Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress.Failures = append([]RecordFailure(nil), progress.Failures...)
	s.jobs[progress.JobID] = progress
	return nil
}

func (s *MemoryProgressStore) Get(_ context.Context, jobID string) (Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.jobs[jobID]
	return progress, ok, nil
}

const (
	redisProgressPrefix = "imports:progress:"
	redisProgressTTL    = 24 * time.Hour
)

// RedisProgressStore shares progress between the API and the worker process.
type RedisProgressStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisProgressStore creates a store backed by client.
func NewRedisProgressStore(client redis.Cmdable) *RedisProgressStore {
	return &RedisProgressStore{client: client, ttl: redisProgressTTL}
}

func (s *RedisProgressStore) Save(ctx context.Context, progress Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisProgressPrefix+progress.JobID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save import progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Get(ctx context.Context, jobID string) (Progress, bool, error) {
	data, err := s.client.Get(ctx, redisProgressPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Progress{}, false, nil
		}
		return Progress{}, false, fmt.Errorf("failed to load import progress: %w", err)
	}

	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return Progress{}, false, fmt.Errorf("failed to decode import progress: %w", err)
	}
	return progress, true, nil
}

var (
	_ ProgressStore = (*MemoryProgressStore)(nil)
	_ ProgressStore = (*RedisProgressStore)(nil)
)
