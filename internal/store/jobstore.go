package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"uiforge/internal/merge"
)

// ErrNotFound is returned when a job or result does not exist.
var ErrNotFound = errors.New("not found")

// Job is one generation job as seen by the API layer.
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobPartial   = "partial"
	JobFailed    = "failed"
)

// JobStore keeps job records and their aggregate results. With a
// Postgres DSN it persists through the pgx driver; otherwise
// everything lives in memory for the duration of the process.
type JobStore struct {
	db *sql.DB

	mu      sync.RWMutex
	jobs    map[string]Job
	results map[string][]byte

	schemaOnce sync.Once
	schemaErr  error

	resultCache *lru.Cache[string, []byte]
}

// New returns a memory-backed store.
func New() *JobStore {
	cacheLRU, _ := lru.New[string, []byte](128)
	return &JobStore{
		jobs:        map[string]Job{},
		results:     map[string][]byte{},
		resultCache: cacheLRU,
	}
}

// NewPostgres opens a Postgres-backed store via the pgx stdlib driver.
func NewPostgres(dsn string) (*JobStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cacheLRU, err := lru.New[string, []byte](128)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &JobStore{db: db, resultCache: cacheLRU}, nil
}

// NewFromEnv prefers JOB_STORE_PG_DSN and falls back to memory when it
// is unset or unreachable.
func NewFromEnv() *JobStore {
	dsn := strings.TrimSpace(os.Getenv("JOB_STORE_PG_DSN"))
	if dsn == "" {
		return New()
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New()
	}
	return s
}

func (s *JobStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *JobStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
  id          TEXT PRIMARY KEY,
  status      TEXT NOT NULL,
  error       TEXT NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL,
  updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS job_results (
  job_id      TEXT PRIMARY KEY REFERENCES jobs(id),
  result      JSONB NOT NULL
);`)
	})
	return s.schemaErr
}

// Put creates or replaces a job record.
func (s *JobStore) Put(ctx context.Context, job Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	if s.db == nil {
		s.mu.Lock()
		s.jobs[job.ID] = job
		s.mu.Unlock()
		return nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (id, status, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET status = $2, error = $3, updated_at = $5`,
		job.ID, job.Status, job.Error, job.CreatedAt, job.UpdatedAt)
	return err
}

// SetStatus updates a job's status (and error message, may be empty).
func (s *JobStore) SetStatus(ctx context.Context, id, status, errMsg string) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		job, ok := s.jobs[id]
		if !ok {
			return ErrNotFound
		}
		job.Status = status
		job.Error = errMsg
		job.UpdatedAt = time.Now().UTC()
		s.jobs[id] = job
		return nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		id, status, errMsg, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one job record.
func (s *JobStore) Get(ctx context.Context, id string) (Job, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		job, ok := s.jobs[id]
		if !ok {
			return Job{}, ErrNotFound
		}
		return job, nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Job{}, err
	}
	var job Job
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, error, created_at, updated_at FROM jobs WHERE id = $1`, id).
		Scan(&job.ID, &job.Status, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// SaveResult persists a job's aggregate result.
func (s *JobStore) SaveResult(ctx context.Context, id string, result *merge.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.resultCache.Add(id, raw)

	if s.db == nil {
		s.mu.Lock()
		s.results[id] = raw
		s.mu.Unlock()
		return nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO job_results (job_id, result) VALUES ($1, $2)
ON CONFLICT (job_id) DO UPDATE SET result = $2`, id, raw)
	return err
}

// GetResult loads a job's aggregate result, serving repeat reads from
// the in-process LRU.
func (s *JobStore) GetResult(ctx context.Context, id string) (*merge.Result, error) {
	if raw, ok := s.resultCache.Get(id); ok {
		return decodeResult(raw)
	}
	var raw []byte
	if s.db == nil {
		s.mu.RLock()
		raw = s.results[id]
		s.mu.RUnlock()
		if raw == nil {
			return nil, ErrNotFound
		}
	} else {
		if err := s.ensureSchema(ctx); err != nil {
			return nil, err
		}
		err := s.db.QueryRowContext(ctx,
			`SELECT result FROM job_results WHERE job_id = $1`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	s.resultCache.Add(id, raw)
	return decodeResult(raw)
}

func decodeResult(raw []byte) (*merge.Result, error) {
	var res merge.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
