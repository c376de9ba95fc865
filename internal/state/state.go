package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	fieldPercent   = "percent"
	fieldPages     = "pages"
	fieldProducts  = "products"
	fieldUpdatedAt = "updated_at"

	writeTimeout = 5 * time.Second
)

// Progress is the last projection mirrored for a job.
type Progress struct {
	Percent   *float64
	Pages     string
	Products  int
	UpdatedAt time.Time
}

// ProgressStore mirrors job progress so other processes can read it.
type ProgressStore interface {
	Sink(jobID domain.JobID) poller.Sink
	GetProgress(ctx context.Context, jobID domain.JobID) (*Progress, error)
	DeleteProgress(ctx context.Context, jobID domain.JobID) error
}

type redisProgressStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisProgressStore(redisClient *redis.Client, ttl time.Duration) ProgressStore {
	return &redisProgressStore{
		redisClient: redisClient,
		keyPrefix:   "tracker:progress:job:",
		ttl:         ttl,
	}
}

func (s *redisProgressStore) key(jobID domain.JobID) string {
	return s.keyPrefix + jobID.String()
}

func (s *redisProgressStore) Sink(jobID domain.JobID) poller.Sink {
	return &redisSink{store: s, jobID: jobID}
}

func (s *redisProgressStore) GetProgress(ctx context.Context, jobID domain.JobID) (*Progress, error) {
	values, err := s.redisClient.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for job %s: %w", jobID, err)
	}
	if len(values) == 0 {
		return nil, nil // Nothing mirrored yet
	}

	progress := &Progress{Pages: values[fieldPages]}

	if raw, ok := values[fieldPercent]; ok {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse percent for job %s: %w", jobID, err)
		}
		progress.Percent = &pct
	}

	if raw, ok := values[fieldProducts]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse product count for job %s: %w", jobID, err)
		}
		progress.Products = n
	}

	if raw, ok := values[fieldUpdatedAt]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			progress.UpdatedAt = ts
		}
	}

	return progress, nil
}

func (s *redisProgressStore) DeleteProgress(ctx context.Context, jobID domain.JobID) error {
	if err := s.redisClient.Del(ctx, s.key(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to delete progress for job %s: %w", jobID, err)
	}
	return nil
}

func (s *redisProgressStore) save(ctx context.Context, jobID domain.JobID, values map[string]interface{}) error {
	key := s.key(jobID)

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save progress for job %s: %w", jobID, err)
	}
	return nil
}

// redisSink buffers one projection and writes it as a single hash update.
type redisSink struct {
	store *redisProgressStore
	jobID domain.JobID

	mu      sync.Mutex
	pending map[string]interface{}
}

func (s *redisSink) set(field string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[string]interface{}, 4)
	}
	s.pending[field] = value
}

func (s *redisSink) SetProgress(pct float64) {
	s.set(fieldPercent, strconv.FormatFloat(pct, 'f', -1, 64))
}

func (s *redisSink) SetPageIndicator(text string) {
	s.set(fieldPages, text)
}

func (s *redisSink) SetProductCount(n int) {
	s.set(fieldProducts, n)
}

func (s *redisSink) Flush() {
	s.mu.Lock()
	values := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(values) == 0 {
		return
	}
	values[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.store.save(ctx, s.jobID, values); err != nil {
		log.Warnf("⚠️ Failed to mirror progress: %v", err)
	}
}
