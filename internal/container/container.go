package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"producttracker/watcher/internal/client"
	"producttracker/watcher/internal/config"
	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"
	"producttracker/watcher/internal/service"
	"producttracker/watcher/internal/state"
	"producttracker/watcher/internal/ui"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const progressTTL = 24 * time.Hour

// Container holds all initialized components
type Container struct {
	Config  *config.Config
	Client  client.TrackerClient
	Store   state.ProgressStore // nil unless redis.enabled
	Service *service.Service

	out   io.Writer
	redis *redis.Client
}

// New creates a new container with all dependencies initialized. Progress
// lines go to stdout.
func New(cfg *config.Config) (*Container, error) {
	return NewWithOutput(cfg, os.Stdout)
}

func NewWithOutput(cfg *config.Config, out io.Writer) (*Container, error) {
	container := &Container{
		Config: cfg,
		out:    out,
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.Store = state.NewRedisProgressStore(rdb, progressTTL)
	}

	container.Client = client.NewTrackerClient(cfg.Tracker)
	container.Service = service.NewService(container.Client, container.sinkFor, cfg.Tracker.PollInterval)

	return container, nil
}

func (c *Container) sinkFor(jobID domain.JobID, page string) poller.Sink {
	sinks := ui.MultiSink{ui.NewTerminalSink(c.out, jobID)}
	if c.Store != nil {
		sinks = append(sinks, c.Store.Sink(jobID))
	}

	if dir := c.Config.Tracker.SnapshotDir; dir != "" {
		snapshot, err := c.snapshotSink(dir, jobID, page)
		if err != nil {
			log.Warnf("⚠️ Page snapshot disabled for job %s: %v", jobID, err)
		} else {
			log.Infof("📄 Writing live page for job %s to %s", jobID, snapshot.Path())
			sinks = append(sinks, snapshot)
		}
	}

	return sinks
}

func (c *Container) snapshotSink(dir string, jobID domain.JobID, page string) (*ui.SnapshotSink, error) {
	path, err := ui.SnapshotPath(dir, jobID.String())
	if err != nil {
		return nil, err
	}
	return ui.NewSnapshotSink(page, path)
}

// WatchAll watches every job concurrently. Results keep the order of jobIDs;
// a job that fails does not stop the others. The entry of a job whose page
// could not be read is nil, and the first failure is returned.
func (c *Container) WatchAll(ctx context.Context, jobIDs []domain.JobID) ([]*service.WatchResult, error) {
	results := make([]*service.WatchResult, len(jobIDs))
	var g errgroup.Group

	for i, jobID := range jobIDs {
		g.Go(func() error {
			result, err := c.Service.Watch(ctx, jobID)
			results[i] = result
			if err != nil {
				log.Errorf("❌ Watching job %s failed: %v", jobID, err)
				return fmt.Errorf("job %s: %w", jobID, err)
			}
			return nil
		})
	}

	return results, g.Wait()
}

// DeleteJob deletes the job on the tracker and drops its mirrored progress.
func (c *Container) DeleteJob(ctx context.Context, jobID domain.JobID) error {
	if err := c.Service.Delete(ctx, jobID); err != nil {
		return err
	}

	if c.Store != nil {
		if err := c.Store.DeleteProgress(ctx, jobID); err != nil {
			return fmt.Errorf("failed to drop progress of job %s: %w", jobID, err)
		}
	}
	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
