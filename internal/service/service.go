package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"producttracker/watcher/internal/client"
	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"

	log "github.com/sirupsen/logrus"
)

// SinkFactory builds the progress sink for one job. page is the job page
// as it was when polling started.
type SinkFactory func(jobID domain.JobID, page string) poller.Sink

type Service struct {
	client   client.TrackerClient
	sinks    SinkFactory
	interval time.Duration
}

func NewService(client client.TrackerClient, sinks SinkFactory, interval time.Duration) *Service {
	return &Service{
		client:   client,
		sinks:    sinks,
		interval: interval,
	}
}

// FinalState is what the reload found on the authoritative job page.
type FinalState struct {
	Status   domain.JobStatus
	Products []domain.Product
}

type WatchResult struct {
	JobID         domain.JobID
	InitialStatus domain.JobStatus
	Polled        bool
	Reason        poller.StopReason
	Polls         int
	Last          *domain.JobStatusResponse
	Final         *FinalState
	// Err holds the transport failure that stopped polling. It is not
	// returned by Watch.
	Err error
}

// Watch reads the job page and, if the job is running, polls it until it
// ends. Transport failures stop polling silently and are only reported
// through WatchResult.Err.
func (s *Service) Watch(ctx context.Context, jobID domain.JobID) (*WatchResult, error) {
	result := &WatchResult{JobID: jobID}

	page, err := s.client.GetJobPage(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job page %s: %w", jobID, err)
	}

	target, err := client.ParsePollTarget(page)
	if err != nil {
		if errors.Is(err, client.ErrNoPollTarget) {
			log.Warnf("⚠️ Job %s page has no status marker, not polling", jobID)
			return result, nil
		}
		return nil, err
	}
	result.InitialStatus = target.InitialStatus

	if !target.InitialStatus.IsRunning() {
		log.Infof("Job %s is %q, nothing to poll", jobID, target.InitialStatus)
		return result, nil
	}

	var sink poller.Sink
	if s.sinks != nil {
		sink = s.sinks(jobID, page)
	}

	reloader := &pageReloader{client: s.client}
	p := poller.New(s.client, sink, reloader, s.interval)

	handle, err := p.Start(ctx, *target)
	if err != nil {
		return nil, fmt.Errorf("failed to start polling job %s: %w", jobID, err)
	}
	result.Polled = true

	err = handle.Wait()

	result.Reason = handle.Reason()
	result.Polls = handle.Polls()
	result.Last = handle.Last()
	result.Final = reloader.final

	var terr *poller.TransportError
	if errors.As(err, &terr) {
		result.Err = err
		return result, nil
	}

	return result, err
}

func (s *Service) Search(ctx context.Context, term string, maxPages int) (*domain.SearchJob, error) {
	req, err := domain.NewSearchRequest(term, maxPages)
	if err != nil {
		return nil, err
	}

	job, err := s.client.StartSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start search %q: %w", req.Query, err)
	}

	return job, nil
}

func (s *Service) Products(ctx context.Context, jobID domain.JobID) ([]domain.Product, error) {
	products, err := s.client.GetProducts(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products for job %s: %w", jobID, err)
	}
	return products, nil
}

// Export downloads the CSV of jobID into dir under the tracker's download
// name and returns the file path. Nothing is left in dir on failure.
func (s *Service) Export(ctx context.Context, jobID domain.JobID, dir string) (string, error) {
	status, err := s.client.GetJobStatus(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	path := filepath.Join(dir, domain.ExportFileName(status.SearchTerm, time.Now()))
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := s.client.ExportCSV(ctx, jobID, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to export job %s: %w", jobID, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	log.Infof("💾 Exported job %s (%d bytes) to %s", jobID, n, path)
	return path, nil
}

func (s *Service) Delete(ctx context.Context, jobID domain.JobID) error {
	if err := s.client.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	return nil
}

// pageReloader re-reads the job page and its products once polling has
// seen a terminal status.
type pageReloader struct {
	client client.TrackerClient
	final  *FinalState
}

// Reload takes the status from the final page when it still carries the
// data-job-status marker, and from the terminal snapshot otherwise.
func (r *pageReloader) Reload(ctx context.Context, jobID domain.JobID, last *domain.JobStatusResponse) error {
	var status domain.JobStatus
	if last != nil {
		status = last.Status
	}

	target, err := r.client.GetPollTarget(ctx, jobID)
	switch {
	case err == nil:
		status = target.InitialStatus
	case errors.Is(err, client.ErrNoPollTarget):
		log.Debugf("Job %s final page has no status marker, keeping %q", jobID, status)
	default:
		return err
	}

	products, err := r.client.GetProducts(ctx, jobID)
	if err != nil {
		return err
	}

	r.final = &FinalState{Status: status, Products: products}
	log.Infof("✅ Job %s finished with status %q: %d products", jobID, status, len(products))
	return nil
}
