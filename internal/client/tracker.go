package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"producttracker/watcher/internal/config"
	"producttracker/watcher/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrMalformedBody    = errors.New("malformed response body")
	ErrNothingToExport  = errors.New("no products to export")
)

type TrackerClient interface {
	GetJobStatus(ctx context.Context, jobID domain.JobID) (*domain.JobStatusResponse, error)
	GetJobPage(ctx context.Context, jobID domain.JobID) (string, error)
	GetPollTarget(ctx context.Context, jobID domain.JobID) (*domain.PollTarget, error)
	GetProducts(ctx context.Context, jobID domain.JobID) ([]domain.Product, error)
	StartSearch(ctx context.Context, req *domain.SearchRequest) (*domain.SearchJob, error)
	ExportCSV(ctx context.Context, jobID domain.JobID, w io.Writer) (int64, error)
	DeleteJob(ctx context.Context, jobID domain.JobID) error
}

type trackerClient struct {
	rl         ratelimit.Limiter
	baseURL    string
	httpClient *resty.Client
}

func NewTrackerClient(cfg config.TrackerConfig) TrackerClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, text/html;q=0.9")

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &trackerClient{
		rl:         rl,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: client,
	}
}

// GetJobStatus calls GET /api/job/{id}/status. Any non-2xx answer or body
// that is not a JSON status object is an error.
func (c *trackerClient) GetJobStatus(ctx context.Context, jobID domain.JobID) (*domain.JobStatusResponse, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/job/%s/status", url.PathEscape(jobID.String())))
	if err != nil {
		return nil, err
	}

	var status *domain.JobStatusResponse
	if err := decodeJSON(body, &status); err != nil {
		return nil, fmt.Errorf("job %s status: %w", jobID, err)
	}
	if status == nil {
		return nil, fmt.Errorf("job %s status: %w: null body", jobID, ErrMalformedBody)
	}

	return status, nil
}

func (c *trackerClient) GetJobPage(ctx context.Context, jobID domain.JobID) (string, error) {
	return c.get(ctx, fmt.Sprintf("/job/%s", url.PathEscape(jobID.String())))
}

// GetPollTarget loads the job page and reads its data-job-* marker.
func (c *trackerClient) GetPollTarget(ctx context.Context, jobID domain.JobID) (*domain.PollTarget, error) {
	html, err := c.GetJobPage(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job page %s: %w", jobID, err)
	}

	target, err := ParsePollTarget(html)
	if err != nil {
		return nil, fmt.Errorf("job page %s: %w", jobID, err)
	}

	return target, nil
}

func (c *trackerClient) GetProducts(ctx context.Context, jobID domain.JobID) ([]domain.Product, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/products/%s", url.PathEscape(jobID.String())))
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0)
	if err := decodeJSON(body, &products); err != nil {
		return nil, fmt.Errorf("job %s products: %w", jobID, err)
	}

	return products, nil
}

// StartSearch calls POST /api/search. The request must come from
// domain.NewSearchRequest.
func (c *trackerClient) StartSearch(ctx context.Context, req *domain.SearchRequest) (*domain.SearchJob, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.baseURL + "/api/search")
	if err != nil {
		return nil, requestError(ctx, err)
	}

	if !resp.IsSuccess() {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(resp.String()), &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode(), apiErr.Error)
		}
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	var job domain.SearchJob
	if err := decodeJSON(resp.String(), &job); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}

	log.Infof("🔎 Search %q started as job %s", req.Query, job.JobID)
	return &job, nil
}

// ExportCSV streams GET /job/{id}/export into w and returns the bytes copied.
// The tracker redirects to the job page instead of sending a CSV when the
// job has no products; that is ErrNothingToExport.
func (c *trackerClient) ExportCSV(ctx context.Context, jobID domain.JobID, w io.Writer) (int64, error) {
	c.rl.Take()

	path := fmt.Sprintf("/job/%s/export", url.PathEscape(jobID.String()))
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetHeader("Accept", "text/csv").
		SetDoNotParseResponse(true).
		Get(c.baseURL + path)
	if err != nil {
		return 0, requestError(ctx, err)
	}
	defer resp.Body.Close()

	if !resp.IsSuccess() {
		return 0, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), path)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if mediaType != "text/csv" {
		return 0, fmt.Errorf("job %s: %w", jobID, ErrNothingToExport)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read export of job %s: %w", jobID, err)
	}

	return n, nil
}

// DeleteJob calls POST /job/{id}/delete. The tracker answers with a redirect
// to its index page, which is followed.
func (c *trackerClient) DeleteJob(ctx context.Context, jobID domain.JobID) error {
	c.rl.Take()

	path := fmt.Sprintf("/job/%s/delete", url.PathEscape(jobID.String()))
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		Post(c.baseURL + path)
	if err != nil {
		return requestError(ctx, err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), path)
	}

	log.Infof("🗑️ Deleted job %s", jobID)
	return nil
}

func (c *trackerClient) get(ctx context.Context, path string) (string, error) {
	c.rl.Take()

	requestID := uuid.NewString()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		Get(c.baseURL + path)
	if err != nil {
		return "", requestError(ctx, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), path)
	}

	log.WithField("request_id", requestID).Debugf("GET %s -> %d", path, resp.StatusCode())
	return resp.String(), nil
}

func requestError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("request cancelled: %w", ctx.Err())
	}
	return fmt.Errorf("failed to fetch URL: %w", err)
}

func decodeJSON(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
