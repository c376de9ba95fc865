package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"producttracker/watcher/internal/config"
	"producttracker/watcher/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) TrackerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewTrackerClient(config.TrackerConfig{
		BaseURL:   srv.URL + "/",
		Timeout:   5 * time.Second,
		UserAgent: "watcher-test",
	})
}

func TestGetJobStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/job/12/status", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "watcher-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":12,"search_term":"lamp","status":"running","current_page":3,"total_pages":10,"product_count":45,"error_message":null}`))
	})
	c := newTestClient(t, mux)

	status, err := c.GetJobStatus(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, status.Status)
	assert.Equal(t, 3, status.CurrentPage)
	assert.Equal(t, 10, status.TotalPages)
	assert.Equal(t, 45, status.Products())
	assert.Equal(t, domain.JobID("12"), status.ID)
	assert.Nil(t, status.ErrorMessage)
}

func TestGetJobStatus_Failures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/job/404/status", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /api/job/500/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/job/bad/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})
	mux.HandleFunc("GET /api/job/null/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`null`))
	})
	mux.HandleFunc("GET /api/job/list/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"status":"running"}]`))
	})
	c := newTestClient(t, mux)

	_, err := c.GetJobStatus(context.Background(), "404")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.GetJobStatus(context.Background(), "500")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.GetJobStatus(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrMalformedBody)

	status, err := c.GetJobStatus(context.Background(), "null")
	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.Nil(t, status)

	_, err = c.GetJobStatus(context.Background(), "list")
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestGetJobStatus_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewTrackerClient(config.TrackerConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.GetJobStatus(context.Background(), "1")
	assert.Error(t, err)
}

func TestGetPollTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="card" data-job-status="running" data-job-id="5"></div></body></html>`))
	})
	c := newTestClient(t, mux)

	target, err := c.GetPollTarget(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, domain.PollTarget{JobID: "5", InitialStatus: domain.StatusRunning}, *target)
}

func TestGetProducts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"title":"Desk lamp","price":"12.99","rating":4.5,"review_count":120,"seller_name":null}]`))
	})
	mux.HandleFunc("GET /api/products/6", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux)

	products, err := c.GetProducts(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Desk lamp", products[0].Title)
	assert.Equal(t, "12.99", *products[0].Price)
	assert.Nil(t, products[0].SellerName)

	products, err = c.GetProducts(context.Background(), "6")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestStartSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		var body domain.SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Query == "fail" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"max_pages must be between 1 and 10"}`))
			return
		}

		assert.Equal(t, "usb hub", body.Query)
		assert.Equal(t, 4, body.MaxPages)
		w.Write([]byte(`{"message":"Scraping started for \"usb hub\"","job_id":31,"status_url":"/api/job/31/status","results_url":"/api/products/31"}`))
	})
	c := newTestClient(t, mux)

	req, err := domain.NewSearchRequest("usb hub", 4)
	require.NoError(t, err)

	job, err := c.StartSearch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.JobID("31"), job.JobID)
	assert.Equal(t, "/api/job/31/status", job.StatusURL)

	_, err = c.StartSearch(context.Background(), &domain.SearchRequest{Query: "fail", MaxPages: 1})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.ErrorContains(t, err, "max_pages must be between 1 and 10")
}

func TestRequestCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/job/1/status", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetJobStatus(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

const exportCSV = "Title,Price,Original Price,Rating,Review Count,Seller Name,Product URL,Image URL,Shipping Info,Discount Percentage,Scraped At\r\n" +
	"Desk lamp,12.99,,4.5,120,,,,,,2024-03-09 14:05:07\r\n"

func TestExportCSV(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/5/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename=aliexpress_desk_lamp_20240309_140507.csv`)
		w.Write([]byte(exportCSV))
	})
	// no products: the tracker flashes a warning and sends the browser back
	mux.HandleFunc("GET /job/6/export", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/job/6", http.StatusFound)
	})
	mux.HandleFunc("GET /job/6", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<div data-job-status="completed" data-job-id="6"></div>`))
	})
	c := newTestClient(t, mux)

	var buf bytes.Buffer
	n, err := c.ExportCSV(context.Background(), "5", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(exportCSV)), n)
	assert.Equal(t, exportCSV, buf.String())

	buf.Reset()
	_, err = c.ExportCSV(context.Background(), "6", &buf)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Zero(t, buf.Len())

	_, err = c.ExportCSV(context.Background(), "404", &buf)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestDeleteJob(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /job/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "404" {
			http.NotFound(w, r)
			return
		}
		deleted = append(deleted, r.PathValue("id"))
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Job deleted successfully</body></html>`))
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.DeleteJob(context.Background(), "8"))
	assert.Equal(t, []string{"8"}, deleted)

	err := c.DeleteJob(context.Background(), "404")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}
