package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type JobStatus string

func (s JobStatus) String() string {
	return string(s)
}

// IsRunning reports whether polling should continue. Every other value,
// known or not, is terminal.
func (s JobStatus) IsRunning() bool {
	return s == StatusRunning
}

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// JobID is an opaque, externally assigned job identifier.
type JobID string

func (id JobID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both the numeric ids the backend emits and plain strings.
func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
		*id = JobID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid job id %s: %w", data, err)
	}
	*id = JobID(n.String())
	return nil
}

// PollTarget is derived once from the job page and never changes afterwards.
type PollTarget struct {
	JobID         JobID     `json:"job_id"`
	InitialStatus JobStatus `json:"initial_status"`
}

type JobStatusResponse struct {
	ID           JobID     `json:"id,omitempty"`
	SearchTerm   string    `json:"search_term,omitempty"`
	Status       JobStatus `json:"status"`
	CurrentPage  int       `json:"current_page"`  // Page the scraper is working on
	TotalPages   int       `json:"total_pages"`   // 0 means unknown / not started
	ProductCount *int      `json:"product_count"` // Optional, see Products()
	CreatedAt    *string   `json:"created_at,omitempty"`
	CompletedAt  *string   `json:"completed_at,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// Products returns the product count, defaulting to 0 when absent.
func (r *JobStatusResponse) Products() int {
	if r == nil || r.ProductCount == nil {
		return 0
	}
	return *r.ProductCount
}
