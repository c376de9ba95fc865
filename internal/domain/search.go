package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinSearchTermLength = 3
	MinPages            = 1
	MaxPages            = 10
	DefaultPages        = 3
)

var (
	ErrEmptySearchTerm    = errors.New("please enter a search term")
	ErrSearchTermTooShort = fmt.Errorf("search term must be at least %d characters long", MinSearchTermLength)
	ErrInvalidMaxPages    = fmt.Errorf("number of pages must be between %d and %d", MinPages, MaxPages)
)

type SearchRequest struct {
	Query    string `json:"query"`
	MaxPages int    `json:"max_pages"`
}

// NewSearchRequest trims the term and checks it the same way the search form does.
func NewSearchRequest(term string, maxPages int) (*SearchRequest, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearchTerm
	}
	if utf8.RuneCountInString(term) < MinSearchTermLength {
		return nil, ErrSearchTermTooShort
	}
	if maxPages < MinPages || maxPages > MaxPages {
		return nil, ErrInvalidMaxPages
	}

	return &SearchRequest{Query: term, MaxPages: maxPages}, nil
}

type SearchJob struct {
	Message    string `json:"message"`
	JobID      JobID  `json:"job_id"`
	StatusURL  string `json:"status_url"`
	ResultsURL string `json:"results_url"`
}
