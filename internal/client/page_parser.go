package client

import (
	"errors"
	"fmt"
	"strings"

	"producttracker/watcher/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// ErrNoPollTarget means the page has no usable job marker, so polling never starts.
var ErrNoPollTarget = errors.New("page has no job status marker")

const (
	attrJobStatus = "data-job-status"
	attrJobID     = "data-job-id"
)

// ParsePollTarget reads the first element carrying data-job-status.
func ParsePollTarget(html string) (*domain.PollTarget, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return PollTargetFromDocument(doc)
}

func PollTargetFromDocument(doc *goquery.Document) (*domain.PollTarget, error) {
	marker := doc.Find("[" + attrJobStatus + "]").First()
	if marker.Length() == 0 {
		return nil, ErrNoPollTarget
	}

	status, _ := marker.Attr(attrJobStatus)
	jobID, _ := marker.Attr(attrJobID)
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrNoPollTarget, attrJobID)
	}

	target := &domain.PollTarget{
		JobID:         domain.JobID(jobID),
		InitialStatus: domain.JobStatus(strings.TrimSpace(status)),
	}

	log.Debugf("Found job %s with status %q on page", target.JobID, target.InitialStatus)
	return target, nil
}
