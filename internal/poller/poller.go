package poller

import (
	"context"
	"fmt"
	"time"

	"producttracker/watcher/internal/domain"

	log "github.com/sirupsen/logrus"
)

const DefaultInterval = 3 * time.Second

type StatusFetcher interface {
	GetJobStatus(ctx context.Context, jobID domain.JobID) (*domain.JobStatusResponse, error)
}

// Reloader replaces the in-progress view with the authoritative final one.
// last is the terminal snapshot that ended polling.
type Reloader interface {
	Reload(ctx context.Context, jobID domain.JobID, last *domain.JobStatusResponse) error
}

type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeTerminal
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Poller struct {
	fetcher   StatusFetcher
	sink      Sink
	reloader  Reloader
	interval  time.Duration
	newTicker func(time.Duration) ticker
}

func New(fetcher StatusFetcher, sink Sink, reloader Reloader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		fetcher:   fetcher,
		sink:      sink,
		reloader:  reloader,
		interval:  interval,
		newTicker: newTimeTicker,
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling target.JobID every interval. The target must have
// been running when it was read from the page.
func (p *Poller) Start(ctx context.Context, target domain.PollTarget) (*Handle, error) {
	if target.JobID == "" {
		return nil, ErrNoJobID
	}
	if !target.InitialStatus.IsRunning() {
		return nil, fmt.Errorf("%w: job %s is %q", ErrNotRunning, target.JobID, target.InitialStatus)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	h := newHandle(target.JobID, cancel)
	t := p.newTicker(p.interval)

	log.Infof("🚀 Polling job %s every %v", target.JobID, p.interval)

	go p.run(ctx, pollCtx, h, t)

	return h, nil
}

// run serializes ticks: a slow status request delays the next check rather
// than overlapping it.
func (p *Poller) run(parent, ctx context.Context, h *Handle, t ticker) {
	defer close(h.done)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			p.cancelled(h)
			return
		case <-t.C():
		}

		if ctx.Err() != nil {
			p.cancelled(h)
			return
		}

		h.countPoll()
		outcome, snapshot, err := p.CheckStatus(ctx, h.jobID)

		switch outcome {
		case OutcomeRunning:
			h.observe(snapshot)

		case OutcomeTerminal:
			h.observe(snapshot)
			t.Stop()
			// A Stop racing the in-flight request wins: no reload.
			if ctx.Err() != nil || !h.markStopped(StopTerminal, nil) {
				p.cancelled(h)
				return
			}

			log.Infof("✅ Job %s reached status %q, reloading", h.jobID, snapshot.Status)
			if p.reloader != nil {
				if err := p.reloader.Reload(parent, h.jobID, snapshot); err != nil {
					log.Errorf("❌ Failed to reload job %s: %v", h.jobID, err)
					h.setErr(fmt.Errorf("reload job %s: %w", h.jobID, err))
				}
			}
			return

		case OutcomeTransportError:
			if ctx.Err() != nil {
				p.cancelled(h)
				return
			}
			t.Stop()
			h.markStopped(StopTransportError, err)
			return
		}
	}
}

func (p *Poller) cancelled(h *Handle) {
	if h.markStopped(StopCancelled, nil) {
		log.Infof("🛑 Polling job %s stopped", h.jobID)
	}
}

// CheckStatus performs one status request. A running snapshot is projected
// onto the sink; anything else is left for the caller to act upon. Failures
// are logged and returned as *TransportError.
func (p *Poller) CheckStatus(ctx context.Context, jobID domain.JobID) (Outcome, *domain.JobStatusResponse, error) {
	snapshot, err := p.fetcher.GetJobStatus(ctx, jobID)
	if err == nil && snapshot == nil {
		err = fmt.Errorf("empty status response")
	}
	if err != nil {
		terr := &TransportError{JobID: jobID, Err: err}
		if ctx.Err() == nil {
			log.Errorf("❌ Error polling job status: %v", terr)
		}
		return OutcomeTransportError, nil, terr
	}

	if !snapshot.Status.IsRunning() {
		return OutcomeTerminal, snapshot, nil
	}

	log.Debugf("Job %s: page %d/%d, %d products", jobID, snapshot.CurrentPage, snapshot.TotalPages, snapshot.Products())
	UpdateProgress(p.sink, snapshot)

	return OutcomeRunning, snapshot, nil
}
