package poller

import (
	"context"
	"sync"

	"producttracker/watcher/internal/domain"

	log "github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type StopReason string

const (
	StopNone           StopReason = ""
	StopTerminal       StopReason = "terminal"
	StopTransportError StopReason = "transport_error"
	StopCancelled      StopReason = "cancelled"
)

// Handle owns one running poll cycle. Stop may be called any number of times.
type Handle struct {
	jobID  domain.JobID
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	state  State
	reason StopReason
	err    error
	last   *domain.JobStatusResponse
	polls  int
}

func newHandle(jobID domain.JobID, cancel context.CancelFunc) *Handle {
	return &Handle{
		jobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StatePolling,
	}
}

func (h *Handle) JobID() domain.JobID {
	return h.jobID
}

// Stop cancels the timer and moves the handle to Stopped before returning.
// A request already in flight is abandoned; the poll goroutine exits once it
// returns, so Done may close slightly later.
func (h *Handle) Stop() {
	if h.markStopped(StopCancelled, nil) {
		log.Infof("🛑 Polling job %s stopped", h.jobID)
	}
}

// Done is closed once the poll goroutine has exited, after any reload.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until polling ends. It returns the *TransportError or reload
// error that ended it, or nil for a clean terminal status or a Stop.
func (h *Handle) Wait() error {
	<-h.done
	return h.Err()
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Reason() StopReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Last returns the most recent well-formed snapshot, or nil if none arrived.
func (h *Handle) Last() *domain.JobStatusResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Polls returns how many status requests this cycle issued.
func (h *Handle) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func (h *Handle) countPoll() {
	h.mu.Lock()
	h.polls++
	h.mu.Unlock()
}

func (h *Handle) observe(snapshot *domain.JobStatusResponse) {
	h.mu.Lock()
	h.last = snapshot
	h.mu.Unlock()
}

// markStopped moves the handle to Stopped and cancels its context. Only the
// first call has any effect.
func (h *Handle) markStopped(reason StopReason, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateStopped {
		return false
	}
	h.state = StateStopped
	h.reason = reason
	h.err = err
	h.cancel()
	return true
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}
