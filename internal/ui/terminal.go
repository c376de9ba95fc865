package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"
)

const barWidth = 20

// TerminalSink prints one progress line per projection.
type TerminalSink struct {
	mu    sync.Mutex
	out   io.Writer
	jobID domain.JobID

	pct      float64
	hasPct   bool
	pages    string
	products int
}

func NewTerminalSink(out io.Writer, jobID domain.JobID) *TerminalSink {
	return &TerminalSink{out: out, jobID: jobID}
}

func (s *TerminalSink) SetProgress(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pct = pct
	s.hasPct = true
}

func (s *TerminalSink) SetPageIndicator(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = text
}

func (s *TerminalSink) SetProductCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = n
}

func (s *TerminalSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, s.line())
}

func (s *TerminalSink) line() string {
	progress := "[" + strings.Repeat(".", barWidth) + "]   ?%"
	if s.hasPct {
		filled := poller.RoundPercent(s.pct) * barWidth / 100
		filled = max(0, min(barWidth, filled))
		progress = fmt.Sprintf("[%s%s] %3d%%",
			strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), poller.RoundPercent(s.pct))
	}
	return fmt.Sprintf("job %s %s | pages %s | products %s", s.jobID, progress, s.pages, FormatNumber(s.products))
}

// FormatNumber abbreviates large counts: 1500 -> 1.5K, 2300000 -> 2.3M.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
