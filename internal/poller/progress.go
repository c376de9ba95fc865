package poller

import (
	"fmt"
	"math"

	"producttracker/watcher/internal/domain"
)

// Sink receives progress projections. Implementations must tolerate missing
// targets by doing nothing.
type Sink interface {
	SetProgress(pct float64)
	SetPageIndicator(text string)
	SetProductCount(n int)
}

// Flusher is implemented by sinks that batch the three writes of one
// projection. UpdateProgress calls Flush after the last of them.
type Flusher interface {
	Flush()
}

// Percentage returns current/total*100. ok is false when total is zero, in
// which case the progress bar must be left as it is.
func Percentage(current, total int) (pct float64, ok bool) {
	if total <= 0 {
		return 0, false
	}
	return float64(current) / float64(total) * 100, true
}

// RoundPercent rounds half up, the way the progress label is rendered.
func RoundPercent(pct float64) int {
	return int(math.Floor(pct + 0.5))
}

func PageIndicator(current, total int) string {
	return fmt.Sprintf("%d/%d", current, total)
}

// UpdateProgress projects a status snapshot onto the sink. It has no other
// side effects.
func UpdateProgress(sink Sink, snapshot *domain.JobStatusResponse) {
	if sink == nil || snapshot == nil {
		return
	}

	if pct, ok := Percentage(snapshot.CurrentPage, snapshot.TotalPages); ok {
		sink.SetProgress(pct)
	}

	sink.SetPageIndicator(PageIndicator(snapshot.CurrentPage, snapshot.TotalPages))
	sink.SetProductCount(snapshot.Products())

	if f, ok := sink.(Flusher); ok {
		f.Flush()
	}
}
