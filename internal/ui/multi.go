package ui

import "producttracker/watcher/internal/poller"

// MultiSink fans every write out to each sink in order.
type MultiSink []poller.Sink

func (m MultiSink) SetProgress(pct float64) {
	for _, s := range m {
		s.SetProgress(pct)
	}
}

func (m MultiSink) SetPageIndicator(text string) {
	for _, s := range m {
		s.SetPageIndicator(text)
	}
}

func (m MultiSink) SetProductCount(n int) {
	for _, s := range m {
		s.SetProductCount(n)
	}
}

func (m MultiSink) Flush() {
	for _, s := range m {
		if f, ok := s.(poller.Flusher); ok {
			f.Flush()
		}
	}
}
