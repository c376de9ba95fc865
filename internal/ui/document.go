package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"producttracker/watcher/internal/poller"

	"github.com/PuerkitoBio/goquery"
)

const (
	progressBarSelector   = ".progress-bar"
	pageIndicatorSelector = "[data-current-page]"
	productCountSelector  = "[data-product-count]"
)

// DocumentSink projects progress onto a job page held as a goquery document.
// Missing targets are skipped.
type DocumentSink struct {
	mu  sync.Mutex
	doc *goquery.Document
}

func NewDocumentSink(doc *goquery.Document) *DocumentSink {
	return &DocumentSink{doc: doc}
}

func NewDocumentSinkFromHTML(html string) (*DocumentSink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return NewDocumentSink(doc), nil
}

func (s *DocumentSink) SetProgress(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bar := s.doc.Find(progressBarSelector).First()
	if bar.Length() == 0 {
		return
	}

	style, _ := bar.Attr("style")
	bar.SetAttr("style", setStyleProperty(style, "width", FormatPercent(pct)+"%"))
	bar.SetText(fmt.Sprintf("%d%%", poller.RoundPercent(pct)))
}

func (s *DocumentSink) SetPageIndicator(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Find(pageIndicatorSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.SetText(text)
	})
}

func (s *DocumentSink) SetProductCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strconv.Itoa(n)
	s.doc.Find(productCountSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.SetText(text)
	})
}

// HTML renders the current state of the document.
func (s *DocumentSink) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Html()
}

// FormatPercent prints pct with the shortest exact representation, so 30
// stays "30" and 100/3 keeps its full precision.
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

// setStyleProperty replaces or appends one declaration of an inline style.
func setStyleProperty(style, property, value string) string {
	decls := make([]string, 0, 4)
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			continue
		}
		decls = append(decls, decl)
	}
	decls = append(decls, property+": "+value)
	return strings.Join(decls, "; ")
}
