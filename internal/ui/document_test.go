package ui

import (
	"testing"

	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobPage = `<html><body><main class="container">
<div data-job-status="running" data-job-id="7"></div>
<div class="progress"><div class="progress-bar" role="progressbar" style="width: 10%; background: red">10%</div></div>
<div class="progress-bar" style="width: 50%">second</div>
<span id="p1" data-current-page>1/10</span>
<strong id="p2" data-current-page="">?</strong>
<span id="c1" data-product-count>0</span>
</main></body></html>`

func intPtr(n int) *int { return &n }

func newSink(t *testing.T, html string) (*DocumentSink, *goquery.Document) {
	t.Helper()
	sink, err := NewDocumentSinkFromHTML(html)
	require.NoError(t, err)
	return sink, sink.doc
}

func TestDocumentSink_RunningSnapshot(t *testing.T) {
	sink, doc := newSink(t, jobPage)

	poller.UpdateProgress(sink, &domain.JobStatusResponse{
		Status:       domain.StatusRunning,
		CurrentPage:  3,
		TotalPages:   10,
		ProductCount: intPtr(45),
	})

	bar := doc.Find(".progress-bar").First()
	style, _ := bar.Attr("style")
	assert.Equal(t, "background: red; width: 30%", style)
	assert.Equal(t, "30%", bar.Text())

	second := doc.Find(".progress-bar").Eq(1)
	assert.Equal(t, "second", second.Text())

	assert.Equal(t, "3/10", doc.Find("#p1").Text())
	assert.Equal(t, "3/10", doc.Find("#p2").Text())
	assert.Equal(t, "45", doc.Find("#c1").Text())
}

func TestDocumentSink_UnknownTotalLeavesBar(t *testing.T) {
	sink, doc := newSink(t, jobPage)

	poller.UpdateProgress(sink, &domain.JobStatusResponse{Status: domain.StatusRunning})

	bar := doc.Find(".progress-bar").First()
	style, _ := bar.Attr("style")
	assert.Equal(t, "width: 10%; background: red", style)
	assert.Equal(t, "10%", bar.Text())
	assert.Equal(t, "0/0", doc.Find("#p1").Text())
	assert.Equal(t, "0", doc.Find("#c1").Text())
}

func TestDocumentSink_FractionalPercentage(t *testing.T) {
	sink, doc := newSink(t, jobPage)

	sink.SetProgress(100.0 / 3)

	bar := doc.Find(".progress-bar").First()
	style, _ := bar.Attr("style")
	assert.Contains(t, style, "width: 33.33333333333333")
	assert.Equal(t, "33%", bar.Text())
}

func TestDocumentSink_MissingTargets(t *testing.T) {
	sink, _ := newSink(t, `<html><body><p>nothing to update</p></body></html>`)

	assert.NotPanics(t, func() {
		poller.UpdateProgress(sink, &domain.JobStatusResponse{CurrentPage: 1, TotalPages: 2})
	})

	html, err := sink.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "nothing to update")
}

func TestSetStyleProperty(t *testing.T) {
	assert.Equal(t, "width: 5%", setStyleProperty("", "width", "5%"))
	assert.Equal(t, "color: red; width: 5%", setStyleProperty("WIDTH:1%;color: red;", "width", "5%"))
	assert.Equal(t, "min-width: 2px; width: 5%", setStyleProperty("min-width: 2px", "width", "5%"))
}
