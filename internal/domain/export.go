package domain

import (
	"fmt"
	"strings"
	"time"
)

const exportTimeLayout = "20060102_150405"

var exportNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// ExportFileName names a CSV export the way the tracker's download does:
// aliexpress_{term}_{YYYYmmdd_HHMMSS}.csv, spaces in term becoming underscores.
func ExportFileName(term string, at time.Time) string {
	term = exportNameReplacer.Replace(strings.TrimSpace(term))
	if term == "" {
		term = "job"
	}
	return fmt.Sprintf("aliexpress_%s_%s.csv", term, at.Format(exportTimeLayout))
}
