package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const absentValue = "N/A"

// Snapshot is the view of the history that is shown on the HTML page.
type Snapshot struct {
	SampleCount       int
	LatestTemperature *float64
	LatestHumidity    *float64
}

type pageData struct {
	SampleCount       int
	LatestTemperature string
	LatestHumidity    string
	ChartFile         string
}

// RenderHTML fills the page template with the snapshot and writes it, replacing any previous page.
func (r *Renderer) RenderHTML(snapshot Snapshot) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	data := pageData{
		SampleCount:       snapshot.SampleCount,
		LatestTemperature: formatValue(snapshot.LatestTemperature),
		LatestHumidity:    formatValue(snapshot.LatestHumidity),
		ChartFile:         filepath.Base(r.config.ChartPath),
	}

	err := replaceFile(r.config.HTMLPath, func(w io.Writer) error {
		return r.template.Execute(w, data)
	})
	if err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	r.logger.Debug("Rendered html", "sample_count", snapshot.SampleCount)
	return nil
}

func formatValue(v *float64) string {
	if v == nil {
		return absentValue
	}
	return humanize.FtoaWithDigits(*v, 2)
}
