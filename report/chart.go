package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	humidityColor    = color.RGBA{G: 128, A: 255}
	temperatureColor = color.RGBA{R: 255, A: 255}
)

// RenderChart plots the humidity and temperature histories against their sample index and saves the figure as a PNG,
// replacing any previous chart. Absent values leave a gap in the line.
func (r *Renderer) RenderChart(humidity, temperature []*float64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	p, err := newChart(humidity, temperature)
	if err != nil {
		return fmt.Errorf("build chart: %w", err)
	}

	writerTo, err := p.WriterTo(vg.Length(r.config.ChartWidth)*vg.Inch, vg.Length(r.config.ChartHeight)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("draw chart: %w", err)
	}

	err = replaceFile(r.config.ChartPath, func(w io.Writer) error {
		_, err := writerTo.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	r.logger.Debug("Rendered chart", "samples", len(humidity))
	return nil
}

func newChart(humidity, temperature []*float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Sample"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	err := addSeries(p, "Humidity", humidityColor, humidity)
	if err != nil {
		return nil, err
	}
	err = addSeries(p, "Temperature", temperatureColor, temperature)
	if err != nil {
		return nil, err
	}

	n := len(humidity)
	if len(temperature) > n {
		n = len(temperature)
	}
	p.X.Min = 0
	p.X.Max = float64(n - 1)

	return p, nil
}

// addSeries draws one line per run of present values and adds a single legend entry for the series.
func addSeries(p *plot.Plot, label string, c color.Color, values []*float64) error {

	legendLine, err := plotter.NewLine(plotter.XYs{})
	if err != nil {
		return err
	}
	legendLine.Color = c
	p.Legend.Add(label, legendLine)

	for _, segment := range segments(values) {
		line, err := plotter.NewLine(segment)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		line.Color = c
		p.Add(line)
	}
	return nil
}

// segments splits the values into runs of consecutive present values, each point positioned at its index in the
// full sequence.
func segments(values []*float64) []plotter.XYs {
	var out []plotter.XYs
	var current plotter.XYs
	for i, v := range values {
		if v == nil {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			continue
		}
		current = append(current, plotter.XY{X: float64(i), Y: *v})
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}
