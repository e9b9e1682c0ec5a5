// Package sampler runs the poll loop: read the sensor, record the sample and refresh the reports.
package sampler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cepro/dhtclient/history"
	"github.com/cepro/dhtclient/report"
	"github.com/cepro/dhtclient/telemetry"
)

// minSamplesToReport is the number of samples that must be recorded before the chart and page are rendered.
const minSamplesToReport = 3

// SensorReader returns one reading per call.
type SensorReader interface {
	FetchReading(ctx context.Context) (telemetry.Reading, error)
}

// Reporter renders the chart and HTML page from the recorded samples.
type Reporter interface {
	RenderChart(humidity, temperature []*float64) error
	RenderHTML(snapshot report.Snapshot) error
}

type Config struct {
	Samples  int
	Interval time.Duration
	Progress io.Writer // receives a human readable line per sample, may be nil
}

// Sampler polls a sensor a fixed number of times, keeping the whole history of the run in memory.
type Sampler struct {
	sensor   SensorReader
	reporter Reporter
	samples  int
	interval time.Duration
	progress io.Writer
	history  *history.SampleHistory
	sleep    func(ctx context.Context, d time.Duration) error

	logger *slog.Logger
}

func New(sensor SensorReader, reporter Reporter, config Config) *Sampler {
	progress := config.Progress
	if progress == nil {
		progress = io.Discard
	}
	return &Sampler{
		sensor:   sensor,
		reporter: reporter,
		samples:  config.Samples,
		interval: config.Interval,
		progress: progress,
		history:  history.New(config.Samples),
		sleep:    sleepCtx,
		logger:   slog.Default(),
	}
}

// Run takes `samples` readings, waiting `interval` after each one (including the last). Any failure to read the
// sensor or to render the reports stops the run and is returned.
func (s *Sampler) Run(ctx context.Context) error {

	for i := 0; i < s.samples; i++ {

		reading, err := s.sensor.FetchReading(ctx)
		if err != nil {
			return fmt.Errorf("sample %d/%d: fetch reading: %w", i+1, s.samples, err)
		}

		err = s.history.Append(reading)
		if err != nil {
			return fmt.Errorf("sample %d/%d: record reading: %w", i+1, s.samples, err)
		}

		fmt.Fprintf(s.progress, "Time: %s Humidity: %s Temperature: %s\n",
			telemetry.FormatValue(reading.Time),
			telemetry.FormatValue(reading.Humidity),
			telemetry.FormatValue(reading.Temperature),
		)
		s.logger.Info("Received sample", "sample", i+1, "of", s.samples, "id", reading.ID, "result", reading.String())
		if !reading.Available() {
			s.logger.Warn("Sensor reading unavailable", "sample", i+1, "id", reading.ID, "time", telemetry.FormatValue(reading.Time))
		}

		if s.history.Len() >= minSamplesToReport {
			err = s.report(i)
			if err != nil {
				return fmt.Errorf("sample %d/%d: %w", i+1, s.samples, err)
			}
		}

		err = s.sleep(ctx, s.interval)
		if err != nil {
			return err
		}
	}

	s.logger.Info("Sampling complete", "samples", s.history.Len())
	return nil
}

// History returns the samples recorded so far.
func (s *Sampler) History() *history.SampleHistory {
	return s.history
}

// report renders the chart and page from the full history, `sampleIndex` is the 0-indexed cycle that was just recorded.
func (s *Sampler) report(sampleIndex int) error {

	err := s.reporter.RenderChart(s.history.Humidities(), s.history.Temperatures())
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	latest, _ := s.history.Latest()
	err = s.reporter.RenderHTML(report.Snapshot{
		SampleCount:       sampleIndex,
		LatestTemperature: latest.Temperature,
		LatestHumidity:    latest.Humidity,
	})
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
