package sampler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cepro/dhtclient/report"
	"github.com/cepro/dhtclient/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSensor returns the scripted readings in order, or the scripted error for that call.
type scriptedSensor struct {
	readings []telemetry.Reading
	errs     map[int]error
	calls    int
}

func (s *scriptedSensor) FetchReading(ctx context.Context) (telemetry.Reading, error) {
	call := s.calls
	s.calls++
	if err, ok := s.errs[call]; ok {
		return telemetry.Reading{}, err
	}
	return s.readings[call], nil
}

type chartCall struct {
	humidity    []*float64
	temperature []*float64
}

// recordingReporter records every render request, optionally failing them.
type recordingReporter struct {
	charts    []chartCall
	snapshots []report.Snapshot
	chartErr  error
}

func (r *recordingReporter) RenderChart(humidity, temperature []*float64) error {
	if r.chartErr != nil {
		return r.chartErr
	}
	r.charts = append(r.charts, chartCall{humidity: humidity, temperature: temperature})
	return nil
}

func (r *recordingReporter) RenderHTML(snapshot report.Snapshot) error {
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func reading(time, humidity, temperature float64) telemetry.Reading {
	return telemetry.Reading{Time: telemetry.Float64(time), Humidity: telemetry.Float64(humidity), Temperature: telemetry.Float64(temperature)}
}

func deref(values []*float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func TestRun_ThreeSamples(t *testing.T) {

	sensor := &scriptedSensor{readings: []telemetry.Reading{
		reading(1, 40, 20),
		reading(2, 41, 21),
		reading(3, 42, 22),
	}}
	reporter := &recordingReporter{}
	progress := &bytes.Buffer{}

	s := New(sensor, reporter, Config{Samples: 3, Interval: 0, Progress: progress})
	require.NoError(t, s.Run(context.Background()))

	h := s.History()
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, deref(h.Times()))
	assert.Equal(t, []interface{}{40.0, 41.0, 42.0}, deref(h.Humidities()))
	assert.Equal(t, []interface{}{20.0, 21.0, 22.0}, deref(h.Temperatures()))

	require.Len(t, reporter.charts, 1)
	assert.Equal(t, []interface{}{40.0, 41.0, 42.0}, deref(reporter.charts[0].humidity))
	assert.Equal(t, []interface{}{20.0, 21.0, 22.0}, deref(reporter.charts[0].temperature))

	require.Len(t, reporter.snapshots, 1)
	assert.Equal(t, 2, reporter.snapshots[0].SampleCount)
	assert.Equal(t, 22.0, *reporter.snapshots[0].LatestTemperature)
	assert.Equal(t, 42.0, *reporter.snapshots[0].LatestHumidity)

	assert.Equal(t,
		"Time: 1 Humidity: 40 Temperature: 20\n"+
			"Time: 2 Humidity: 41 Temperature: 21\n"+
			"Time: 3 Humidity: 42 Temperature: 22\n",
		progress.String())
}

func TestRun_ReportingGate(t *testing.T) {

	readings := make([]telemetry.Reading, 6)
	for i := range readings {
		readings[i] = reading(float64(i), float64(40+i), float64(20+i))
	}
	sensor := &scriptedSensor{readings: readings}
	reporter := &recordingReporter{}

	s := New(sensor, reporter, Config{Samples: len(readings)})
	require.NoError(t, s.Run(context.Background()))

	// renders start at the third sample and cover the full history each time
	require.Len(t, reporter.charts, 4)
	require.Len(t, reporter.snapshots, 4)
	for i, chart := range reporter.charts {
		assert.Len(t, chart.humidity, i+3)
		assert.Len(t, chart.temperature, i+3)
		assert.Equal(t, i+2, reporter.snapshots[i].SampleCount)
		assert.Equal(t, float64(40+i+2), *reporter.snapshots[i].LatestHumidity)
		assert.Equal(t, float64(20+i+2), *reporter.snapshots[i].LatestTemperature)
	}
}

func TestRun_FewerThanThreeSamples(t *testing.T) {
	sensor := &scriptedSensor{readings: []telemetry.Reading{reading(1, 40, 20), reading(2, 41, 21)}}
	reporter := &recordingReporter{}

	s := New(sensor, reporter, Config{Samples: 2})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 2, s.History().Len())
	assert.Empty(t, reporter.charts)
	assert.Empty(t, reporter.snapshots)
}

func TestRun_AbsentValues(t *testing.T) {
	sensor := &scriptedSensor{readings: []telemetry.Reading{
		{Time: telemetry.Float64(5)},
		{Time: telemetry.Float64(6)},
		{},
	}}
	reporter := &recordingReporter{}
	progress := &bytes.Buffer{}

	s := New(sensor, reporter, Config{Samples: 3, Progress: progress})
	require.NoError(t, s.Run(context.Background()))

	h := s.History()
	assert.Equal(t, []interface{}{5.0, 6.0, nil}, deref(h.Times()))
	assert.Equal(t, []*float64{nil, nil, nil}, h.Humidities())
	assert.Equal(t, []*float64{nil, nil, nil}, h.Temperatures())

	require.Len(t, reporter.snapshots, 1)
	assert.Nil(t, reporter.snapshots[0].LatestTemperature)
	assert.Nil(t, reporter.snapshots[0].LatestHumidity)
	assert.Contains(t, progress.String(), "Time: 5 Humidity: None Temperature: None\n")
	assert.Contains(t, progress.String(), "Time: None Humidity: None Temperature: None\n")
}

func TestRun_TransportErrorOnSecondCall(t *testing.T) {
	transportErr := errors.New("connection refused")
	sensor := &scriptedSensor{
		readings: []telemetry.Reading{reading(1, 40, 20), {}, reading(3, 42, 22)},
		errs:     map[int]error{1: transportErr},
	}
	reporter := &recordingReporter{}

	s := New(sensor, reporter, Config{Samples: 3})
	err := s.Run(context.Background())

	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 2, sensor.calls)
	assert.Equal(t, 1, s.History().Len())
	assert.Len(t, s.History().Humidities(), 1)
	assert.Len(t, s.History().Temperatures(), 1)
	assert.Empty(t, reporter.charts)
	assert.Empty(t, reporter.snapshots)
}

func TestRun_RenderErrorIsFatal(t *testing.T) {
	renderErr := errors.New("disk full")
	sensor := &scriptedSensor{readings: []telemetry.Reading{
		reading(1, 40, 20), reading(2, 41, 21), reading(3, 42, 22), reading(4, 43, 23),
	}}
	reporter := &recordingReporter{chartErr: renderErr}

	s := New(sensor, reporter, Config{Samples: 4})
	err := s.Run(context.Background())

	assert.ErrorIs(t, err, renderErr)
	assert.Equal(t, 3, sensor.calls)
	assert.Empty(t, reporter.snapshots)
}

func TestRun_SleepsAfterEverySample(t *testing.T) {
	sensor := &scriptedSensor{readings: []telemetry.Reading{reading(1, 40, 20), reading(2, 41, 21), reading(3, 42, 22)}}

	s := New(sensor, &recordingReporter{}, Config{Samples: 3, Interval: 30 * time.Second})
	var slept []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 30 * time.Second}, slept)
}

func TestRun_Cancelled(t *testing.T) {
	sensor := &scriptedSensor{readings: []telemetry.Reading{reading(1, 40, 20), reading(2, 41, 21)}}
	ctx, cancel := context.WithCancel(context.Background())

	s := New(sensor, &recordingReporter{}, Config{Samples: 2, Interval: time.Hour})
	cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.History().Len())
}

func TestRun_LogsReadingID(t *testing.T) {
	id := uuid.New()
	r := reading(1, 40, 20)
	r.ID = id
	sensor := &scriptedSensor{readings: []telemetry.Reading{r}}

	logs := &bytes.Buffer{}
	s := New(sensor, &recordingReporter{}, Config{Samples: 1})
	s.logger = slog.New(slog.NewTextHandler(logs, nil))

	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, logs.String(), "msg=\"Received sample\"")
	assert.Contains(t, logs.String(), "id="+id.String())
}
