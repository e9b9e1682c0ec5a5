// Package history accumulates the samples taken during a single run.
package history

import (
	"errors"

	"github.com/cepro/dhtclient/telemetry"
)

// maxPrealloc bounds the storage reserved up front, larger histories grow on demand up to their limit.
const maxPrealloc = 4096

var ErrFull = errors.New("history is full")

// SampleHistory stores three index-aligned sequences: index i of each sequence refers to the same poll cycle.
// The number of samples is bounded by the limit given to New, nil entries mark values that were absent.
type SampleHistory struct {
	limit        int
	times        []*float64
	humidities   []*float64
	temperatures []*float64
}

// Latest holds the values of the most recently appended sample.
type Latest struct {
	Time        *float64
	Humidity    *float64
	Temperature *float64
}

func New(limit int) *SampleHistory {
	if limit < 0 {
		limit = 0
	}
	prealloc := limit
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	return &SampleHistory{
		limit:        limit,
		times:        make([]*float64, 0, prealloc),
		humidities:   make([]*float64, 0, prealloc),
		temperatures: make([]*float64, 0, prealloc),
	}
}

// Append adds the reading to all three sequences, or to none of them if the history is already at its limit.
func (h *SampleHistory) Append(reading telemetry.Reading) error {
	if len(h.times) >= h.limit {
		return ErrFull
	}
	h.times = append(h.times, reading.Time)
	h.humidities = append(h.humidities, reading.Humidity)
	h.temperatures = append(h.temperatures, reading.Temperature)
	return nil
}

func (h *SampleHistory) Len() int {
	return len(h.times)
}

// Limit returns the maximum number of samples the history accepts.
func (h *SampleHistory) Limit() int {
	return h.limit
}

// Latest returns the most recent sample, and false if the history is empty.
func (h *SampleHistory) Latest() (Latest, bool) {
	n := len(h.times)
	if n == 0 {
		return Latest{}, false
	}
	return Latest{
		Time:        h.times[n-1],
		Humidity:    h.humidities[n-1],
		Temperature: h.temperatures[n-1],
	}, true
}

// Times returns a copy of the sample times.
func (h *SampleHistory) Times() []*float64 {
	return copyValues(h.times)
}

// Humidities returns a copy of the humidity sequence.
func (h *SampleHistory) Humidities() []*float64 {
	return copyValues(h.humidities)
}

// Temperatures returns a copy of the temperature sequence.
func (h *SampleHistory) Temperatures() []*float64 {
	return copyValues(h.temperatures)
}

func copyValues(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = telemetry.Float64(*v)
		}
	}
	return out
}
