package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Reading holds data pulled from a DHT sensor host.
//
// Any of Time, Humidity and Temperature may be nil: the sensor host leaves humidity and temperature out when it
// could not read the sensor, and a malformed result may carry no time at all.
type Reading struct {
	ID          uuid.UUID // assigned locally when the reading is received
	Time        *float64  // seconds since the epoch, as reported by the sensor host
	Humidity    *float64  // relative humidity in %
	Temperature *float64  // degrees Celsius
	Key         string    // correlation key generated by the sensor host, only used for logging
}

// Available returns true if the reading carries both a humidity and a temperature value.
func (r Reading) Available() bool {
	return r.Humidity != nil && r.Temperature != nil
}

// Timestamp returns the reading time as a time.Time, and false if the reading has no time.
func (r Reading) Timestamp() (time.Time, bool) {
	if r.Time == nil {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*r.Time)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

func (r Reading) String() string {
	return fmt.Sprintf("{time: %s, humidity: %s, temperature: %s, key: %s}", FormatValue(r.Time), FormatValue(r.Humidity), FormatValue(r.Temperature), r.Key)
}

// FormatValue renders an optional value, using "None" when it is absent.
func FormatValue(v *float64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Float64 returns a pointer to a copy of v.
func Float64(v float64) *float64 {
	return &v
}
