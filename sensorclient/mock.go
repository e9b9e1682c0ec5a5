package sensorclient

import (
	"context"
	"math/rand"
	"time"

	"github.com/cepro/dhtclient/telemetry"
	"github.com/google/uuid"
)

// Mock emulates a sensor host, returning readings that wander slowly around typical indoor values.
type Mock struct {
	rand        *rand.Rand
	humidity    float64
	temperature float64
	now         func() time.Time
}

func NewMock(seed int64) *Mock {
	return &Mock{
		rand:        rand.New(rand.NewSource(seed)),
		humidity:    45.0,
		temperature: 21.0,
		now:         time.Now,
	}
}

func (m *Mock) FetchReading(ctx context.Context) (telemetry.Reading, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Reading{}, err
	}

	// DHT11 sensors report whole numbers
	m.humidity = clamp(m.humidity+float64(m.rand.Intn(3)-1), 20, 90)
	m.temperature = clamp(m.temperature+float64(m.rand.Intn(3)-1), 0, 50)

	t := m.now()
	return telemetry.Reading{
		ID:          uuid.New(),
		Time:        telemetry.Float64(float64(t.UnixNano()) / 1e9),
		Humidity:    telemetry.Float64(m.humidity),
		Temperature: telemetry.Float64(m.temperature),
		Key:         uuid.NewString(),
	}, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
