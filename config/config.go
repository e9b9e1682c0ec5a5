package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxSamples bounds the number of samples a single run may take, the whole history of a run is held in memory.
const MaxSamples = 100000

type SensorConfig struct {
	Address           string  `yaml:"address"`
	Port              int     `yaml:"port"`
	TimeoutSecs       float64 `yaml:"timeoutSecs"` // 0 means no timeout
	Retries           int     `yaml:"retries"`
	RetryIntervalSecs float64 `yaml:"retryIntervalSecs"`
}

type SamplingConfig struct {
	IntervalSecs float64 `yaml:"intervalSecs"`
	Samples      int     `yaml:"samples"`
}

type ReportConfig struct {
	ChartPath    string  `yaml:"chartPath"`
	HTMLPath     string  `yaml:"htmlPath"`
	TemplatePath string  `yaml:"templatePath"` // empty selects the built-in page
	ChartWidth   float64 `yaml:"chartWidth"`   // inches
	ChartHeight  float64 `yaml:"chartHeight"`  // inches
}

type Config struct {
	Sensor   SensorConfig   `yaml:"sensor"`
	Sampling SamplingConfig `yaml:"sampling"`
	Report   ReportConfig   `yaml:"report"`
	LogFile  string         `yaml:"logFile"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			Address:           "localhost",
			Port:              4000,
			RetryIntervalSecs: 1,
		},
		Sampling: SamplingConfig{
			// a long interval avoids overloading the sensor, DHT sensors need a couple of seconds between reads
			IntervalSecs: 30,
			Samples:      20,
		},
		Report: ReportConfig{
			ChartPath:   "foo.png",
			HTMLPath:    "view.html",
			ChartWidth:  6.4,
			ChartHeight: 4.8,
		},
		LogFile: "/tmp/dht_client.log",
	}
}

// Read loads the YAML file at `path` on top of the defaults.
func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	config := Default()
	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Sensor.Address == "" {
		errs = append(errs, errors.New("sensor address is empty"))
	}
	if c.Sensor.Port < 1 || c.Sensor.Port > 65535 {
		errs = append(errs, fmt.Errorf("sensor port %d out of range", c.Sensor.Port))
	}
	if c.Sensor.TimeoutSecs < 0 {
		errs = append(errs, errors.New("sensor timeout is negative"))
	}
	if c.Sensor.Retries < 0 {
		errs = append(errs, errors.New("retries is negative"))
	}
	if c.Sampling.Samples < 1 || c.Sampling.Samples > MaxSamples {
		errs = append(errs, fmt.Errorf("samples must be between 1 and %d, got %d", MaxSamples, c.Sampling.Samples))
	}
	if c.Sampling.IntervalSecs < 0 {
		errs = append(errs, errors.New("interval is negative"))
	}
	if c.Report.ChartPath == "" || c.Report.HTMLPath == "" {
		errs = append(errs, errors.New("report paths must be set"))
	}
	return errors.Join(errs...)
}

func (c SamplingConfig) Interval() time.Duration {
	return secs(c.IntervalSecs)
}

func (c SensorConfig) Timeout() time.Duration {
	return secs(c.TimeoutSecs)
}

func (c SensorConfig) RetryInterval() time.Duration {
	return secs(c.RetryIntervalSecs)
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
