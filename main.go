package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cepro/dhtclient/config"
	"github.com/cepro/dhtclient/report"
	"github.com/cepro/dhtclient/sampler"
	"github.com/cepro/dhtclient/sensorclient"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {

	flags := flag.NewFlagSet("dhtclient", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: dhtclient [flags] [address port]\n\nPolls a DHT sensor host and renders a chart and HTML page of the readings.\n\n")
		flags.PrintDefaults()
	}
	configFile := flags.String("config", "", "path to a YAML config file")
	interval := flags.Float64("interval", 30, "seconds to wait after each sample")
	samples := flags.Int("samples", 20, "number of samples to take")
	logFile := flags.String("log-file", "/tmp/dht_client.log", "file that log entries are appended to")
	retries := flags.Int("retries", 0, "number of times a failed sensor request is retried")
	emulate := flags.Bool("emulate", false, "use an emulated sensor instead of the sensor host")

	err := flags.Parse(args)
	if err != nil {
		return exitUsage
	}

	conf := config.Default()
	if *configFile != "" {
		conf, err = config.Read(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			return exitError
		}
	}

	// flags that were explicitly given take precedence over the config file
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			conf.Sampling.IntervalSecs = *interval
		case "samples":
			conf.Sampling.Samples = *samples
		case "log-file":
			conf.LogFile = *logFile
		case "retries":
			conf.Sensor.Retries = *retries
		}
	})

	switch flags.NArg() {
	case 0:
	case 2:
		conf.Sensor.Address = flags.Arg(0)
		conf.Sensor.Port, err = strconv.Atoi(flags.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid port %q\n", flags.Arg(1))
			return exitUsage
		}
	default:
		flags.Usage()
		return exitUsage
	}

	err = conf.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return exitUsage
	}

	logOutput, err := os.OpenFile(conf.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return exitError
	}
	defer logOutput.Close()

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	slog.Info("Starting DHT client...", "address", conf.Sensor.Address, "port", conf.Sensor.Port, "samples", conf.Sampling.Samples, "interval", conf.Sampling.Interval(), "emulate", *emulate)

	var sensor sampler.SensorReader
	if *emulate {
		sensor = sensorclient.NewMock(time.Now().UnixNano())
	} else {
		sensor = sensorclient.New(
			http.Client{Timeout: conf.Sensor.Timeout()},
			conf.Sensor.Address,
			conf.Sensor.Port,
			sensorclient.RetryPolicy{Retries: conf.Sensor.Retries, InitialInterval: conf.Sensor.RetryInterval()},
		)
	}

	renderer, err := report.New(report.Config{
		ChartPath:    conf.Report.ChartPath,
		HTMLPath:     conf.Report.HTMLPath,
		TemplatePath: conf.Report.TemplatePath,
		ChartWidth:   conf.Report.ChartWidth,
		ChartHeight:  conf.Report.ChartHeight,
	})
	if err != nil {
		slog.Error("Failed to create renderer", "error", err)
		fmt.Fprintf(os.Stderr, "Failed to create renderer: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sampler.New(sensor, renderer, sampler.Config{
		Samples:  conf.Sampling.Samples,
		Interval: conf.Sampling.Interval(),
		Progress: os.Stdout,
	})

	err = s.Run(ctx)
	if err != nil {
		slog.Error("Sampling failed", "error", err, "samples_taken", s.History().Len())
		fmt.Fprintf(os.Stderr, "Sampling failed: %v\n", err)
		return exitError
	}

	slog.Info("Exiting")
	return exitOK
}
