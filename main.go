package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mascanio/pool-metrics/config"
	"github.com/mascanio/pool-metrics/diag"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/poller"
	"github.com/mascanio/pool-metrics/providers/w1"
	"github.com/mascanio/pool-metrics/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	cfg, err := config.Load(args, os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}
	setupLogging(cfg)
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Modprobe {
		log.Debug("Initializing w1 sensors")
		loadModules(ctx)
	}

	reader := w1.NewReader(cfg.BaseDir)
	if err := reader.Exists(cfg.Sensor); err != nil {
		log.WithError(err).WithField("path", reader.Path(cfg.Sensor)).Error("Invalid sensor")
		return 1
	}
	if id, err := w1.ParseID(cfg.Sensor); err == nil {
		log.WithFields(log.Fields{
			"sensor":  cfg.Sensor,
			"family":  id.FamilyName(),
			"address": fmt.Sprintf("%#016x", uint64(id.Address)),
		}).Info("Sensor found")
	} else {
		log.WithError(err).Debug("Sensor name is not a 1-Wire ROM id")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	coll := metrics.NewCollectors(reg)

	sink, err := newSink(ctx, cfg, reg)
	if err != nil {
		log.WithError(err).Error("Could not open sink")
		return 1
	}

	loop := poller.New(poller.Config{
		Sensor:   cfg.Sensor,
		Unit:     cfg.Unit,
		Interval: cfg.Interval(),
	}, reader, sink,
		poller.WithReporter(diag.Multi{diag.NewLogrus(log.StandardLogger()), diag.NewCounter(reg)}),
		poller.WithCollectors(coll),
	)

	if cfg.Listen != "" {
		access := log.StandardLogger().WriterLevel(log.DebugLevel)
		defer access.Close()
		go func() {
			if err := server.Serve(ctx, cfg.Listen, server.NewRouter(cfg.Sensor, loop, reg, access)); err != nil {
				log.WithError(err).Error("Status server stopped")
			}
		}()
	}

	log.WithFields(log.Fields{
		"sensor":   cfg.Sensor,
		"bucket":   cfg.Bucket,
		"sinks":    cfg.Sinks,
		"interval": cfg.Interval(),
		"unit":     cfg.Unit,
	}).Info("Polling")
	if err := loop.Run(ctx); err != nil {
		log.WithError(err).Error("Poller failed")
		return 1
	}
	log.Info("Stopped")
	return 0
}

func setupLogging(cfg config.PollingConfig) {
	log.SetOutput(os.Stdout)
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// loadModules mirrors what the driver needs on a Raspberry Pi. Failures are
// logged; the sensor check that follows decides whether to go on.
func loadModules(ctx context.Context) {
	for _, m := range []string{"w1-gpio", "w1-therm"} {
		out, err := exec.CommandContext(ctx, "modprobe", m).CombinedOutput()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"module": m, "output": string(out)}).Warn("modprobe failed")
		}
	}
}
