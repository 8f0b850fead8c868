package main

import (
	"context"
	"errors"
	"os"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"headwatch/internal/alert"
	"headwatch/internal/config"
	"headwatch/internal/detector"
	"headwatch/internal/headcount"
	"headwatch/internal/metrics"
	"headwatch/internal/pipeline"
	"headwatch/internal/report"
)

// loadConfig reads the config file. A missing default file falls back to the
// built-in defaults so the commands work out of the box.
func loadConfig(cmd *cobra.Command) *config.Config {
	conf, err := config.LoadConfig(configFile)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		logrus.Warnf("config file %s not found, using defaults", configFile)
		conf, err = config.Parse(nil)
	}
	if err != nil {
		logrus.Fatal("initConfig error, ", err.Error())
	}
	return conf
}

type app struct {
	analyzer *pipeline.Analyzer
	catalog  *pipeline.Catalog
	visual   *alert.VisualChannel
	producer *nsq.Producer
}

// newApp connects the model and wires the alert channels and report sinks.
// The model must be reachable; there is no degraded mode.
func newApp(ctx context.Context, conf *config.Config, m *metrics.Metrics) *app {
	backend, err := detector.NewTritonBackend(conf.Detector)
	if err != nil {
		logrus.Fatalf("failed to create triton backend: %v", err)
	}
	det, err := detector.New(ctx, conf.Detector, backend)
	if err != nil {
		logrus.Fatalf("failed to init detector: %v", err)
	}

	a := &app{
		catalog: pipeline.NewCatalog(conf.Images),
		visual:  alert.NewVisualChannel(16),
	}
	dispatcher := alert.FromConfig(conf.Alert, a.visual, nil, nil,
		alert.WithLogger(logrus.WithField("component", "dispatcher")))

	var sinks report.Multi
	if conf.S3.Enabled() {
		minioCli, err := report.NewMinioClient(conf.S3)
		if err != nil {
			logrus.Fatalf("failed to init minio: %v", err)
		}
		sinks = append(sinks, report.NewMinioSink(minioCli, conf.S3.Bucket))
	}
	if conf.NSQ.NSQDAddr != "" {
		a.producer, err = report.NewNSQProducer(conf.NSQ)
		if err != nil {
			logrus.Fatalf("failed to init nsq producer: %v", err)
		}
		sinks = append(sinks, report.NewNSQSink(a.producer, conf.NSQ.Topic))
	}

	opts := []pipeline.Option{pipeline.WithMetrics(m)}
	if len(sinks) > 0 {
		opts = append(opts, pipeline.WithSinks(sinks))
	}
	a.analyzer = pipeline.NewAnalyzer(det, headcount.OptionsFromConfig(conf.Counter), dispatcher, opts...)
	return a
}

func (a *app) Close() {
	if a.producer != nil {
		a.producer.Stop()
	}
}
