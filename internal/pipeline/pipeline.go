package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"headwatch/internal/alert"
	"headwatch/internal/detector"
	"headwatch/internal/headcount"
	"headwatch/internal/metrics"
	"headwatch/pkg/log"
)

// Sink receives every successful report. Sink errors are logged and never
// change the outcome of an analysis.
type Sink interface {
	Publish(ctx context.Context, r *Report) error
}

type Option func(*Analyzer)

func WithSinks(sinks ...Sink) Option {
	return func(a *Analyzer) {
		a.sinks = append(a.sinks, sinks...)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// Analyzer runs detector, counter, policy and dispatcher for one image at a
// time. It keeps no per-request state, so concurrent calls are independent.
type Analyzer struct {
	detector   *detector.Detector
	opts       headcount.Options
	dispatcher *alert.Dispatcher
	sinks      []Sink
	metrics    *metrics.Metrics
}

func NewAnalyzer(det *detector.Detector, opts headcount.Options, dispatcher *alert.Dispatcher, options ...Option) *Analyzer {
	a := &Analyzer{
		detector:   det,
		opts:       opts,
		dispatcher: dispatcher,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Analyze returns either a complete report or an error; never both. Alert
// delivery failures are recorded in the report outcomes.
func (a *Analyzer) Analyze(ctx context.Context, src Source, threshold int) (*Report, error) {
	logger := log.GetLogger(ctx).WithFields(logrus.Fields{
		"component": "pipeline",
		"source":    src.Name(),
	})

	img, err := src.open(a.detector)
	if err != nil {
		a.metrics.ObserveError(errorKind(err))
		return nil, fmt.Errorf("analyze %s: %w", src.Name(), err)
	}

	start := time.Now()
	detections, err := a.detector.Detect(ctx, img)
	if err != nil {
		a.metrics.ObserveError(errorKind(err))
		return nil, fmt.Errorf("analyze %s: %w", src.Name(), err)
	}
	a.metrics.ObserveDetect(time.Since(start))

	frame := headcount.Count(img, detections, a.opts)
	decision := alert.Evaluate(frame.HeadCount, threshold)

	var outcomes []alert.ChannelOutcome
	if decision == alert.Exceeded && a.dispatcher != nil {
		outcomes = a.dispatcher.Dispatch(ctx, decision, frame.HeadCount)
	}

	report := &Report{
		ID:         uuid.NewString(),
		Source:     src.Name(),
		Frame:      frame,
		Threshold:  threshold,
		Decision:   decision,
		Outcomes:   outcomes,
		Detections: detections,
		CreatedAt:  time.Now(),
	}

	a.metrics.ObserveAnalysis(decision.String(), frame.HeadCount)
	for _, o := range outcomes {
		a.metrics.ObserveChannel(o.Channel.String(), string(o.Status))
	}
	logger.WithFields(logrus.Fields{
		"heads":    frame.HeadCount,
		"decision": decision,
		"report":   report.ID,
	}).Info(report.Message())

	for _, sink := range a.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			logger.WithError(err).Warnf("publish report %s failed", report.ID)
		}
	}
	return report, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, detector.ErrImageLoad):
		return "image_load"
	case errors.Is(err, detector.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "other"
	}
}
