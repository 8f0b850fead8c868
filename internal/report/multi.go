package report

import (
	"context"
	"errors"

	"headwatch/internal/pipeline"
)

// Multi runs sinks in order and keeps going past failures. Put the evidence
// sink first so later sinks see the stored path.
type Multi []pipeline.Sink

func (m Multi) Publish(ctx context.Context, r *pipeline.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
