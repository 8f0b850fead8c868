package report

import (
	"headwatch/internal/pipeline"
)

// Event is the message published for every analysis.
type Event struct {
	pipeline.Summary
	// Timestamp in unix nanoseconds.
	Timestamp int64 `json:"timestamp"`
}

func NewEvent(r *pipeline.Report) *Event {
	return &Event{
		Summary:   r.Summary(),
		Timestamp: r.CreatedAt.UnixNano(),
	}
}
