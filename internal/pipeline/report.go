package pipeline

import (
	"fmt"
	"time"

	"headwatch/internal/alert"
	"headwatch/internal/detector"
	"headwatch/internal/headcount"
)

// Report is the complete result of one analysis.
type Report struct {
	ID         string
	Source     string
	Frame      headcount.FrameResult
	Threshold  int
	Decision   alert.Decision
	Outcomes   []alert.ChannelOutcome
	Detections []detector.Detection
	CreatedAt  time.Time

	// EvidencePath is set by a sink that stored the annotated image.
	EvidencePath string
}

// Message is the line shown to the operator for this report.
func (r *Report) Message() string {
	if r.Decision == alert.Exceeded {
		return fmt.Sprintf("Head count exceeded: %d", r.Frame.HeadCount)
	}
	return fmt.Sprintf("Head count is normal: %d", r.Frame.HeadCount)
}

func (r *Report) Failed() []alert.ChannelOutcome {
	var failed []alert.ChannelOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary is the serializable form of a Report without pixel data.
type Summary struct {
	ID           string                 `json:"id"`
	Source       string                 `json:"source"`
	HeadCount    int                    `json:"headCount"`
	Threshold    int                    `json:"threshold"`
	Decision     alert.Decision         `json:"decision"`
	Message      string                 `json:"message"`
	Outcomes     []alert.ChannelOutcome `json:"outcomes"`
	Heads        []detector.Detection   `json:"heads"`
	EvidencePath string                 `json:"evidencePath,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

func (r *Report) Summary() Summary {
	outcomes := r.Outcomes
	if outcomes == nil {
		outcomes = []alert.ChannelOutcome{}
	}
	heads := r.Frame.Heads
	if heads == nil {
		heads = []detector.Detection{}
	}
	return Summary{
		ID:           r.ID,
		Source:       r.Source,
		HeadCount:    r.Frame.HeadCount,
		Threshold:    r.Threshold,
		Decision:     r.Decision,
		Message:      r.Message(),
		Outcomes:     outcomes,
		Heads:        heads,
		EvidencePath: r.EvidencePath,
		CreatedAt:    r.CreatedAt,
	}
}
