// Package detectortest provides an in-process detector backend for tests.
package detectortest

import (
	"context"
	"sync"

	"headwatch/internal/detector"
)

// Backend returns canned detection rows. ReadyErr and InferErr, when set,
// are returned from the corresponding calls.
type Backend struct {
	mu       sync.Mutex
	Rows     []float32
	ReadyErr error
	InferErr error

	Calls     int
	LastFrame *detector.Frame
}

func (b *Backend) Ready(ctx context.Context) error {
	return b.ReadyErr
}

func (b *Backend) Infer(ctx context.Context, frame *detector.Frame) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls++
	b.LastFrame = frame
	if b.InferErr != nil {
		return nil, b.InferErr
	}
	return append([]float32(nil), b.Rows...), nil
}

// Row encodes one detection the way the model output does.
func Row(x1, y1, x2, y2, confidence float32, classID int) []float32 {
	return []float32{x1, y1, x2, y2, confidence, float32(classID)}
}

// Rows concatenates rows into a flat model output.
func Rows(rows ...[]float32) []float32 {
	var out []float32
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// Heads returns n non-overlapping head detections with the given confidence.
func Heads(n int, confidence float32) []float32 {
	var out []float32
	for i := 0; i < n; i++ {
		x := float32(10 + i*60)
		out = append(out, Row(x, 20, x+40, 80, confidence, 0)...)
	}
	return out
}
