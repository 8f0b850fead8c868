package alert

import "context"

// VisualSignal asks the presentation shell to switch to its alert styling.
type VisualSignal struct {
	HeadCount int
	Alert     bool
}

// VisualChannel hands signals to the shell over a buffered Go channel. When
// nobody drains it, signals are dropped; delivery always succeeds.
type VisualChannel struct {
	signals chan VisualSignal
}

func NewVisualChannel(buffer int) *VisualChannel {
	if buffer < 1 {
		buffer = 1
	}
	return &VisualChannel{signals: make(chan VisualSignal, buffer)}
}

func (v *VisualChannel) Kind() ChannelKind {
	return Visual
}

func (v *VisualChannel) Signals() <-chan VisualSignal {
	return v.signals
}

func (v *VisualChannel) Send(ctx context.Context, alert Alert) error {
	select {
	case v.signals <- VisualSignal{HeadCount: alert.HeadCount, Alert: true}:
	default:
	}
	return nil
}
