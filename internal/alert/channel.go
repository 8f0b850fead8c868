package alert

import (
	"context"
	"fmt"
)

type ChannelKind int

// Dispatch order follows the declaration order.
const (
	Visual ChannelKind = iota
	DesktopNotify
	Email
)

func (k ChannelKind) String() string {
	switch k {
	case Visual:
		return "VISUAL"
	case DesktopNotify:
		return "DESKTOP_NOTIFY"
	case Email:
		return "EMAIL"
	default:
		return fmt.Sprintf("ChannelKind(%d)", int(k))
	}
}

func (k ChannelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ChannelKind) UnmarshalText(text []byte) error {
	for _, c := range []ChannelKind{Visual, DesktopNotify, Email} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown channel %q", text)
}

type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAILED"
)

type ChannelOutcome struct {
	Channel ChannelKind `json:"channel"`
	Status  Status      `json:"status"`
	Detail  string      `json:"detail,omitempty"`
}

func (o ChannelOutcome) OK() bool {
	return o.Status == StatusOK
}

// Alert is what a channel delivers.
type Alert struct {
	HeadCount int
}

type Channel interface {
	Kind() ChannelKind
	Send(ctx context.Context, alert Alert) error
}

// ChannelError records why a channel failed. The dispatcher turns it into a
// FAILED outcome and never returns it.
type ChannelError struct {
	Channel ChannelKind
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// runBounded runs fn and gives up when ctx is done. A panic in fn is
// returned as an error.
func runBounded(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic: %v", r)
			}
		}()
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
