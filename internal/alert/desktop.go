package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"headwatch/internal/config"
)

const (
	DefaultNotifyTitle   = "Head Count Alert!"
	DefaultNotifyTimeout = 5 * time.Second
)

type Notifier interface {
	Notify(title, message string, timeout time.Duration) error
}

// BeeepNotifier posts notifications through the OS notification service.
// The service decides how long a notification stays on screen; timeout only
// bounds the call.
type BeeepNotifier struct{}

func (BeeepNotifier) Notify(title, message string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return runBounded(ctx, func() error {
		return beeep.Notify(title, message, "")
	})
}

type DesktopChannel struct {
	notifier Notifier
	title    string
	timeout  time.Duration
}

func NewDesktopChannel(notifier Notifier, conf config.DesktopConfig) *DesktopChannel {
	c := &DesktopChannel{
		notifier: notifier,
		title:    conf.Title,
		timeout:  time.Duration(conf.Timeout) * time.Second,
	}
	if c.notifier == nil {
		c.notifier = BeeepNotifier{}
	}
	if c.title == "" {
		c.title = DefaultNotifyTitle
	}
	if c.timeout <= 0 {
		c.timeout = DefaultNotifyTimeout
	}
	return c
}

func (c *DesktopChannel) Kind() ChannelKind {
	return DesktopNotify
}

func NotifyMessage(headCount int) string {
	return fmt.Sprintf("%d heads detected. Threshold exceeded!", headCount)
}

func (c *DesktopChannel) Send(ctx context.Context, alert Alert) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := runBounded(ctx, func() error {
		return c.notifier.Notify(c.title, NotifyMessage(alert.HeadCount), c.timeout)
	})
	if err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
