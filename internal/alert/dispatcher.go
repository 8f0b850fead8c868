package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"headwatch/internal/config"
	"headwatch/pkg/log"
)

const suppressedDetail = "suppressed by cooldown"

type Option func(*Dispatcher)

// WithCooldown suppresses a channel for d after it last delivered
// successfully. Zero disables suppression.
func WithCooldown(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.cooldown = d
	}
}

func WithClock(c clock.Clock) Option {
	return func(disp *Dispatcher) {
		disp.clock = c
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(disp *Dispatcher) {
		disp.logger = logger
	}
}

// Dispatcher fans an exceeded decision out to its channels one by one. A
// failing channel never stops the ones after it.
type Dispatcher struct {
	channels []Channel
	cooldown time.Duration
	clock    clock.Clock
	logger   *logrus.Entry

	mu       sync.Mutex
	lastSent map[ChannelKind]time.Time
	inFlight map[ChannelKind]bool
}

// NewDispatcher orders channels Visual, DesktopNotify, Email regardless of
// the order they are passed in.
func NewDispatcher(channels []Channel, opts ...Option) *Dispatcher {
	ordered := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			ordered = append(ordered, ch)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind() < ordered[j].Kind()
	})

	d := &Dispatcher{
		channels: ordered,
		clock:    clock.New(),
		logger:   log.NewLogger("dispatcher"),
		lastSent: make(map[ChannelKind]time.Time),
		inFlight: make(map[ChannelKind]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers an alert for headCount on every channel and reports one
// outcome per channel. It returns nil for a Normal decision.
func (d *Dispatcher) Dispatch(ctx context.Context, decision Decision, headCount int) []ChannelOutcome {
	if decision != Exceeded {
		return nil
	}

	alert := Alert{HeadCount: headCount}
	outcomes := make([]ChannelOutcome, 0, len(d.channels))
	for _, ch := range d.channels {
		outcome := d.deliver(ctx, ch, alert)
		if !outcome.OK() {
			d.logger.WithField("channel", outcome.Channel).Warnf("alert delivery failed: %s", outcome.Detail)
		} else {
			d.logger.WithField("channel", outcome.Channel).Debugf("alert delivered, head count %d", headCount)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, alert Alert) ChannelOutcome {
	kind := ch.Kind()
	reserved, ok := d.reserve(kind)
	if !ok {
		return ChannelOutcome{Channel: kind, Status: StatusOK, Detail: suppressedDetail}
	}

	err := d.send(ctx, ch, alert)
	if reserved {
		d.release(kind, err == nil)
	}
	if err != nil {
		return ChannelOutcome{Channel: kind, Status: StatusFailed, Detail: err.Error()}
	}
	return ChannelOutcome{Channel: kind, Status: StatusOK}
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, alert Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ChannelError{Channel: ch.Kind(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := ch.Send(ctx, alert); err != nil {
		return &ChannelError{Channel: ch.Kind(), Err: err}
	}
	return nil
}

// reserve claims kind for one delivery. ok is false while the channel is
// cooling down or another delivery on it is in flight. reserved reports
// whether release must be called. The visual channel is never suppressed.
func (d *Dispatcher) reserve(kind ChannelKind) (reserved, ok bool) {
	if d.cooldown <= 0 || kind == Visual {
		return false, true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[kind] {
		return false, false
	}
	if last, sent := d.lastSent[kind]; sent && d.clock.Since(last) < d.cooldown {
		return false, false
	}
	d.inFlight[kind] = true
	return true, true
}

// release ends a reservation. Only a successful delivery starts the window.
func (d *Dispatcher) release(kind ChannelKind, delivered bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, kind)
	if delivered {
		d.lastSent[kind] = d.clock.Now()
	}
}

// FromConfig builds the standard visual, desktop and email dispatcher. A nil
// notifier or mailer selects the OS notifier and the SMTP mailer.
func FromConfig(conf config.AlertConfig, visual *VisualChannel, notifier Notifier, mailer Mailer, opts ...Option) *Dispatcher {
	if visual == nil {
		visual = NewVisualChannel(1)
	}
	channels := []Channel{
		visual,
		NewDesktopChannel(notifier, conf.Desktop),
		NewEmailChannel(mailer, conf.Email),
	}
	if conf.Cooldown > 0 {
		opts = append([]Option{WithCooldown(time.Duration(conf.Cooldown) * time.Second)}, opts...)
	}
	return NewDispatcher(channels, opts...)
}
