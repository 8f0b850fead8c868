package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headwatch/internal/config"
)

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	titles   []string
	messages []string
}

func (n *fakeNotifier) Notify(title, message string, timeout time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.messages = append(n.messages, message)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
	sent  []*Message
}

func (m *fakeMailer) Send(ctx context.Context, msg *Message) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type panicChannel struct{ kind ChannelKind }

func (p panicChannel) Kind() ChannelKind { return p.kind }

func (p panicChannel) Send(ctx context.Context, alert Alert) error {
	panic("boom")
}

func emailConfig() config.EmailConfig {
	return config.EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "alerts@example.com",
		To:       "ops@example.com",
		Timeout:  1,
	}
}

func newTestDispatcher(notifier Notifier, mailer Mailer, opts ...Option) (*Dispatcher, *VisualChannel) {
	visual := NewVisualChannel(4)
	conf := config.AlertConfig{Email: emailConfig()}
	return FromConfig(conf, visual, notifier, mailer, opts...), visual
}

func kinds(outcomes []ChannelOutcome) []ChannelKind {
	var out []ChannelKind
	for _, o := range outcomes {
		out = append(out, o.Channel)
	}
	return out
}

func TestDispatchNormalIsNoop(t *testing.T) {
	notifier, mailer := &fakeNotifier{}, &fakeMailer{}
	d, visual := newTestDispatcher(notifier, mailer)

	assert.Nil(t, d.Dispatch(context.Background(), Normal, 3))
	assert.Zero(t, notifier.count())
	assert.Zero(t, mailer.count())
	assert.Len(t, visual.Signals(), 0)
}

func TestDispatchAllChannelsSucceed(t *testing.T) {
	notifier, mailer := &fakeNotifier{}, &fakeMailer{}
	d, visual := newTestDispatcher(notifier, mailer)

	outcomes := d.Dispatch(context.Background(), Exceeded, 7)

	require.Len(t, outcomes, 3)
	assert.Equal(t, []ChannelKind{Visual, DesktopNotify, Email}, kinds(outcomes))
	for _, o := range outcomes {
		assert.Equal(t, StatusOK, o.Status, o.Channel.String())
	}

	assert.Equal(t, VisualSignal{HeadCount: 7, Alert: true}, <-visual.Signals())
	assert.Equal(t, []string{DefaultNotifyTitle}, notifier.titles)
	assert.Equal(t, []string{"7 heads detected. Threshold exceeded!"}, notifier.messages)

	require.Equal(t, 1, mailer.count())
	msg := mailer.sent[0]
	assert.Equal(t, "alerts@example.com", msg.From)
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, DefaultEmailSubject, msg.Subject)
	assert.Contains(t, msg.Body, "Detected heads: 7.")
}

func TestDispatchEmailFailureIsIsolated(t *testing.T) {
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{err: errors.New("535 authentication failed")}
	d, _ := newTestDispatcher(notifier, mailer)

	outcomes := d.Dispatch(context.Background(), Exceeded, 9)

	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusOK, outcomes[0].Status)
	assert.Equal(t, StatusOK, outcomes[1].Status)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Detail, "authentication failed")
}

func TestDispatchNotifierFailureDoesNotSkipEmail(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("no notification backend")}
	mailer := &fakeMailer{}
	d, _ := newTestDispatcher(notifier, mailer)

	outcomes := d.Dispatch(context.Background(), Exceeded, 6)

	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Detail, "no notification backend")
	assert.Equal(t, StatusOK, outcomes[2].Status)
	assert.Equal(t, 1, mailer.count())
}

func TestDispatchEmailTimeout(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	defer close(mailer.block)
	d, _ := newTestDispatcher(&fakeNotifier{}, mailer)

	start := time.Now()
	outcomes := d.Dispatch(context.Background(), Exceeded, 8)

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Detail, context.DeadlineExceeded.Error())
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := NewDispatcher([]Channel{
		panicChannel{kind: Email},
		NewVisualChannel(1),
		panicChannel{kind: DesktopNotify},
	})

	outcomes := d.Dispatch(context.Background(), Exceeded, 10)

	require.Len(t, outcomes, 3)
	assert.Equal(t, []ChannelKind{Visual, DesktopNotify, Email}, kinds(outcomes))
	assert.Equal(t, StatusOK, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Detail, "panic: boom")
	assert.Equal(t, StatusFailed, outcomes[2].Status)
}

func TestDispatchMissingRecipient(t *testing.T) {
	conf := config.AlertConfig{Email: config.EmailConfig{Host: "smtp.example.com"}}
	d := FromConfig(conf, nil, &fakeNotifier{}, &fakeMailer{})

	outcomes := d.Dispatch(context.Background(), Exceeded, 6)

	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Detail, "not configured")
}

func TestDispatchCooldown(t *testing.T) {
	mock := clock.NewMock()
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	d, _ := newTestDispatcher(notifier, mailer, WithCooldown(time.Minute), WithClock(mock))

	first := d.Dispatch(context.Background(), Exceeded, 6)
	require.Len(t, first, 3)
	assert.Empty(t, first[1].Detail)

	mock.Add(30 * time.Second)
	second := d.Dispatch(context.Background(), Exceeded, 6)
	require.Len(t, second, 3)
	assert.Empty(t, second[0].Detail, "visual is never suppressed")
	assert.Equal(t, StatusOK, second[1].Status)
	assert.Equal(t, suppressedDetail, second[1].Detail)
	assert.Equal(t, suppressedDetail, second[2].Detail)
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, 1, mailer.count())

	mock.Add(31 * time.Second)
	third := d.Dispatch(context.Background(), Exceeded, 6)
	assert.Empty(t, third[2].Detail)
	assert.Equal(t, 2, mailer.count())
}

func TestCooldownNotArmedByFailure(t *testing.T) {
	mock := clock.NewMock()
	mailer := &fakeMailer{err: errors.New("relay down")}
	d, _ := newTestDispatcher(&fakeNotifier{}, mailer, WithCooldown(time.Minute), WithClock(mock))

	d.Dispatch(context.Background(), Exceeded, 6)
	outcomes := d.Dispatch(context.Background(), Exceeded, 6)

	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Equal(t, 2, mailer.count())
}

func TestCooldownHoldsUnderConcurrentDispatch(t *testing.T) {
	const callers = 5

	notifier := &fakeNotifier{}
	mailer := &fakeMailer{block: make(chan struct{})}
	email := emailConfig()
	email.Timeout = 30
	conf := config.AlertConfig{Email: email}
	d := FromConfig(conf, NewVisualChannel(callers), notifier, mailer,
		WithCooldown(time.Minute), WithClock(clock.NewMock()))

	results := make(chan []ChannelOutcome, callers)
	for i := 0; i < callers; i++ {
		go func() {
			results <- d.Dispatch(context.Background(), Exceeded, 7)
		}()
	}

	// one caller holds the email slot; the rest must return without sending
	var all [][]ChannelOutcome
	for i := 0; i < callers-1; i++ {
		select {
		case r := <-results:
			all = append(all, r)
		case <-time.After(5 * time.Second):
			t.Fatal("dispatch blocked behind an in-flight email")
		}
	}
	assert.Equal(t, 0, mailer.count())

	close(mailer.block)
	all = append(all, <-results)

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, notifier.count())

	delivered := 0
	for _, outcomes := range all {
		require.Len(t, outcomes, 3)
		for _, o := range outcomes {
			assert.Equal(t, StatusOK, o.Status)
		}
		if outcomes[2].Detail == "" {
			delivered++
		} else {
			assert.Equal(t, suppressedDetail, outcomes[2].Detail)
		}
	}
	assert.Equal(t, 1, delivered)

	later := d.Dispatch(context.Background(), Exceeded, 7)
	assert.Equal(t, suppressedDetail, later[2].Detail, "window starts once the email is delivered")
}

func TestCooldownReleasedAfterFailedDelivery(t *testing.T) {
	mock := clock.NewMock()
	mailer := &fakeMailer{err: errors.New("relay down")}
	d, _ := newTestDispatcher(&fakeNotifier{}, mailer, WithCooldown(time.Minute), WithClock(mock))

	first := d.Dispatch(context.Background(), Exceeded, 6)
	assert.Equal(t, StatusFailed, first[2].Status)

	mailer.mu.Lock()
	mailer.err = nil
	mailer.mu.Unlock()
	second := d.Dispatch(context.Background(), Exceeded, 6)
	assert.Equal(t, StatusOK, second[2].Status)
	assert.Empty(t, second[2].Detail)

	third := d.Dispatch(context.Background(), Exceeded, 6)
	assert.Equal(t, suppressedDetail, third[2].Detail)
	assert.Equal(t, 2, mailer.count())
}

func TestVisualChannelDropsWhenFull(t *testing.T) {
	v := NewVisualChannel(1)
	require.NoError(t, v.Send(context.Background(), Alert{HeadCount: 1}))
	require.NoError(t, v.Send(context.Background(), Alert{HeadCount: 2}))

	assert.Equal(t, 1, (<-v.Signals()).HeadCount)
	assert.Len(t, v.Signals(), 0)
}

func TestSMTPMailerRequiresHost(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{})
	err := m.Send(context.Background(), &Message{From: "a@example.com", To: "b@example.com"})
	assert.EqualError(t, err, "smtp host not configured")
}
