package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"headwatch/internal/config"
)

const (
	DefaultEmailSubject = "Head Count Alert!"
	DefaultEmailTimeout = 10 * time.Second
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPMailer delivers through an SMTP relay, upgrading with STARTTLS before
// authenticating.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

func NewSMTPMailer(conf config.EmailConfig) *SMTPMailer {
	m := &SMTPMailer{
		host:     conf.Host,
		port:     conf.Port,
		username: conf.Username,
		password: conf.Password,
		timeout:  time.Duration(conf.Timeout) * time.Second,
	}
	if m.timeout <= 0 {
		m.timeout = DefaultEmailTimeout
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if m.host == "" {
		return errors.New("smtp host not configured")
	}

	mm := mail.NewMsg()
	if err := mm.From(msg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.timeout),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", m.host, m.port, err)
	}
	return nil
}

type EmailChannel struct {
	mailer  Mailer
	from    string
	to      string
	subject string
	timeout time.Duration
}

func NewEmailChannel(mailer Mailer, conf config.EmailConfig) *EmailChannel {
	c := &EmailChannel{
		mailer:  mailer,
		from:    conf.From,
		to:      conf.To,
		subject: conf.Subject,
		timeout: time.Duration(conf.Timeout) * time.Second,
	}
	if c.mailer == nil {
		c.mailer = NewSMTPMailer(conf)
	}
	if c.from == "" {
		c.from = conf.Username
	}
	if c.subject == "" {
		c.subject = DefaultEmailSubject
	}
	if c.timeout <= 0 {
		c.timeout = DefaultEmailTimeout
	}
	return c
}

func (c *EmailChannel) Kind() ChannelKind {
	return Email
}

func EmailBody(headCount int) string {
	return fmt.Sprintf("Warning! The detected head count has exceeded the threshold. Detected heads: %d.", headCount)
}

func (c *EmailChannel) Send(ctx context.Context, alert Alert) error {
	if c.from == "" || c.to == "" {
		return errors.New("email sender or recipient not configured")
	}
	msg := &Message{
		From:    c.from,
		To:      c.to,
		Subject: c.subject,
		Body:    EmailBody(alert.HeadCount),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := runBounded(ctx, func() error { return c.mailer.Send(ctx, msg) }); err != nil {
		return fmt.Errorf("email delivery: %w", err)
	}
	return nil
}
