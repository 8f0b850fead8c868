package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"headwatch/internal/config"
	"headwatch/internal/report"
	"headwatch/pkg/log"
)

// Handler is called once per decoded report event. A returned error requeues
// the message.
type Handler func(ctx context.Context, ev *report.Event) error

type Consumer struct {
	conf     config.NSQConfig
	ctx      context.Context
	cancel   context.CancelFunc
	consumer *nsq.Consumer
	wg       sync.WaitGroup
	logger   *logrus.Entry
	handler  Handler
}

func NewConsumer(conf config.NSQConfig, handler Handler) (*Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	logger := log.GetLogger(ctx).WithField("component", "consumer")

	nsqConf := nsq.NewConfig()
	nsqConf.MsgTimeout = time.Minute
	nsqConf.MaxInFlight = 10
	nsqConf.MaxAttempts = 2

	consumer, err := nsq.NewConsumer(conf.Topic, conf.Channel, nsqConf)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}

	c := &Consumer{
		conf:     conf,
		ctx:      ctx,
		cancel:   cancel,
		consumer: consumer,
		logger:   logger,
		handler:  handler,
	}

	consumer.AddHandler(c)

	return c, nil
}

func (c *Consumer) HandleMessage(message *nsq.Message) error {
	c.logger.Debugf("Received NSQ message: %s", string(message.Body))

	var ev report.Event
	if err := json.Unmarshal(message.Body, &ev); err != nil {
		// a malformed event never decodes on retry
		c.logger.WithError(err).Error("Failed to unmarshal NSQ message, dropping")
		return nil
	}

	c.logger.WithFields(logrus.Fields{
		"report":    ev.ID,
		"timestamp": ev.Timestamp,
		"source":    ev.Source,
		"heads":     ev.HeadCount,
	}).Debug("Processing report event")

	if err := c.handler(c.ctx, &ev); err != nil {
		c.logger.WithError(err).Errorf("Failed to handle report %s", ev.ID)
		return err
	}
	return nil
}

func (c *Consumer) Start() error {
	c.logger.Infof("Starting NSQ consumer on topic %s...", c.conf.Topic)

	err := c.consumer.ConnectToNSQD(c.conf.NSQDAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to NSQ: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.consumer.Stop()
		<-c.consumer.StopChan
	}()

	return nil
}

func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()
}
