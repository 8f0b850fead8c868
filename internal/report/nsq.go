package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"

	"headwatch/internal/config"
	"headwatch/internal/pipeline"
)

// Publisher is the part of *nsq.Producer used by NSQSink.
type Publisher interface {
	Publish(topic string, body []byte) error
}

type NSQSink struct {
	producer Publisher
	topic    string
}

func NewNSQSink(producer Publisher, topic string) *NSQSink {
	return &NSQSink{producer: producer, topic: topic}
}

// NewNSQProducer connects a producer to the configured nsqd.
func NewNSQProducer(conf config.NSQConfig) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(conf.NSQDAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create NSQ producer failed: %w", err)
	}
	return producer, nil
}

func (s *NSQSink) Publish(ctx context.Context, r *pipeline.Report) error {
	msgData, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}
	if err := s.producer.Publish(s.topic, msgData); err != nil {
		return fmt.Errorf("publish to NSQ topic %s: %w", s.topic, err)
	}
	return nil
}
