package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	cb "github.com/adpadillar/software-architecture-library/pkg/circuit_breaker"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
)

// Publisher sends loan events to kafka.LoansTopic keyed by resource, so events of one resource
// keep their order within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       cb.CircuitBreaker
	log      *zap.Logger
}

func NewPublisher(producer sarama.SyncProducer, log *zap.Logger) *Publisher {
	const (
		recordLength     = 20
		timeout          = 10 * time.Second
		percentile       = 0.5
		recoveryRequests = 3
	)
	return &Publisher{
		producer: producer,
		topic:    kafka.LoansTopic,
		cb:       cb.New(recordLength, timeout, percentile, recoveryRequests),
		log:      log.Named("publisher"),
	}
}

func (p *Publisher) Publish(ctx context.Context, event kafka.LoanEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal loan event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ResourceID),
		Value: sarama.ByteEncoder(data),
	}
	return p.cb.Call(func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrap(err, "send loan event")
		}
		p.log.Debug("loan event sent",
			zap.String("type", string(event.Type)),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
