package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

const (
	LoansTopic   = "lending.loans"
	ReturnsTopic = "lending.returns"

	ReturnsConsumerGroup = "lending-returns"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

type EventType string

const (
	EventLent     EventType = "lent"
	EventReturned EventType = "returned"
)

// LoanEvent is published on LoansTopic after a lend or return commits.
type LoanEvent struct {
	Type       EventType `json:"type"`
	LoanID     string    `json:"loanId"`
	ResourceID string    `json:"resourceId"`
	UserID     string    `json:"userId"`
	DueDate    time.Time `json:"dueDate"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReturnRequest is consumed from ReturnsTopic, e.g. from a drop-box scanner.
type ReturnRequest struct {
	ResourceID string `json:"resourceId"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Retry.Max = 3

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume blocks until ctx is done, re-joining the group after every rebalance.
func Consume(ctx context.Context, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topics ...string) error {
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return errors.Wrap(err, "consumer group")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
