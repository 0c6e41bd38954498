package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
)

type returnResource func(ctx context.Context, resourceID string) (model.Loan, error)

// Consumer applies return requests from kafka.ReturnsTopic.
type Consumer struct {
	returnHandler returnResource
	log           *zap.Logger
}

func NewConsumer(returnHandler returnResource, log *zap.Logger) *Consumer {
	return &Consumer{
		returnHandler: returnHandler,
		log:           log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			if consumer.handle(session.Context(), message) {
				session.MarkMessage(message, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle reports whether message is done with. Malformed requests and rejected returns are
// dropped; store failures leave the offset unmarked so the request is redelivered.
func (consumer *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) bool {
	var req kafka.ReturnRequest
	if err := json.Unmarshal(message.Value, &req); err != nil || req.ResourceID == "" {
		consumer.log.Error("bad return request", zap.ByteString("value", message.Value), zap.Error(err))
		return true
	}

	loan, err := consumer.returnHandler(ctx, req.ResourceID)
	switch {
	case err == nil:
		consumer.log.Debug("returned",
			zap.String("resource", req.ResourceID),
			zap.String("loan", loan.ID),
			zap.Time("timestamp", message.Timestamp))
		return true
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrConflict):
		consumer.log.Warn("return rejected", zap.String("resource", req.ResourceID), zap.Error(err))
		return true
	default:
		consumer.log.Error("consumer.returnHandler", zap.String("resource", req.ResourceID), zap.Error(err))
		return false
	}
}
