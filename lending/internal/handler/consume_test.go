package handler_test

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/handler"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumer_ConsumeClaim(t *testing.T) {
	t.Parallel()
	results := map[string]error{
		"ok":       nil,
		"returned": errs.ErrNoOpenLoan,
		"ghost":    errs.ErrNotFound,
		"flaky":    errs.Store("CloseLoan", errors.New("conn reset")),
	}
	var seen []string
	consumer := handler.NewConsumer(func(_ context.Context, resourceID string) (model.Loan, error) {
		seen = append(seen, resourceID)
		return model.Loan{ID: "l-" + resourceID, ResourceID: resourceID}, results[resourceID]
	}, zap.NewNop())

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 8)}
	for i, value := range []string{
		`{"resourceId":"ok"}`,
		`not json`,
		`{"resourceId":"returned"}`,
		`{"resourceId":"ghost"}`,
		`{"resourceId":"flaky"}`,
		`{}`,
	} {
		claim.messages <- &sarama.ConsumerMessage{Topic: "lending.returns", Offset: int64(i), Value: []byte(value)}
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, consumer.ConsumeClaim(session, claim))

	require.Equal(t, []string{"ok", "returned", "ghost", "flaky"}, seen)
	// the store failure stays unmarked for redelivery
	require.Equal(t, []int64{0, 1, 2, 3, 5}, session.marked)
}

func TestConsumer_StopsOnSessionEnd(t *testing.T) {
	t.Parallel()
	consumer := handler.NewConsumer(func(context.Context, string) (model.Loan, error) {
		t.Fatal("unexpected call")
		return model.Loan{}, nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	require.NoError(t, consumer.ConsumeClaim(session, claim))
	require.Empty(t, session.marked)
}
