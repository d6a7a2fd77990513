package moderation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"chalet/config"
	"chalet/infras/kafka"
	kafkaMocks "chalet/infras/kafka/mocks"
	otelMocks "chalet/infras/otel/mocks"
	"chalet/internal/domains/payment/model/dto"
	paymentMocks "chalet/internal/domains/payment/service/mocks"
	"chalet/internal/handlers/moderation"
	"chalet/shared"
	"chalet/shared/constant"
	"chalet/shared/failure"
)

func newHandler(t *testing.T) (*moderation.Handler, *paymentMocks.MockPayment, *kafkaMocks.MockClient) {
	t.Helper()

	ctrl := gomock.NewController(t)
	payments := paymentMocks.NewMockPayment(ctrl)
	client := kafkaMocks.NewMockClient(ctrl)

	cfg := &config.Config{}
	cfg.Kafka.ConsumerGroup = "chalet"
	cfg.Kafka.Topics.PaymentModeration = "payment.moderation"

	return moderation.New(payments, client, cfg, otelMocks.NewOtel()), payments, client
}

func message(value string) kafkaGo.Message {
	return kafkaGo.Message{Key: []byte("9"), Value: []byte(value)}
}

func TestHandler_Handle(t *testing.T) {
	t.Run("approve acts as the moderator with admin rights", func(t *testing.T) {
		handler, payments, _ := newHandler(t)

		payments.EXPECT().
			Approve(gomock.Any(), int64(9)).
			DoAndReturn(func(ctx context.Context, _ int64) (dto.PaymentResponse, error) {
				user, role := shared.Actor(ctx)
				assert.Equal(t, "back-office-1", user)
				assert.Equal(t, constant.RoleAdmin, role)

				return dto.PaymentResponse{ID: 9, Status: "approved"}, nil
			})

		err := handler.Handle(context.Background(), message(`{"payment_id":9,"decision":"approve","moderator":"back-office-1"}`))

		assert.NoError(t, err)
	})

	t.Run("reject", func(t *testing.T) {
		handler, payments, _ := newHandler(t)
		payments.EXPECT().Reject(gomock.Any(), int64(9)).Return(dto.PaymentResponse{ID: 9, Status: "rejected"}, nil)

		err := handler.Handle(context.Background(), message(`{"payment_id":9,"decision":"reject","moderator":"back-office-1"}`))

		assert.NoError(t, err)
	})

	t.Run("service errors are returned and traced", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		payments := paymentMocks.NewMockPayment(ctrl)
		tracer := otelMocks.NewOtel()

		handler := moderation.New(payments, kafkaMocks.NewMockClient(ctrl), &config.Config{}, tracer)
		payments.EXPECT().Approve(gomock.Any(), int64(9)).Return(dto.PaymentResponse{}, errors.New("db down"))

		err := handler.Handle(context.Background(), message(`{"payment_id":9,"decision":"approve","moderator":"back-office-1"}`))

		assert.ErrorContains(t, err, "db down")
		assert.False(t, kafka.IsPermanent(err))

		scope := tracer.Scope("handler.ModeratePayment")
		if assert.NotNil(t, scope) {
			assert.True(t, scope.Ended())
			assert.Len(t, scope.Errors(), 1)
		}
	})

	t.Run("malformed messages are skipped", func(t *testing.T) {
		handler, _, _ := newHandler(t)

		for _, value := range []string{
			`not json`,
			`{"payment_id":9,"decision":"maybe","moderator":"back-office-1"}`,
			`{"payment_id":9,"decision":"approve"}`,
			`{"payment_id":0,"decision":"approve","moderator":"back-office-1"}`,
		} {
			err := handler.Handle(context.Background(), message(value))

			assert.Error(t, err, value)
			assert.True(t, kafka.IsPermanent(err), value)
		}
	})

	t.Run("refused decisions are skipped", func(t *testing.T) {
		handler, payments, _ := newHandler(t)
		payments.EXPECT().Reject(gomock.Any(), int64(9)).Return(dto.PaymentResponse{}, failure.State("payment was already approved"))

		err := handler.Handle(context.Background(), message(`{"payment_id":9,"decision":"reject","moderator":"back-office-1"}`))

		assert.True(t, kafka.IsPermanent(err))
	})

	t.Run("a database outage is redelivered until it passes", func(t *testing.T) {
		handler, payments, _ := newHandler(t)
		gomock.InOrder(
			payments.EXPECT().Approve(gomock.Any(), int64(9)).Return(dto.PaymentResponse{}, errors.New("failed to lock payment: connection refused")),
			payments.EXPECT().Approve(gomock.Any(), int64(9)).Return(dto.PaymentResponse{}, errors.New("failed to lock payment: connection refused")),
			payments.EXPECT().Approve(gomock.Any(), int64(9)).Return(dto.PaymentResponse{ID: 9, Status: "approved"}, nil),
		)

		backoff := kafka.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond}
		err := kafka.Handle(context.Background(), message(`{"payment_id":9,"decision":"approve","moderator":"back-office-1"}`), handler.Handle, backoff)

		assert.NoError(t, err)
	})
}

func TestHandler_Handle_StopsRetryingOnShutdown(t *testing.T) {
	handler, payments, _ := newHandler(t)
	ctx, cancel := context.WithCancel(context.Background())

	payments.EXPECT().
		Approve(gomock.Any(), int64(9)).
		DoAndReturn(func(context.Context, int64) (dto.PaymentResponse, error) {
			cancel()

			return dto.PaymentResponse{}, errors.New("failed to lock payment: connection refused")
		})

	backoff := kafka.Backoff{Initial: time.Hour, Max: time.Hour}
	err := kafka.Handle(ctx, message(`{"payment_id":9,"decision":"approve","moderator":"back-office-1"}`), handler.Handle, backoff)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandler_Run(t *testing.T) {
	handler, _, client := newHandler(t)

	client.EXPECT().Consume(gomock.Any(), "chalet", "payment.moderation", gomock.Any()).Return(nil)
	client.EXPECT().Close().Return(nil)

	assert.NoError(t, handler.Run(context.Background()))
	assert.NoError(t, handler.Close())
}
