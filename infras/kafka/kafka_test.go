package kafka_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalet/infras/kafka"
)

type moderation struct {
	PaymentID int64  `json:"payment_id"`
	Decision  string `json:"decision"`
}

func TestMessage_ToKafkaMessage(t *testing.T) {
	msg := kafka.Message{Key: "42", Value: moderation{PaymentID: 7, Decision: "approve"}}

	res, err := msg.ToKafkaMessage()
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), res.Key)
	assert.JSONEq(t, `{"payment_id":7,"decision":"approve"}`, string(res.Value))
}

func TestMessage_ToKafkaMessage_Unmarshalable(t *testing.T) {
	msg := kafka.Message{Key: "42", Value: make(chan int)}

	_, err := msg.ToKafkaMessage()
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	res, err := kafka.Decode[moderation](kafkaGo.Message{Value: []byte(`{"payment_id":7,"decision":"reject"}`)})
	require.NoError(t, err)
	assert.Equal(t, moderation{PaymentID: 7, Decision: "reject"}, res)

	_, err = kafka.Decode[moderation](kafkaGo.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, kafka.Permanent(nil))

	cause := errors.New("bad payload")
	err := kafka.Permanent(fmt.Errorf("decode: %w", cause))

	assert.True(t, kafka.IsPermanent(err))
	assert.True(t, kafka.IsPermanent(fmt.Errorf("handler: %w", err)))
	assert.ErrorIs(t, err, cause)
	assert.False(t, kafka.IsPermanent(cause))
}

func TestHandle(t *testing.T) {
	backoff := kafka.Backoff{Initial: time.Millisecond, Max: 4 * time.Millisecond}
	msg := kafkaGo.Message{Topic: "payment.moderation", Offset: 3}

	tests := []struct {
		name      string
		results   []error
		wantCalls int
	}{
		{name: "success on first attempt", results: []error{nil}, wantCalls: 1},
		{name: "permanent failure is not retried", results: []error{kafka.Permanent(errors.New("bad payload"))}, wantCalls: 1},
		{
			name:      "transient failures are retried on the same message",
			results:   []error{errors.New("connection refused"), errors.New("connection refused"), nil},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0

			err := kafka.Handle(context.Background(), msg, func(_ context.Context, got kafkaGo.Message) error {
				assert.Equal(t, msg.Offset, got.Offset)

				calls++

				return tt.results[calls-1]
			}, backoff)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestHandle_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0

	err := kafka.Handle(ctx, kafkaGo.Message{}, func(context.Context, kafkaGo.Message) error {
		calls++

		return errors.New("connection refused")
	}, kafka.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, calls, 1)
}
