// Package event publishes booking lifecycle changes to the booking events topic.
package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=./mocks/event_mock.go -package=mocks

import (
	"chalet/config"
	"chalet/infras/kafka"
	"chalet/infras/otel"
	"chalet/internal/domains/booking/lifecycle"
	"chalet/shared/constant"
	"chalet/shared/timezone"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	TypeBookingCreated   Type = "booking.created"
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingCancelled Type = "booking.cancelled"
	TypePaymentSubmitted Type = "payment.submitted"
	TypePaymentApproved  Type = "payment.approved"
	TypePaymentRejected  Type = "payment.rejected"
	TypeGuestScanned     Type = "guest.scanned"
)

type Event struct {
	ID            string                  `json:"id"`
	Type          Type                    `json:"type"`
	BookingID     int64                   `json:"booking_id"`
	PropertyID    *int64                  `json:"property_id,omitempty"`
	Actor         string                  `json:"actor,omitempty"`
	Status        lifecycle.Status        `json:"status,omitempty"`
	PaymentStatus lifecycle.PaymentStatus `json:"payment_status,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
	Data          map[string]any          `json:"data,omitempty"`
}

func New(eventType Type, bookingID int64, actor string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  bookingID,
		Actor:      actor,
		OccurredAt: timezone.Now(),
	}
}

func (e Event) WithState(state lifecycle.State) Event {
	e.Status = state.Status
	e.PaymentStatus = state.PaymentStatus

	return e
}

func (e Event) WithProperty(propertyID *int64) Event {
	e.PropertyID = propertyID

	return e
}

func (e Event) With(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}

	data[key] = value
	e.Data = data

	return e
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type kafkaPublisher struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

type logPublisher struct{}

// NewPublisher writes to Kafka when it is enabled and only logs the events otherwise.
func NewPublisher(cfg *config.Config, client kafka.Client, otel otel.Otel) Publisher {
	if !cfg.Kafka.Enable || client == nil {
		log.Warn().Msg("kafka is disabled, booking events will only be logged")

		return &logPublisher{}
	}

	return &kafkaPublisher{
		client: client,
		topic:  cfg.Kafka.Topics.BookingEvents,
		otel:   otel,
	}
}

// Publish keys every message by booking id so one booking's events stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, events ...Event) (err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		messages = append(messages, kafka.Message{
			Key:   strconv.FormatInt(evt.BookingID, 10),
			Value: evt,
		})
	}

	if err = p.client.SendMessages(ctx, p.topic, messages...); err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("failed to publish booking events")

		return fmt.Errorf("failed to publish booking events: %w", err)
	}

	return nil
}

func (p *logPublisher) Publish(_ context.Context, events ...Event) error {
	for _, evt := range events {
		log.Info().
			Str("event", string(evt.Type)).
			Int64("booking_id", evt.BookingID).
			Str("status", string(evt.Status)).
			Msg("booking event")
	}

	return nil
}

// PublishAsync sends events without holding up the caller. Failures are logged only.
func PublishAsync(ctx context.Context, publisher Publisher, events ...Event) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := publisher.Publish(c, events...); err != nil {
			log.Error().Err(err).Msg("failed to publish events")
		}
	}()
}
