// Package moderation applies payment decisions published by the back office.
package moderation

import (
	"chalet/config"
	"chalet/infras/kafka"
	"chalet/infras/otel"
	"chalet/internal/domains/payment/model/dto"
	"chalet/internal/domains/payment/service"
	"chalet/shared/constant"
	"chalet/shared/failure"
	"chalet/shared/validator"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

type Handler struct {
	service service.Payment
	client  kafka.Client
	cfg     *config.Config
	otel    otel.Otel
}

func New(service service.Payment, client kafka.Client, cfg *config.Config, otel otel.Otel) *Handler {
	return &Handler{
		service: service,
		client:  client,
		cfg:     cfg,
		otel:    otel,
	}
}

// Run consumes the moderation topic until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) error {
	topic := h.cfg.Kafka.Topics.PaymentModeration

	log.Info().Str("topic", topic).Str("group", h.cfg.Kafka.ConsumerGroup).Msg("starting payment moderation consumer")

	return h.client.Consume(ctx, h.cfg.Kafka.ConsumerGroup, topic, h.Handle) //nolint:wrapcheck
}

// Close releases the Kafka connections once Run has returned.
func (h *Handler) Close() error {
	return h.client.Close() //nolint:wrapcheck
}

// Handle applies one decision as the moderator named in the message. Malformed messages and
// decisions the payment refuses are returned as permanent so the consumer moves on. Anything
// else is retried by the consumer.
func (h *Handler) Handle(ctx context.Context, message kafkaGo.Message) (err error) {
	ctx, scope := h.otel.NewScope(ctx, constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ModeratePayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req, err := kafka.Decode[dto.ModerationMessage](message)
	if err != nil {
		return kafka.Permanent(err) //nolint:wrapcheck
	}

	if err = validator.ValidateStruct(&req); err != nil {
		log.Warn().Err(err).Str("key", string(message.Key)).Msg("invalid moderation message")

		return kafka.Permanent(err) //nolint:wrapcheck
	}

	ctx = context.WithValue(ctx, constant.ContextKeyUserID, req.Moderator)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleAdmin)

	var res dto.PaymentResponse

	switch req.Decision {
	case dto.DecisionApprove:
		res, err = h.service.Approve(ctx, req.PaymentID)
	case dto.DecisionReject:
		res, err = h.service.Reject(ctx, req.PaymentID)
	default:
		return kafka.Permanent(fmt.Errorf("unknown moderation decision %q", req.Decision)) //nolint:wrapcheck
	}

	if failure.IsCallerError(err) {
		log.Warn().Err(err).Int64("payment_id", req.PaymentID).Msg("moderation decision refused")

		return kafka.Permanent(fmt.Errorf("failed to moderate payment %d: %w", req.PaymentID, err)) //nolint:wrapcheck
	}

	if err != nil {
		return fmt.Errorf("failed to moderate payment %d: %w", req.PaymentID, err)
	}

	log.Info().
		Int64("payment_id", res.ID).
		Str("status", res.Status).
		Str("moderator", req.Moderator).
		Msg("payment moderated")

	return nil
}
