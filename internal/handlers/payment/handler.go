package payment

import (
	"chalet/infras/otel"
	"chalet/internal/domains/payment/service"
	"chalet/shared"
	"chalet/shared/constant"
	"chalet/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/{id}/approve", handler.ApprovePayment)
		routerGroup.Post("/{id}/reject", handler.RejectPayment)
	})
}

// ApprovePayment accepts a submitted payment and confirms its booking.
// @Summary Approve a payment
// @Description Admin only. Approving an approved payment changes nothing.
// @Tags Payment
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Data[dto.PaymentResponse] "Approved payment"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 422 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/{id}/approve [post]
// @Security BearerAuth
func (handler *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ApprovePayment")
	defer scope.End()

	id, err := shared.ParseID(constant.RequestParamID, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	payment, err := handler.service.Approve(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to approve payment")

		response.WithError(w, err)

		return
	}

	user, _ := shared.Actor(ctx)
	scope.AddEvent("Payment approved by user " + user)

	response.WithJSON(w, http.StatusOK, payment)
}

// RejectPayment refuses a submitted payment and cancels its booking.
// @Summary Reject a payment
// @Description Admin only. Rejecting a rejected payment changes nothing.
// @Tags Payment
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Data[dto.PaymentResponse] "Rejected payment"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 422 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/{id}/reject [post]
// @Security BearerAuth
func (handler *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RejectPayment")
	defer scope.End()

	id, err := shared.ParseID(constant.RequestParamID, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	payment, err := handler.service.Reject(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reject payment")

		response.WithError(w, err)

		return
	}

	user, _ := shared.Actor(ctx)
	scope.AddEvent("Payment rejected by user " + user)

	response.WithJSON(w, http.StatusOK, payment)
}
