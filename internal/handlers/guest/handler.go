package guest

import (
	"chalet/infras/otel"
	"chalet/internal/domains/guest/model/dto"
	"chalet/internal/domains/guest/service"
	"chalet/shared"
	"chalet/shared/constant"
	"chalet/shared/validator"
	"chalet/transport/http/middleware"
	"chalet/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service  service.Guest
	throttle middleware.Throttle
	otel     otel.Otel
}

func New(service service.Guest, throttle middleware.Throttle, otel otel.Otel) Handler {
	return Handler{
		service:  service,
		throttle: throttle,
		otel:     otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/guests", func(routerGroup chi.Router) {
		routerGroup.With(handler.throttle.PerActor).Post("/scan", handler.RecordScan)
		routerGroup.With(handler.throttle.PerActor).Get("/{code}", handler.GetGuestByCode)
	})
}

// RecordScan checks a guest in or out by entry code.
// @Summary Scan a guest code
// @Description Property owners and admins only. The booking must be confirmed. Codes are unique per
// @Description booking, so pass booking_id when a code matches several bookings.
// @Tags Guest
// @Accept json
// @Produce json
// @Param request body dto.ScanRequest true "Scan"
// @Success 200 {object} response.Data[dto.GuestResponse] "Guest after the scan"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Code matches several bookings"
// @Failure 422 {object} response.Error "Already checked in or out"
// @Failure 429 {object} response.Message
// @Failure 500 {object} response.Error
// @Router /v1/guests/scan [post]
// @Security BearerAuth
func (handler *Handler) RecordScan(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RecordScan")
	defer scope.End()

	req := dto.ScanRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	guest, err := handler.service.RecordScan(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to record guest scan")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Guest " + req.Action + " recorded")

	response.WithJSON(w, http.StatusOK, guest)
}

// GetGuestByCode looks a guest up by entry code.
// @Summary Get a guest by code
// @Tags Guest
// @Produce json
// @Param code path string true "Guest code"
// @Param booking_id query int false "Booking the code belongs to"
// @Success 200 {object} response.Data[dto.GuestResponse] "Guest"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/guests/{code} [get]
// @Security BearerAuth
func (handler *Handler) GetGuestByCode(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetGuestByCode")
	defer scope.End()

	var bookingID *int64

	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		id, err := shared.ParseID("booking_id", raw)
		if err != nil {
			scope.TraceError(err)
			response.WithError(w, err)

			return
		}

		bookingID = &id
	}

	guest, err := handler.service.GetByCode(ctx, chi.URLParam(r, constant.RequestParamCode), bookingID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get guest by code")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, guest)
}
