package property

import (
	"chalet/infras/otel"
	bookingDto "chalet/internal/domains/booking/model/dto"
	bookingService "chalet/internal/domains/booking/service"
	"chalet/internal/domains/property/model"
	"chalet/internal/domains/property/model/dto"
	"chalet/internal/domains/property/service"
	"chalet/shared"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/timezone"
	"chalet/shared/validator"
	"chalet/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service        service.Property
	bookingService bookingService.Booking
	otel           otel.Otel
}

func New(service service.Property, bookingService bookingService.Booking, otel otel.Otel) Handler {
	return Handler{
		service:        service,
		bookingService: bookingService,
		otel:           otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/properties", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetProperties)
		routerGroup.Get("/{id}", handler.GetPropertyByID)
		routerGroup.Get("/{id}/availability", handler.CheckAvailability)
	})
}

// GetProperties retrieves all properties based on query parameters.
// @Summary Get all properties
// @Description Retrieve all properties with optional filtering and pagination.
// @Tags Property
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param owner_id query string false "Filter by owner"
// @Param active query boolean false "Filter by active status"
// @Success 200 {object} response.Data[dto.GetPropertiesResponse] "List of properties"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/properties [get]
func (handler *Handler) GetProperties(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetProperties")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.RestrictSort(model.TableName, constant.FieldCreatedAt, model.FieldName, model.FieldID)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if ownerID := r.URL.Query().Get(model.FieldOwnerID); ownerID != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldOwnerID,
			Operator: gDto.FilterOperatorEq,
			Value:    ownerID,
			Table:    model.TableName,
		})
	}

	if active := shared.ConvertStringToBool(r.URL.Query().Get(model.FieldActive)); active != nil {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldActive,
			Operator: gDto.FilterOperatorEq,
			Value:    *active,
			Table:    model.TableName,
		})
	}

	properties, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get properties")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Properties retrieved successfully")

	response.WithJSON(w, http.StatusOK, properties)
}

// GetPropertyByID retrieves a property with its rate card.
// @Summary Get a property by ID
// @Tags Property
// @Produce json
// @Param id path int true "Property ID"
// @Success 200 {object} response.Data[dto.PropertyResponse] "Property details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/properties/{id} [get]
func (handler *Handler) GetPropertyByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPropertyByID")
	defer scope.End()

	id, err := shared.ParseID(constant.RequestParamID, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	property, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get property by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, property)
}

// CheckAvailability reports whether a property is free for the requested timeslot.
// @Summary Check property availability
// @Description Timestamps without an offset are read in the server timezone.
// @Tags Property
// @Produce json
// @Param id path int true "Property ID"
// @Param start query string true "Start of the timeslot (RFC3339)"
// @Param end query string true "End of the timeslot (RFC3339)"
// @Param exclude_booking_id query int false "Booking to ignore, e.g. when rescheduling"
// @Success 200 {object} response.Data[dto.AvailabilityResponse] "Availability"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/properties/{id}/availability [get]
func (handler *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckAvailability")
	defer scope.End()

	query := r.URL.Query()

	req := dto.AvailabilityRequest{
		Start: query.Get("start"),
		End:   query.Get("end"),
	}

	var err error

	req.PropertyID, err = shared.ParseID(constant.RequestParamID, chi.URLParam(r, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	if raw := query.Get("exclude_booking_id"); raw != "" {
		excludeID, err := shared.ParseID("exclude_booking_id", raw)
		if err != nil {
			scope.TraceError(err)
			response.WithError(w, err)

			return
		}

		req.ExcludeBookingID = &excludeID
	}

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	start, end, err := bookingDto.ParseTimeslot(req.Start, req.End)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	available, err := handler.bookingService.IsAvailable(ctx, req.PropertyID, start, end, req.ExcludeBookingID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check availability")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, dto.AvailabilityResponse{
		PropertyID: req.PropertyID,
		Start:      timezone.Format(start, constant.DateFormat),
		End:        timezone.Format(end, constant.DateFormat),
		Available:  available,
	})
}
