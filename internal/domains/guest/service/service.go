package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"chalet/config"
	"chalet/infras/otel"
	"chalet/internal/domains/booking/event"
	bookingModel "chalet/internal/domains/booking/model"
	bookingRepository "chalet/internal/domains/booking/repository"
	"chalet/internal/domains/guest/manifest"
	"chalet/internal/domains/guest/model"
	"chalet/internal/domains/guest/model/dto"
	"chalet/internal/domains/guest/repository"
	"chalet/shared"
	"chalet/shared/cache"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"chalet/shared/timezone"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var (
	ErrGuestNotFound   = failure.NotFound("guest not found")
	ErrBookingNotFound = failure.NotFound("booking not found")
	ErrInvalidCode     = failure.Validation("code", "code must be 6 characters from the guest code alphabet")
	ErrAmbiguousCode   = failure.Conflict("code matches guests of several bookings, pass booking_id")
	ErrNotAllowed      = failure.Forbidden("you are not allowed to access this guest")
)

const (
	cacheListByBooking = "guest:booking"
	cacheListVersion   = "guest:version"
)

type Guest interface {
	RecordScan(ctx context.Context, req dto.ScanRequest) (dto.GuestResponse, error)
	GetByCode(ctx context.Context, code string, bookingID *int64) (dto.GuestResponse, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]dto.GuestResponse, error)
}

type serviceImpl struct {
	repo        repository.Guest
	bookingRepo bookingRepository.Booking
	publisher   event.Publisher
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Guest,
	bookingRepo bookingRepository.Booking,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Guest {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		publisher:   publisher,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

// codeFilter matches a normalized code, optionally narrowed to one booking.
func codeFilter(code string, bookingID *int64) gDto.FilterGroup {
	filters := []any{
		gDto.Filter{Field: model.FieldCode, Operator: gDto.FilterOperatorEq, Value: code, Table: model.TableName},
	}

	if bookingID != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldBookingID, Operator: gDto.FilterOperatorEq, Value: *bookingID, Table: model.TableName})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}

// lookupParams fetches at most two rows so a code shared by two bookings is detected.
var lookupParams = gDto.QueryParams{Page: 1, Limit: 2, SortBy: model.TableName + "." + model.FieldID, SortDir: "ASC"}

func resolveOne(guests []model.BookingGuest) (model.BookingGuest, error) {
	switch len(guests) {
	case 0:
		return model.BookingGuest{}, ErrGuestNotFound
	case 1:
		return guests[0], nil
	default:
		return model.BookingGuest{}, ErrAmbiguousCode
	}
}

// RecordScan checks a guest in or out. Codes are unique per booking only, so a code
// shared by several bookings must be narrowed with booking_id.
func (s *serviceImpl) RecordScan(ctx context.Context, req dto.ScanRequest) (res dto.GuestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RecordScan")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, role := shared.Actor(ctx)

	code := manifest.NormalizeCode(req.Code)
	if !manifest.ValidCode(code) {
		return res, ErrInvalidCode
	}

	var guest model.BookingGuest

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		guests, err := s.repo.GetAllTx(ctx, tx, lookupParams, codeFilter(code, req.BookingID))
		if err != nil {
			log.Error().Err(err).Msg("failed to find guest by code")

			return fmt.Errorf("failed to find guest by code: %w", err)
		}

		found, err := resolveOne(guests)
		if err != nil {
			return err
		}

		guest, err = s.repo.GetTx(ctx, tx, shared.FilterByID(found.ID, model.FieldID, model.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock guest")

			return fmt.Errorf("failed to lock guest: %w", err)
		}

		if guest.ID == 0 {
			return ErrGuestNotFound
		}

		if !shared.IsAdminRole(role) && !guest.IsManagedBy(user) {
			log.Warn().Str("user", user).Int64("guest_id", guest.ID).Msg("guest scan forbidden")

			return ErrNotAllowed
		}

		field, err := guest.Record(model.ScanAction(req.Action), timezone.Now())
		if err != nil {
			return err //nolint:wrapcheck
		}

		value := guest.CheckinTime
		if field == model.FieldCheckoutTime {
			value = guest.CheckoutTime
		}

		if err := s.repo.UpdateTx(ctx, tx, map[string]any{field: value}, shared.FilterByID(guest.ID, model.FieldID, model.TableName)); err != nil {
			log.Error().Err(err).Msg("failed to record guest scan")

			return fmt.Errorf("failed to record guest scan: %w", err)
		}

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	res.FromModel(guest)

	event.PublishAsync(ctx, s.publisher, event.New(event.TypeGuestScanned, guest.BookingID, user).
		With("guest_id", guest.ID).
		With("serial", guest.Serial).
		With("action", req.Action))
	s.invalidate(ctx, guest.BookingID)

	return res, nil
}

// GetByCode is visible to the guest who booked, the property owner and admins.
func (s *serviceImpl) GetByCode(ctx context.Context, code string, bookingID *int64) (res dto.GuestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByCode")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, role := shared.Actor(ctx)

	code = manifest.NormalizeCode(code)
	if !manifest.ValidCode(code) {
		return res, ErrInvalidCode
	}

	guests, err := s.repo.GetAll(ctx, lookupParams, codeFilter(code, bookingID))
	if err != nil {
		log.Error().Err(err).Msg("failed to find guest by code")

		return res, fmt.Errorf("failed to find guest by code: %w", err)
	}

	guest, err := resolveOne(guests)
	if err != nil {
		return res, err
	}

	if !shared.IsAdminRole(role) && !guest.IsManagedBy(user) && !guest.IsBookedBy(user) {
		return res, ErrNotAllowed
	}

	res.FromModel(guest)

	return res, nil
}

// ListByBooking returns the manifest of a booking in serial order.
func (s *serviceImpl) ListByBooking(ctx context.Context, bookingID int64) (res []dto.GuestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListByBooking")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, role := shared.Actor(ctx)

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(bookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == 0 {
		return nil, ErrBookingNotFound
	}

	if !shared.IsAdminRole(role) && !booking.IsBookedBy(user) && !booking.IsManagedBy(user) {
		return nil, ErrNotAllowed
	}

	cacheKey := shared.BuildCacheKey(cacheListByBooking, bookingID)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking guests")

		return res, nil
	}

	fill := shared.BeginCacheFill(ctx, s.cache, shared.BuildCacheKey(cacheListVersion, bookingID))

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldBookingID, Operator: gDto.FilterOperatorEq, Value: bookingID, Table: model.TableName},
		},
	}

	guests, err := s.repo.GetAll(ctx, gDto.QueryParams{SortBy: model.TableName + "." + model.FieldSerial, SortDir: "ASC"}, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking guests")

		return nil, fmt.Errorf("failed to get booking guests: %w", err)
	}

	res = dto.FromModels(guests)
	fill.Save(ctx, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, bookingID int64) {
	shared.BumpCacheVersions(ctx, s.cache, shared.BuildCacheKey(cacheListVersion, bookingID))

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheListByBooking, bookingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking guests cache")
		}
	}()
}
