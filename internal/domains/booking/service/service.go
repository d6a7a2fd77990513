package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"chalet/config"
	"chalet/infras/otel"
	"chalet/internal/domains/booking/availability"
	"chalet/internal/domains/booking/event"
	"chalet/internal/domains/booking/interval"
	"chalet/internal/domains/booking/lifecycle"
	"chalet/internal/domains/booking/model"
	"chalet/internal/domains/booking/model/dto"
	"chalet/internal/domains/booking/pricing"
	"chalet/internal/domains/booking/repository"
	"chalet/internal/domains/guest/manifest"
	guestModel "chalet/internal/domains/guest/model"
	guestDto "chalet/internal/domains/guest/model/dto"
	guestRepository "chalet/internal/domains/guest/repository"
	propertyModel "chalet/internal/domains/property/model"
	propertyRepository "chalet/internal/domains/property/repository"
	"chalet/shared"
	"chalet/shared/cache"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"chalet/shared/timezone"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound  = failure.NotFound("booking not found")
	ErrPropertyNotFound = failure.NotFound("property not found")
	ErrStartInPast      = failure.Validation("start", "start must be in the future")
	ErrNotAllowed       = failure.Forbidden("you are not allowed to manage this booking")
	ErrPaymentSubmitted = failure.State("payment method cannot change after a payment was submitted")
)

type Booking interface {
	IsAvailable(ctx context.Context, propertyID int64, start, end time.Time, excludeBookingID *int64) (bool, error)
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id int64) (dto.BookingResponse, error)
	Approve(ctx context.Context, id int64) (dto.BookingResponse, error)
	SelectPaymentMethod(ctx context.Context, id int64, req dto.SelectPaymentMethodRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id int64) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
}

type serviceImpl struct {
	repo         repository.Booking
	propertyRepo propertyRepository.Property
	guestRepo    guestRepository.Guest
	publisher    event.Publisher
	generator    *manifest.Generator
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Booking,
	propertyRepo propertyRepository.Property,
	guestRepo guestRepository.Guest,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:         repo,
		propertyRepo: propertyRepo,
		guestRepo:    guestRepo,
		publisher:    publisher,
		generator:    manifest.NewGenerator(cfg.Booking.GuestCodeMaxAttempts),
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

// IsAvailable answers from the read replica. The answer is advisory; Create checks again
// under a lock before inserting.
func (s *serviceImpl) IsAvailable(ctx context.Context, propertyID int64, start, end time.Time, excludeBookingID *int64) (available bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".IsAvailable")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !start.Before(end) {
		return false, nil
	}

	property, err := s.propertyRepo.Get(ctx, shared.FilterByID(propertyID, propertyModel.FieldID, propertyModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get property")

		return false, fmt.Errorf("failed to get property: %w", err)
	}

	if property.ID == 0 {
		return false, ErrPropertyNotFound
	}

	bookings, err := s.repo.FindOverlapping(ctx, nil, propertyID, start, end, excludeBookingID)
	if err != nil {
		log.Error().Err(err).Msg("failed to find overlapping bookings")

		return false, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}

	return availability.IsAvailable(start, end, occupants(bookings), excludeBookingID), nil
}

// occupants converts stored rows for the resolver. Rows whose interval cannot be built are skipped.
func occupants(bookings []model.Booking) []availability.Occupant {
	loc := timezone.GetLocation()
	res := make([]availability.Occupant, 0, len(bookings))

	for _, booking := range bookings {
		slot, err := booking.Interval(loc)
		if err != nil {
			log.Warn().Err(err).Int64("booking_id", booking.ID).Msg("skipping booking with an invalid interval")

			continue
		}

		res = append(res, availability.Occupant{
			BookingID: booking.ID,
			Status:    booking.Status,
			Interval:  slot,
		})
	}

	return res
}

func (s *serviceImpl) ensureAvailable(ctx context.Context, tx *sqlx.Tx, propertyID int64, start, end time.Time, excludeBookingID *int64) error {
	bookings, err := s.repo.FindOverlapping(ctx, tx, propertyID, start, end, excludeBookingID)
	if err != nil {
		log.Error().Err(err).Msg("failed to find overlapping bookings")

		return fmt.Errorf("failed to find overlapping bookings: %w", err)
	}

	res := availability.Resolve(start, end, occupants(bookings), excludeBookingID)
	if !res.Available {
		log.Info().
			Int64("property_id", propertyID).
			Ints64("conflicts", res.ConflictIDs).
			Msg("requested timeslot is already booked")

		return repository.ErrAlreadyBooked
	}

	return nil
}

func (s *serviceImpl) validateCreate(req dto.CreateBookingRequest) (interval.Interval, []manifest.Entry, lifecycle.State, error) {
	start, end, err := req.Timeslot()
	if err != nil {
		return interval.Interval{}, nil, lifecycle.State{}, err
	}

	slot, err := interval.NewTimeslot(start, end)
	if err != nil {
		return interval.Interval{}, nil, lifecycle.State{}, err //nolint:wrapcheck
	}

	if !start.After(timezone.Now()) {
		return interval.Interval{}, nil, lifecycle.State{}, ErrStartInPast
	}

	if !pricing.BookingType(req.BookingType).Valid() {
		return interval.Interval{}, nil, lifecycle.State{}, pricing.ErrInvalidBookingType
	}

	state, err := lifecycle.Admit(lifecycle.PaymentMethod(req.PaymentMethod))
	if err != nil {
		return interval.Interval{}, nil, lifecycle.State{}, err //nolint:wrapcheck
	}

	names := req.Names()
	if err := manifest.ValidateNames(names, s.cfg.Booking.MaxGuests); err != nil {
		return interval.Interval{}, nil, lifecycle.State{}, err //nolint:wrapcheck
	}

	entries, err := s.generator.Generate(names)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate guest codes")

		return interval.Interval{}, nil, lifecycle.State{}, err //nolint:wrapcheck
	}

	return slot, entries, state, nil
}

// Create admits a booking in pending. The property row is locked for the whole
// transaction, so concurrent requests for the same property run the availability
// check and the insert one after another.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := shared.Actor(ctx)
	if user == constant.Empty {
		return res, failure.Unauthorized("missing user in context") // nolint:wrapcheck
	}

	slot, entries, state, err := s.validateCreate(req)
	if err != nil {
		return res, err
	}

	start, end := slot.Range()
	loc := timezone.GetLocation()

	var (
		booking model.Booking
		guests  []guestModel.BookingGuest
	)

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		property, err := s.propertyRepo.GetTx(ctx, tx, shared.FilterByID(req.PropertyID, propertyModel.FieldID, propertyModel.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock property")

			return fmt.Errorf("failed to lock property: %w", err)
		}

		if !property.Bookable() {
			return ErrPropertyNotFound
		}

		if err := s.ensureAvailable(ctx, tx, req.PropertyID, start, end, nil); err != nil {
			return err
		}

		quote, err := pricing.Compute(property.RateCard(), pricing.BookingType(req.BookingType), start, end, pricing.Options{AllowZeroPrice: s.cfg.Booking.AllowZeroPrice})
		if err != nil {
			return err //nolint:wrapcheck
		}

		deposit := decimal.Zero
		if state.PaymentMethod.CollectsDeposit() {
			deposit = pricing.Deposit(quote.Total, s.cfg.Booking.DepositPercent)
		}

		booking = req.ToModel(user, slot, loc, quote.Total, deposit, state)

		booking.ID, err = s.repo.Create(ctx, tx, booking)
		if err != nil {
			return err //nolint:wrapcheck
		}

		booking.PropertyOwnerID = sql.NullString{String: property.OwnerID, Valid: true}
		booking.PropertyName = sql.NullString{String: property.Name, Valid: true}

		guests = guestModel.FromEntries(booking.ID, entries, booking.CreatedAt)
		if err := s.guestRepo.InsertBulkTx(ctx, tx, guests); err != nil {
			log.Error().Err(err).Msg("failed to insert booking guests")

			return fmt.Errorf("failed to insert booking guests: %w", err)
		}

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	res.FromModel(booking)
	res.Guests = guestDto.FromModels(guests)

	event.PublishAsync(ctx, s.publisher, event.New(event.TypeBookingCreated, booking.ID, user).
		WithState(booking.State()).
		WithProperty(booking.PropertyID).
		With("total_price", booking.TotalPrice).
		With("guests", len(guests)))
	s.invalidate(ctx, 0)

	return res, nil
}

// transition locks a booking, checks the actor may act on it and applies change.
// When change reports no difference the row is left untouched.
func (s *serviceImpl) transition(
	ctx context.Context,
	id int64,
	allowed func(booking model.Booking, user, role string) bool,
	change func(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) (map[string]any, error),
) (booking model.Booking, changed bool, err error) {
	user, role := shared.Actor(ctx)

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.repo.GetTx(ctx, tx, shared.FilterByID(id, model.FieldID, model.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return ErrBookingNotFound
		}

		if !allowed(booking, user, role) {
			log.Warn().Str("user", user).Int64("booking_id", id).Msg("booking action forbidden")

			return ErrNotAllowed
		}

		fields, err := change(ctx, tx, &booking)
		if err != nil {
			return err
		}

		if len(fields) == 0 {
			return nil
		}

		now := timezone.Now()
		fields[constant.FieldModifiedAt] = now
		fields[constant.FieldModifiedBy] = user
		booking.ModifiedAt = now
		booking.ModifiedBy = user

		if err := s.repo.UpdateTx(ctx, tx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			log.Error().Err(err).Msg("failed to update booking")

			return fmt.Errorf("failed to update booking: %w", err)
		}

		changed = true

		return nil
	})

	return booking, changed, err //nolint:wrapcheck
}

func stateFields(state lifecycle.State) map[string]any {
	return map[string]any{
		model.FieldStatus:        state.Status,
		model.FieldPaymentStatus: state.PaymentStatus,
		model.FieldPaymentMethod: state.PaymentMethod,
	}
}

func canCancel(booking model.Booking, user, role string) bool {
	return shared.IsAdminRole(role) || booking.IsBookedBy(user) || booking.IsManagedBy(user)
}

func canManage(booking model.Booking, user, role string) bool {
	return shared.IsAdminRole(role) || booking.IsManagedBy(user)
}

func canPay(booking model.Booking, user, role string) bool {
	return shared.IsAdminRole(role) || booking.IsBookedBy(user)
}

// Cancel is open to the guest who booked, the property owner and admins. A second
// cancel fails and leaves the row as it was.
func (s *serviceImpl) Cancel(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, _, err := s.transition(ctx, id, canCancel, func(_ context.Context, _ *sqlx.Tx, booking *model.Booking) (map[string]any, error) {
		next, err := booking.State().Cancel()
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		booking.Apply(next)

		return stateFields(next), nil
	})
	if err != nil {
		return res, err
	}

	user, _ := shared.Actor(ctx)
	event.PublishAsync(ctx, s.publisher, event.New(event.TypeBookingCancelled, booking.ID, user).
		WithState(booking.State()).
		WithProperty(booking.PropertyID))
	s.invalidate(ctx, id)

	res.FromModel(booking)

	return res, nil
}

// Approve confirms a booking on behalf of the property owner. Approving a confirmed booking is a no-op.
func (s *serviceImpl) Approve(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Approve")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, changed, err := s.transition(ctx, id, canManage, func(_ context.Context, _ *sqlx.Tx, booking *model.Booking) (map[string]any, error) {
		if booking.Status == lifecycle.StatusConfirmed {
			return nil, nil
		}

		next, err := booking.State().Approve()
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		booking.Apply(next)

		return stateFields(next), nil
	})
	if err != nil {
		return res, err
	}

	if changed {
		user, _ := shared.Actor(ctx)
		event.PublishAsync(ctx, s.publisher, event.New(event.TypeBookingConfirmed, booking.ID, user).
			WithState(booking.State()).
			WithProperty(booking.PropertyID))
		s.invalidate(ctx, id)
	}

	res.FromModel(booking)

	return res, nil
}

// SelectPaymentMethod lets the guest switch method while the booking is pending and
// no payment has been submitted for it.
// Choosing cash recomputes the deposit; other methods clear it.
func (s *serviceImpl) SelectPaymentMethod(ctx context.Context, id int64, req dto.SelectPaymentMethodRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SelectPaymentMethod")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, _, err := s.transition(ctx, id, canPay, func(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) (map[string]any, error) {
		next, err := booking.State().SelectPaymentMethod(lifecycle.PaymentMethod(req.PaymentMethod))
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		paid, err := s.repo.HasPayment(ctx, tx, booking.ID)
		if err != nil {
			log.Error().Err(err).Msg("failed to check booking payment")

			return nil, fmt.Errorf("failed to check booking payment: %w", err)
		}

		if paid {
			return nil, ErrPaymentSubmitted
		}

		deposit := decimal.Zero
		if next.PaymentMethod.CollectsDeposit() {
			deposit = pricing.Deposit(booking.TotalPrice, s.cfg.Booking.DepositPercent)
		}

		booking.Apply(next)
		booking.DepositAmount = deposit

		fields := stateFields(next)
		fields[model.FieldDepositAmount] = deposit

		return fields, nil
	})
	if err != nil {
		return res, err
	}

	s.invalidate(ctx, id)

	res.FromModel(booking)

	return res, nil
}

// Get is visible to the guest who booked, the property owner and admins.
func (s *serviceImpl) Get(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, role := shared.Actor(ctx)
	cacheKey := shared.BuildCacheKey(model.CacheGet, id)

	if err = s.cache.Get(ctx, cacheKey, &res); err != nil {
		fill := shared.BeginCacheFill(ctx, s.cache, shared.BuildCacheKey(model.CacheVersion, id))

		booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			log.Error().Err(err).Msg("failed to get booking")

			return res, fmt.Errorf("failed to get booking: %w", err)
		}

		if booking.ID == 0 {
			return res, ErrBookingNotFound
		}

		res.FromModel(booking)
		fill.Save(ctx, cacheKey, res, s.cfg.Cache.TTL)
	} else {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")
	}

	if !shared.IsAdminRole(role) && !res.IsVisibleTo(user) {
		return dto.BookingResponse{}, ErrNotAllowed
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheGetAll, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	fill := shared.BeginCacheFill(ctx, s.cache, model.CacheListVersion)

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)
	fill.Save(ctx, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheCount, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	fill := shared.BeginCacheFill(ctx, s.cache, model.CacheListVersion)

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	fill.Save(ctx, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

// invalidate drops the listings and, when id is set, the cached booking. The versions are
// bumped before it returns so a read that raced the write cannot cache the old row.
func (s *serviceImpl) invalidate(ctx context.Context, id int64) {
	versionKeys := []string{model.CacheListVersion}
	if id != 0 {
		versionKeys = append(versionKeys, shared.BuildCacheKey(model.CacheVersion, id))
	}

	shared.BumpCacheVersions(ctx, s.cache, versionKeys...)

	go func() {
		c := context.WithoutCancel(ctx)

		if id != 0 {
			if err := s.cache.Delete(c, shared.BuildCacheKey(model.CacheGet, id)); err != nil {
				log.Error().Err(err).Msg("failed to delete booking cache")
			}
		}

		shared.InvalidateCaches(c, s.cache, model.CacheGetAll)
		shared.InvalidateCaches(c, s.cache, model.CacheCount)
	}()
}
