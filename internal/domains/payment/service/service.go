package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"chalet/config"
	"chalet/infras/otel"
	"chalet/infras/s3"
	"chalet/internal/domains/booking/event"
	"chalet/internal/domains/booking/lifecycle"
	bookingModel "chalet/internal/domains/booking/model"
	"chalet/internal/domains/booking/pricing"
	bookingRepository "chalet/internal/domains/booking/repository"
	"chalet/internal/domains/payment/model"
	"chalet/internal/domains/payment/model/dto"
	"chalet/internal/domains/payment/repository"
	"chalet/shared"
	"chalet/shared/base64"
	"chalet/shared/cache"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"chalet/shared/timezone"
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound    = failure.NotFound("payment not found")
	ErrBookingNotFound    = failure.NotFound("booking not found")
	ErrNotAllowed         = failure.Forbidden("you are not allowed to access this payment")
	ErrModeratorRequired  = failure.Forbidden("only admins can moderate payments")
	ErrBookingCancelled   = failure.State("booking is cancelled")
	ErrBookingNotPending  = failure.State("only pending bookings accept payments")
	ErrInvalidReceiptFile = failure.Validation("receipt", "receipt must be a base64 data url")
)

type Payment interface {
	Submit(ctx context.Context, bookingID int64, req dto.SubmitPaymentRequest) (dto.PaymentResponse, error)
	Approve(ctx context.Context, id int64) (dto.PaymentResponse, error)
	Reject(ctx context.Context, id int64) (dto.PaymentResponse, error)
	GetByBooking(ctx context.Context, bookingID int64) (dto.PaymentResponse, error)
}

type serviceImpl struct {
	repo        repository.Payment
	bookingRepo bookingRepository.Booking
	storage     s3.S3
	publisher   event.Publisher
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Payment,
	bookingRepo bookingRepository.Booking,
	storage s3.S3,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		storage:     storage,
		publisher:   publisher,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

type receipt struct {
	fileName string
	url      string
}

// uploadReceipt stores the proof image of a payment. An empty data url uploads nothing.
func (s *serviceImpl) uploadReceipt(ctx context.Context, dataURL string) (*receipt, error) {
	if dataURL == "" {
		return nil, nil
	}

	contentType, data, err := base64.Decode(dataURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid receipt payload")

		return nil, ErrInvalidReceiptFile
	}

	fileName := uuid.NewString() + base64.Extension(contentType)

	url, err := s.storage.Upload(ctx, s.cfg.Booking.ReceiptDirectory, fileName, contentType, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload receipt")

		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	return &receipt{fileName: fileName, url: url}, nil
}

func (s *serviceImpl) discardReceipt(ctx context.Context, rec *receipt) {
	if rec == nil {
		return
	}

	if err := s.storage.Delete(context.WithoutCancel(ctx), s.cfg.Booking.ReceiptDirectory, rec.fileName); err != nil {
		log.Error().Err(err).Str("file", rec.fileName).Msg("failed to delete orphaned receipt")
	}
}

// Submit records the single payment of a booking. Only the guest who booked may submit.
// Paying with a different method than the booking carries switches the booking to it first,
// and the amount due is always derived from the booking.
func (s *serviceImpl) Submit(ctx context.Context, bookingID int64, req dto.SubmitPaymentRequest) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Submit")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := shared.Actor(ctx)
	if user == constant.Empty {
		return res, failure.Unauthorized("missing user in context") // nolint:wrapcheck
	}

	if err := req.Validate(); err != nil {
		return res, err //nolint:wrapcheck
	}

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldBookingID, Operator: gDto.FilterOperatorEq, Value: bookingID, Table: model.TableName},
		},
	}

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check existing payment")

		return res, fmt.Errorf("failed to check existing payment: %w", err)
	}

	if exist {
		return res, repository.ErrAlreadySubmitted
	}

	rec, err := s.uploadReceipt(ctx, req.Receipt)
	if err != nil {
		return res, err
	}

	var (
		payment model.Payment
		booking bookingModel.Booking
	)

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.bookingRepo.GetTx(ctx, tx, shared.FilterByID(bookingID, bookingModel.FieldID, bookingModel.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return ErrBookingNotFound
		}

		if !booking.IsBookedBy(user) {
			return ErrNotAllowed
		}

		if booking.Status == lifecycle.StatusCancelled {
			return ErrBookingCancelled
		}

		if booking.Status != lifecycle.StatusPending {
			return ErrBookingNotPending
		}

		method := lifecycle.PaymentMethod(req.PaymentMethod)
		if method != booking.PaymentMethod {
			if err := s.switchMethod(ctx, tx, &booking, method, user); err != nil {
				return err
			}
		}

		payment = req.ToModel(booking, user, dto.AmountDue(booking, method))
		if rec != nil {
			payment.ReceiptURL = sql.NullString{String: rec.url, Valid: true}
		}

		payment.ID, err = s.repo.Create(ctx, tx, payment)

		return err //nolint:wrapcheck
	})
	if err != nil {
		s.discardReceipt(ctx, rec)

		return res, err //nolint:wrapcheck
	}

	res.FromModel(payment)

	event.PublishAsync(ctx, s.publisher, event.New(event.TypePaymentSubmitted, booking.ID, user).
		WithState(booking.State()).
		WithProperty(booking.PropertyID).
		With("payment_id", payment.ID).
		With("amount", payment.Amount))
	s.invalidate(ctx, booking.ID)

	return res, nil
}

func (s *serviceImpl) switchMethod(ctx context.Context, tx *sqlx.Tx, booking *bookingModel.Booking, method lifecycle.PaymentMethod, user string) error {
	next, err := booking.State().SelectPaymentMethod(method)
	if err != nil {
		return err //nolint:wrapcheck
	}

	deposit := decimal.Zero
	if next.PaymentMethod.CollectsDeposit() {
		deposit = pricing.Deposit(booking.TotalPrice, s.cfg.Booking.DepositPercent)
	}

	booking.Apply(next)
	booking.DepositAmount = deposit

	fields := bookingStateFields(next)
	fields[bookingModel.FieldDepositAmount] = deposit
	fields[constant.FieldModifiedAt] = timezone.Now()
	fields[constant.FieldModifiedBy] = user

	if err := s.bookingRepo.UpdateTx(ctx, tx, fields, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to switch booking payment method")

		return fmt.Errorf("failed to switch booking payment method: %w", err)
	}

	return nil
}

func bookingStateFields(state lifecycle.State) map[string]any {
	return map[string]any{
		bookingModel.FieldStatus:        state.Status,
		bookingModel.FieldPaymentStatus: state.PaymentStatus,
		bookingModel.FieldPaymentMethod: state.PaymentMethod,
	}
}

// Approve accepts a payment and confirms its booking. The payment's own method decides
// whether the booking counts as paid or deposit paid.
func (s *serviceImpl) Approve(ctx context.Context, id int64) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Approve")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.moderate(ctx, id, event.TypePaymentApproved,
		func(status lifecycle.ReviewStatus) (lifecycle.ReviewStatus, bool, error) { return status.Approve() },
		func(state lifecycle.State, payment model.Payment) (lifecycle.State, error) {
			return state.ApprovePayment(payment.PaymentMethod)
		},
	)
}

// Reject refuses a payment and cancels its booking.
func (s *serviceImpl) Reject(ctx context.Context, id int64) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reject")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.moderate(ctx, id, event.TypePaymentRejected,
		func(status lifecycle.ReviewStatus) (lifecycle.ReviewStatus, bool, error) { return status.Reject() },
		func(state lifecycle.State, _ model.Payment) (lifecycle.State, error) { return state.RejectPayment(), nil },
	)
}

// moderate locks the payment and its booking and moves both. Repeating a decision
// that was already taken changes nothing and publishes nothing.
func (s *serviceImpl) moderate(
	ctx context.Context,
	id int64,
	eventType event.Type,
	review func(lifecycle.ReviewStatus) (lifecycle.ReviewStatus, bool, error),
	apply func(lifecycle.State, model.Payment) (lifecycle.State, error),
) (res dto.PaymentResponse, err error) {
	user, role := shared.Actor(ctx)
	if !shared.IsAdminRole(role) {
		return res, ErrModeratorRequired
	}

	var (
		payment model.Payment
		booking bookingModel.Booking
		changed bool
	)

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		payment, err = s.repo.GetTx(ctx, tx, shared.FilterByID(id, model.FieldID, model.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock payment")

			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if payment.ID == 0 {
			return ErrPaymentNotFound
		}

		var status lifecycle.ReviewStatus

		status, changed, err = review(payment.Status)
		if err != nil || !changed {
			return err
		}

		booking, err = s.bookingRepo.GetTx(ctx, tx, shared.FilterByID(payment.BookingID, bookingModel.FieldID, bookingModel.TableName), gRepo.LockForUpdate)
		if err != nil {
			log.Error().Err(err).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return ErrBookingNotFound
		}

		next, err := apply(booking.State(), payment)
		if err != nil {
			return err
		}

		now := timezone.Now()
		booking.Apply(next)

		bookingFields := bookingStateFields(next)
		bookingFields[constant.FieldModifiedAt] = now
		bookingFields[constant.FieldModifiedBy] = user

		if err := s.bookingRepo.UpdateTx(ctx, tx, bookingFields, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
			log.Error().Err(err).Msg("failed to update booking")

			return fmt.Errorf("failed to update booking: %w", err)
		}

		payment.Status = status
		payment.IsValid = status != lifecycle.ReviewRejected
		payment.ModifiedAt = now
		payment.ModifiedBy = user

		paymentFields := map[string]any{
			model.FieldStatus:        payment.Status,
			model.FieldIsValid:       payment.IsValid,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}

		if err := s.repo.UpdateTx(ctx, tx, paymentFields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			log.Error().Err(err).Msg("failed to update payment")

			return fmt.Errorf("failed to update payment: %w", err)
		}

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	res.FromModel(payment)

	if !changed {
		log.Info().Int64("payment_id", id).Str("status", string(payment.Status)).Msg("payment decision already recorded")

		return res, nil
	}

	event.PublishAsync(ctx, s.publisher, event.New(eventType, booking.ID, user).
		WithState(booking.State()).
		WithProperty(booking.PropertyID).
		With("payment_id", payment.ID))
	s.invalidate(ctx, booking.ID)

	return res, nil
}

// GetByBooking is visible to the guest who booked, the property owner and admins.
func (s *serviceImpl) GetByBooking(ctx context.Context, bookingID int64) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByBooking")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, role := shared.Actor(ctx)
	cacheKey := shared.BuildCacheKey(model.CacheGetByBooking, bookingID)

	if err = s.cache.Get(ctx, cacheKey, &res); err != nil {
		fill := shared.BeginCacheFill(ctx, s.cache, shared.BuildCacheKey(bookingModel.CacheVersion, bookingID))

		filter := gDto.FilterGroup{
			Filters: []any{
				gDto.Filter{Field: model.FieldBookingID, Operator: gDto.FilterOperatorEq, Value: bookingID, Table: model.TableName},
			},
		}

		payment, err := s.repo.Get(ctx, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to get payment")

			return res, fmt.Errorf("failed to get payment: %w", err)
		}

		if payment.ID == 0 {
			return res, ErrPaymentNotFound
		}

		res.FromModel(payment)
		fill.Save(ctx, cacheKey, res, s.cfg.Cache.TTL)
	} else {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for payment")
	}

	if !shared.IsAdminRole(role) && !res.IsVisibleTo(user) {
		return dto.PaymentResponse{}, ErrNotAllowed
	}

	return res, nil
}

// invalidate drops the cached payment and booking of bookingID and the booking listings.
func (s *serviceImpl) invalidate(ctx context.Context, bookingID int64) {
	shared.BumpCacheVersions(ctx, s.cache, bookingModel.CacheListVersion, shared.BuildCacheKey(bookingModel.CacheVersion, bookingID))

	go func() {
		c := context.WithoutCancel(ctx)

		for _, key := range []string{
			shared.BuildCacheKey(model.CacheGetByBooking, bookingID),
			shared.BuildCacheKey(bookingModel.CacheGet, bookingID),
		} {
			if err := s.cache.Delete(c, key); err != nil {
				log.Error().Err(err).Str("key", key).Msg("failed to delete cache")
			}
		}

		shared.InvalidateCaches(c, s.cache, bookingModel.CacheGetAll)
		shared.InvalidateCaches(c, s.cache, bookingModel.CacheCount)
	}()
}
