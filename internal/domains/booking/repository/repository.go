package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"chalet/infras/otel"
	"chalet/infras/postgres"
	"chalet/internal/domains/booking/availability"
	"chalet/internal/domains/booking/lifecycle"
	"chalet/internal/domains/booking/model"
	paymentModel "chalet/internal/domains/payment/model"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"chalet/shared/timezone"
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyBooked = failure.Conflict("property is already booked for this timeslot")

type Booking interface {
	RunInTx(ctx context.Context, fn postgres.TxFunc) error
	Create(ctx context.Context, tx *sqlx.Tx, booking model.Booking) (int64, error)
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, lock gRepo.Lock, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	FindOverlapping(ctx context.Context, tx *sqlx.Tx, propertyID int64, start, end time.Time, excludeID *int64) ([]model.Booking, error)
	HasPayment(ctx context.Context, tx *sqlx.Tx, bookingID int64) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (r *repositoryImpl) RunInTx(ctx context.Context, fn postgres.TxFunc) error {
	return r.db.WithTransaction(ctx, fn) //nolint:wrapcheck
}

// Create inserts booking inside tx. An overlap caught by the exclusion constraint is a conflict.
func (r *repositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, booking model.Booking) (id int64, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	id, err = r.InsertReturningTx(ctx, tx, booking)
	if postgres.IsViolation(err, constant.PqErrorCodeExclusionViolation) {
		log.Warn().Err(err).Msg("booking rejected by overlap constraint")

		return 0, ErrAlreadyBooked
	}

	if err != nil {
		return 0, fmt.Errorf("failed to create booking: %w", err)
	}

	return id, nil
}

// FindOverlapping returns the active bookings of propertyID that may conflict with
// [start, end). A nil tx reads from the replica.
func (r *repositoryImpl) FindOverlapping(ctx context.Context, tx *sqlx.Tx, propertyID int64, start, end time.Time, excludeID *int64) (res []model.Booking, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.FindOverlapping")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := OverlapFilter(propertyID, start, end, excludeID, timezone.GetLocation())

	if tx == nil {
		return r.GetAll(ctx, gDto.QueryParams{}, filter) //nolint:wrapcheck
	}

	return r.GetAllTx(ctx, tx, gDto.QueryParams{}, filter) //nolint:wrapcheck
}

// HasPayment reports whether a payment row exists for bookingID.
func (r *repositoryImpl) HasPayment(ctx context.Context, tx *sqlx.Tx, bookingID int64) (exist bool, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.HasPayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)", paymentModel.TableName, paymentModel.FieldBookingID)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if err = tx.GetContext(ctx, &exist, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check payment of booking %d: %w", bookingID, err)
	}

	return exist, nil
}

// OverlapFilter selects active bookings of a property whose precise range intersects
// [start, end) or whose legacy date falls on the start or end date in loc.
func OverlapFilter(propertyID int64, start, end time.Time, excludeID *int64, loc *time.Location) gDto.FilterGroup {
	statuses := make([]string, 0, len(lifecycle.ActiveStatuses()))
	for _, status := range lifecycle.ActiveStatuses() {
		statuses = append(statuses, string(status))
	}

	filters := []any{
		gDto.Filter{Field: model.FieldPropertyID, Operator: gDto.FilterOperatorEq, Value: propertyID, Table: model.TableName},
		gDto.Filter{Field: model.FieldStatus, Operator: gDto.FilterOperatorIn, Value: statuses, Table: model.TableName},
	}

	if excludeID != nil {
		filters = append(filters, gDto.Filter{
			ArgName:  "exclude_id",
			Field:    model.FieldID,
			Operator: gDto.FilterOperatorNotEq,
			Value:    *excludeID,
			Table:    model.TableName,
		})
	}

	precise := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStartDatetime, Operator: gDto.FilterIsNotNull, Table: model.TableName},
			gDto.Filter{Field: model.FieldEndDatetime, Operator: gDto.FilterIsNotNull, Table: model.TableName},
			gDto.Filter{ArgName: "range_end", Field: model.FieldStartDatetime, Operator: gDto.FilterOperatorLess, Value: end, Table: model.TableName},
			gDto.Filter{ArgName: "range_start", Field: model.FieldEndDatetime, Operator: gDto.FilterOperatorGreater, Value: start, Table: model.TableName},
		},
	}

	legacy := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldStartDatetime, Operator: gDto.FilterIsNull, Table: model.TableName},
			gDto.Filter{ArgName: "legacy_date", Field: model.FieldBookingDate, Operator: gDto.FilterOperatorIn, Value: availability.LegacyDates(start, end, loc), Table: model.TableName},
		},
	}

	filters = append(filters, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorOr,
		Filters:  []any{precise, legacy},
	})

	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  filters,
	}
}
