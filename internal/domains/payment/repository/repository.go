package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"chalet/infras/otel"
	"chalet/infras/postgres"
	"chalet/internal/domains/payment/model"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var ErrAlreadySubmitted = failure.Conflict("a payment was already submitted for this booking")

type Payment interface {
	RunInTx(ctx context.Context, fn postgres.TxFunc) error
	Create(ctx context.Context, tx *sqlx.Tx, payment model.Payment) (int64, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Payment, error)
	GetTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, lock gRepo.Lock, columns ...string) (model.Payment, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Payment]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Payment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Payment](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (r *repositoryImpl) RunInTx(ctx context.Context, fn postgres.TxFunc) error {
	return r.db.WithTransaction(ctx, fn) //nolint:wrapcheck
}

// Create inserts payment inside tx. A second payment for the same booking is a conflict.
func (r *repositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, payment model.Payment) (id int64, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".payment.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	id, err = r.InsertReturningTx(ctx, tx, payment)
	if postgres.IsViolation(err, constant.PqErrorCodeUniqueViolation) {
		log.Warn().Err(err).Int64("booking_id", payment.BookingID).Msg("duplicate payment rejected")

		return 0, ErrAlreadySubmitted
	}

	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}

	return id, nil
}
