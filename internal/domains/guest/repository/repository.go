package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"chalet/infras/otel"
	"chalet/infras/postgres"
	"chalet/internal/domains/guest/model"
	gDto "chalet/shared/dto"
	gRepo "chalet/shared/repository"
	"context"

	"github.com/jmoiron/sqlx"
)

type Guest interface {
	RunInTx(ctx context.Context, fn postgres.TxFunc) error
	InsertBulkTx(ctx context.Context, tx *sqlx.Tx, guests []model.BookingGuest) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.BookingGuest, error)
	GetTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, lock gRepo.Lock, columns ...string) (model.BookingGuest, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.BookingGuest, error)
	GetAllTx(ctx context.Context, tx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.BookingGuest, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.BookingGuest]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Guest {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.BookingGuest](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (r *repositoryImpl) RunInTx(ctx context.Context, fn postgres.TxFunc) error {
	return r.db.WithTransaction(ctx, fn) //nolint:wrapcheck
}
