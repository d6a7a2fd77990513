package service_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chalet/config"
	"chalet/infras/otel/mocks"
	"chalet/infras/postgres"
	eventMocks "chalet/internal/domains/booking/event/mocks"
	"chalet/internal/domains/booking/lifecycle"
	bookingMocks "chalet/internal/domains/booking/mocks"
	"chalet/internal/domains/booking/model"
	"chalet/internal/domains/booking/model/dto"
	"chalet/internal/domains/booking/pricing"
	"chalet/internal/domains/booking/repository"
	"chalet/internal/domains/booking/service"
	guestMocks "chalet/internal/domains/guest/mocks"
	guestModel "chalet/internal/domains/guest/model"
	propertyMocks "chalet/internal/domains/property/mocks"
	propertyModel "chalet/internal/domains/property/model"
	cacheMocks "chalet/shared/cache/mocks"
	"chalet/shared/constant"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
	"chalet/shared/timezone"
)

const (
	guestUser = "guest-1"
	ownerUser = "owner-1"
	stranger  = "stranger-1"
)

type fixture struct {
	repo         *bookingMocks.MockBooking
	propertyRepo *propertyMocks.MockProperty
	guestRepo    *guestMocks.MockGuest
	publisher    *eventMocks.MockPublisher
	cache        *cacheMocks.MockRedisCache
	svc          service.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Booking.DepositPercent = decimal.NewFromInt(30)
	cfg.Booking.MaxGuests = 3

	f := &fixture{
		repo:         bookingMocks.NewMockBooking(ctrl),
		propertyRepo: propertyMocks.NewMockProperty(ctrl),
		guestRepo:    guestMocks.NewMockGuest(ctrl),
		publisher:    eventMocks.NewMockPublisher(ctrl),
		cache:        cacheMocks.NewMockRedisCache(ctrl),
	}

	f.svc = service.New(f.repo, f.propertyRepo, f.guestRepo, f.publisher, cfg, f.cache, mocks.NewOtel())

	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Version(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	f.cache.EXPECT().SaveIfVersion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	f.cache.EXPECT().Bump(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return f
}

func (f *fixture) expectTx() {
	f.repo.EXPECT().
		RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn postgres.TxFunc) error {
			return fn(ctx, nil)
		})
}

func actor(user, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, user)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

// slot returns a 90 minute window three days ahead, on the hour.
func slot() (time.Time, time.Time) {
	start := timezone.Now().Add(72 * time.Hour).Truncate(time.Hour)

	return start, start.Add(90 * time.Minute)
}

func lakeHouse() propertyModel.Property {
	return propertyModel.Property{
		ID:           7,
		OwnerID:      ownerUser,
		Name:         "Lake House",
		PricePerHour: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		PricePerDay:  decimal.NewNullDecimal(decimal.NewFromInt(500)),
		Active:       true,
	}
}

func stored(status lifecycle.Status, paymentStatus lifecycle.PaymentStatus, method lifecycle.PaymentMethod) model.Booking {
	start, end := slot()
	propertyID := int64(7)

	return model.Booking{
		ID:              1,
		UserID:          guestUser,
		PropertyID:      &propertyID,
		BookingDate:     start,
		StartDatetime:   &start,
		EndDatetime:     &end,
		BookingType:     pricing.BookingTypeHourly,
		TotalPrice:      decimal.NewFromInt(100),
		PaymentMethod:   method,
		PaymentStatus:   paymentStatus,
		Status:          status,
		PropertyOwnerID: sql.NullString{String: ownerUser, Valid: true},
		PropertyName:    sql.NullString{String: "Lake House", Valid: true},
	}
}

func createRequest(start, end time.Time) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		PropertyID:    7,
		BookingType:   string(pricing.BookingTypeHourly),
		Start:         start.Format(time.RFC3339),
		End:           end.Format(time.RFC3339),
		CustomerName:  "Alice",
		CustomerPhone: "+100000000",
		GuestList:     "Alice\nBob",
	}
}

func TestBookingService_Create(t *testing.T) {
	start, end := slot()

	tests := []struct {
		name      string
		ctx       context.Context
		req       func() dto.CreateBookingRequest
		setupMock func(f *fixture)
		wantErr   bool
		wantCode  int
		wantField string
		check     func(t *testing.T, res dto.BookingResponse)
	}{
		{
			name: "creates a pending booking with guest codes",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  func() dto.CreateBookingRequest { return createRequest(start, end) },
			setupMock: func(f *fixture) {
				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), gomock.Any(), int64(7), gomock.Any(), gomock.Any(), nil).Return(nil, nil)
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(10), nil)
				f.guestRepo.EXPECT().
					InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, guests []guestModel.BookingGuest) error {
						assert.Len(t, guests, 2)

						for _, guest := range guests {
							assert.Equal(t, int64(10), guest.BookingID)
						}

						return nil
					})
			},
			check: func(t *testing.T, res dto.BookingResponse) {
				assert.Equal(t, int64(10), res.ID)
				assert.Equal(t, string(lifecycle.StatusPending), res.Status)
				assert.Equal(t, string(lifecycle.PaymentStatusPending), res.PaymentStatus)
				assert.Equal(t, string(lifecycle.PaymentMethodBank), res.PaymentMethod)
				assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(100)), res.TotalPrice.String())
				assert.True(t, res.DepositAmount.IsZero())
				assert.Equal(t, ownerUser, res.PropertyOwnerID)
				require.Len(t, res.Guests, 2)
				assert.Equal(t, 1, res.Guests[0].Serial)
				assert.NotEqual(t, res.Guests[0].Code, res.Guests[1].Code)
			},
		},
		{
			name: "cash booking fixes a deposit",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.CreateBookingRequest {
				req := createRequest(start, end)
				req.PaymentMethod = string(lifecycle.PaymentMethodCash)

				return req
			},
			setupMock: func(f *fixture) {
				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), gomock.Any(), int64(7), gomock.Any(), gomock.Any(), nil).Return(nil, nil)
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(11), nil)
				f.guestRepo.EXPECT().InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, res dto.BookingResponse) {
				assert.Equal(t, string(lifecycle.PaymentStatusCashOnArrival), res.PaymentStatus)
				assert.True(t, res.DepositAmount.Equal(decimal.NewFromInt(30)), res.DepositAmount.String())
			},
		},
		{
			name: "overlapping booking is a conflict",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  func() dto.CreateBookingRequest { return createRequest(start, end) },
			setupMock: func(f *fixture) {
				existing := stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank)
				existing.ID = 3

				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), gomock.Any(), int64(7), gomock.Any(), gomock.Any(), nil).Return([]model.Booking{existing}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "exclusion constraint is a conflict",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  func() dto.CreateBookingRequest { return createRequest(start, end) },
			setupMock: func(f *fixture) {
				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), gomock.Any(), int64(7), gomock.Any(), gomock.Any(), nil).Return(nil, nil)
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), repository.ErrAlreadyBooked)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "inactive property",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  func() dto.CreateBookingRequest { return createRequest(start, end) },
			setupMock: func(f *fixture) {
				property := lakeHouse()
				property.Active = false

				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(property, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "missing rate is rejected",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.CreateBookingRequest {
				req := createRequest(start, end)
				req.BookingType = string(pricing.BookingTypeHalfDay)

				return req
			},
			setupMock: func(f *fixture) {
				f.expectTx()
				f.propertyRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), gomock.Any(), int64(7), gomock.Any(), gomock.Any(), nil).Return(nil, nil)
			},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "booking_type",
		},
		{
			name: "start in the past",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.CreateBookingRequest {
				past := timezone.Now().Add(-2 * time.Hour)

				return createRequest(past, past.Add(time.Hour))
			},
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "start",
		},
		{
			name:      "end before start",
			ctx:       actor(guestUser, constant.RoleUser),
			req:       func() dto.CreateBookingRequest { return createRequest(end, start) },
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "too many guests",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.CreateBookingRequest {
				req := createRequest(start, end)
				req.GuestList = "A\nB\nC\nD"

				return req
			},
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "guest_names",
		},
		{
			name:      "anonymous caller",
			ctx:       context.Background(),
			req:       func() dto.CreateBookingRequest { return createRequest(start, end) },
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			res, err := f.svc.Create(tt.ctx, tt.req())

			time.Sleep(10 * time.Millisecond)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, failure.GetField(err))
				}

				return
			}

			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestBookingService_Cancel(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		booking   model.Booking
		wantErr   bool
		wantCode  int
		wantWrite bool
	}{
		{
			name:      "guest cancels a pending booking",
			ctx:       actor(guestUser, constant.RoleUser),
			booking:   stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantWrite: true,
		},
		{
			name:      "owner cancels a confirmed booking",
			ctx:       actor(ownerUser, constant.RoleUser),
			booking:   stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank),
			wantWrite: true,
		},
		{
			name:      "admin cancels any booking",
			ctx:       actor(stranger, constant.RoleAdmin),
			booking:   stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantWrite: true,
		},
		{
			name:     "second cancel fails",
			ctx:      actor(guestUser, constant.RoleUser),
			booking:  stored(lifecycle.StatusCancelled, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "stranger is forbidden",
			ctx:      actor(stranger, constant.RoleUser),
			booking:  stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing booking",
			ctx:      actor(guestUser, constant.RoleUser),
			booking:  model.Booking{},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.expectTx()
			f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(tt.booking, nil)

			if tt.wantWrite {
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, lifecycle.StatusCancelled, fields[model.FieldStatus])
						assert.Contains(t, fields, constant.FieldModifiedAt)

						return nil
					})
			}

			res, err := f.svc.Cancel(tt.ctx, 1)

			time.Sleep(10 * time.Millisecond)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(lifecycle.StatusCancelled), res.Status)
		})
	}
}

func TestBookingService_Approve(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		booking   model.Booking
		wantErr   bool
		wantCode  int
		wantWrite bool
	}{
		{
			name:      "owner confirms a pending booking",
			ctx:       actor(ownerUser, constant.RoleUser),
			booking:   stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantWrite: true,
		},
		{
			name:    "confirming twice is a no-op",
			ctx:     actor(ownerUser, constant.RoleUser),
			booking: stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank),
		},
		{
			name:     "guest cannot confirm",
			ctx:      actor(guestUser, constant.RoleUser),
			booking:  stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "cancelled booking cannot be confirmed",
			ctx:      actor(ownerUser, constant.RoleUser),
			booking:  stored(lifecycle.StatusCancelled, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank),
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.expectTx()
			f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(tt.booking, nil)

			if tt.wantWrite {
				f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			}

			res, err := f.svc.Approve(tt.ctx, 1)

			time.Sleep(10 * time.Millisecond)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(lifecycle.StatusConfirmed), res.Status)
		})
	}
}

func TestBookingService_SelectPaymentMethod(t *testing.T) {
	t.Run("switching to cash fixes the deposit", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)
		f.repo.EXPECT().HasPayment(gomock.Any(), gomock.Any(), int64(1)).Return(false, nil)
		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
				assert.Equal(t, lifecycle.PaymentMethodCash, fields[model.FieldPaymentMethod])
				assert.Equal(t, lifecycle.PaymentStatusCashOnArrival, fields[model.FieldPaymentStatus])

				return nil
			})

		res, err := f.svc.SelectPaymentMethod(actor(guestUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "cash"})

		time.Sleep(10 * time.Millisecond)

		require.NoError(t, err)
		assert.True(t, res.DepositAmount.Equal(decimal.NewFromInt(30)), res.DepositAmount.String())
	})

	t.Run("settled payment cannot switch", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank), nil)

		_, err := f.svc.SelectPaymentMethod(actor(guestUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "cash"})

		assert.ErrorIs(t, err, lifecycle.ErrNotPending)
		assert.Equal(t, http.StatusUnprocessableEntity, failure.GetCode(err))
	})

	t.Run("owner confirmed booking cannot switch", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)

		_, err := f.svc.SelectPaymentMethod(actor(guestUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "cash"})

		assert.ErrorIs(t, err, lifecycle.ErrNotPending)
	})

	t.Run("submitted payment freezes the method", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusCashOnArrival, lifecycle.PaymentMethodCash), nil)
		f.repo.EXPECT().HasPayment(gomock.Any(), gomock.Any(), int64(1)).Return(true, nil)

		_, err := f.svc.SelectPaymentMethod(actor(guestUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "bank_transfer"})

		assert.ErrorIs(t, err, service.ErrPaymentSubmitted)
		assert.Equal(t, http.StatusUnprocessableEntity, failure.GetCode(err))
	})

	t.Run("payment lookup fails", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)
		f.repo.EXPECT().HasPayment(gomock.Any(), gomock.Any(), int64(1)).Return(false, errors.New("db down"))

		_, err := f.svc.SelectPaymentMethod(actor(guestUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "cash"})

		assert.ErrorContains(t, err, "db down")
	})

	t.Run("owner cannot pick the method", func(t *testing.T) {
		f := newFixture(t)
		f.expectTx()
		f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
			Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)

		_, err := f.svc.SelectPaymentMethod(actor(ownerUser, constant.RoleUser), 1, dto.SelectPaymentMethodRequest{PaymentMethod: "cash"})

		assert.Error(t, err)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})
}

func TestBookingService_Get(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		wantCode int
	}{
		{name: "guest sees own booking", ctx: actor(guestUser, constant.RoleUser)},
		{name: "owner sees booking of property", ctx: actor(ownerUser, constant.RoleUser)},
		{name: "admin sees everything", ctx: actor(stranger, constant.RoleSuperAdmin)},
		{name: "stranger is forbidden", ctx: actor(stranger, constant.RoleUser), wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cache.EXPECT().Get(gomock.Any(), "booking:get:1", gomock.Any()).Return(errors.New("cache miss"))
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).
				Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)

			res, err := f.svc.Get(tt.ctx, 1)

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(1), res.ID)
			assert.False(t, res.Legacy)
		})
	}
}

func newCacheAwareService(t *testing.T) (service.Booking, *bookingMocks.MockBooking, *cacheMocks.MockRedisCache) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := bookingMocks.NewMockBooking(ctrl)
	redis := cacheMocks.NewMockRedisCache(ctrl)
	publisher := eventMocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(repo, propertyMocks.NewMockProperty(ctrl), guestMocks.NewMockGuest(ctrl), publisher, cfg, redis, mocks.NewOtel())

	return svc, repo, redis
}

func TestBookingService_Get_FillsUnderObservedVersion(t *testing.T) {
	svc, repo, redis := newCacheAwareService(t)
	filled := make(chan int64, 1)

	gomock.InOrder(
		redis.EXPECT().Get(gomock.Any(), "booking:get:1", gomock.Any()).Return(errors.New("cache miss")),
		redis.EXPECT().Version(gomock.Any(), "booking:version:1").Return(int64(4), nil),
		repo.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil),
	)
	redis.EXPECT().
		SaveIfVersion(gomock.Any(), "booking:get:1", gomock.Any(), 3600, "booking:version:1", int64(4)).
		DoAndReturn(func(_ context.Context, _ string, _ any, _ int, _ string, version int64) (bool, error) {
			filled <- version

			return false, nil
		})

	_, err := svc.Get(actor(guestUser, constant.RoleUser), 1)
	require.NoError(t, err)

	select {
	case version := <-filled:
		assert.Equal(t, int64(4), version)
	case <-time.After(time.Second):
		t.Fatal("cache fill never attempted")
	}
}

func TestBookingService_Cancel_BumpsVersionsBeforeReturning(t *testing.T) {
	svc, repo, redis := newCacheAwareService(t)

	var bumped []string

	repo.EXPECT().
		RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn postgres.TxFunc) error {
			return fn(ctx, nil)
		})
	repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
		Return(stored(lifecycle.StatusPending, lifecycle.PaymentStatusPending, lifecycle.PaymentMethodBank), nil)
	repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	redis.EXPECT().
		Bump(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string) error {
			bumped = append(bumped, key)

			return nil
		}).
		Times(2)
	redis.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redis.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := svc.Cancel(actor(guestUser, constant.RoleUser), 1)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"booking:version:list", "booking:version:1"}, bumped)

	time.Sleep(10 * time.Millisecond)
}

func TestBookingService_IsAvailable(t *testing.T) {
	start, end := slot()
	loc := timezone.GetLocation()

	legacyDay := stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank)
	legacyDay.ID = 5
	legacyDay.StartDatetime, legacyDay.EndDatetime = nil, nil
	legacyDay.BookingDate = time.Date(start.In(loc).Year(), start.In(loc).Month(), start.In(loc).Day(), 0, 0, 0, 0, loc)

	adjacent := stored(lifecycle.StatusConfirmed, lifecycle.PaymentStatusPaid, lifecycle.PaymentMethodBank)
	adjacentStart, adjacentEnd := end, end.Add(time.Hour)
	adjacent.StartDatetime, adjacent.EndDatetime = &adjacentStart, &adjacentEnd

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		setupMock func(f *fixture)
		want      bool
		wantCode  int
	}{
		{
			name:      "empty range is never available",
			start:     start,
			end:       start,
			setupMock: func(*fixture) {},
		},
		{
			name:  "free timeslot",
			start: start,
			end:   end,
			setupMock: func(f *fixture) {
				f.propertyRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), nil, int64(7), start, end, nil).Return(nil, nil)
			},
			want: true,
		},
		{
			name:  "touching bookings do not conflict",
			start: start,
			end:   end,
			setupMock: func(f *fixture) {
				f.propertyRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), nil, int64(7), start, end, nil).Return([]model.Booking{adjacent}, nil)
			},
			want: true,
		},
		{
			name:  "legacy whole day booking blocks the date",
			start: start,
			end:   end,
			setupMock: func(f *fixture) {
				f.propertyRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(lakeHouse(), nil)
				f.repo.EXPECT().FindOverlapping(gomock.Any(), nil, int64(7), start, end, nil).Return([]model.Booking{legacyDay}, nil)
			},
			want: false,
		},
		{
			name:  "unknown property",
			start: start,
			end:   end,
			setupMock: func(f *fixture) {
				f.propertyRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(propertyModel.Property{}, nil)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			available, err := f.svc.IsAvailable(context.Background(), 7, tt.start, tt.end, nil)

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, available)
		})
	}
}
