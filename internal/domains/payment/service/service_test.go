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
	s3Mocks "chalet/infras/s3/mocks"
	eventMocks "chalet/internal/domains/booking/event/mocks"
	"chalet/internal/domains/booking/lifecycle"
	bookingMocks "chalet/internal/domains/booking/mocks"
	bookingModel "chalet/internal/domains/booking/model"
	paymentMocks "chalet/internal/domains/payment/mocks"
	"chalet/internal/domains/payment/model"
	"chalet/internal/domains/payment/model/dto"
	"chalet/internal/domains/payment/service"
	cacheMocks "chalet/shared/cache/mocks"
	"chalet/shared/constant"
	"chalet/shared/failure"
	gRepo "chalet/shared/repository"
)

const (
	guestUser = "guest-1"
	ownerUser = "owner-1"
	adminUser = "admin-1"
)

type fixture struct {
	repo        *paymentMocks.MockPayment
	bookingRepo *bookingMocks.MockBooking
	storage     *s3Mocks.MockS3
	svc         service.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Booking.DepositPercent = decimal.NewFromInt(30)
	cfg.Booking.ReceiptDirectory = "receipts"

	publisher := eventMocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	redis := cacheMocks.NewMockRedisCache(ctrl)
	redis.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redis.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redis.EXPECT().Version(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	redis.EXPECT().SaveIfVersion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	redis.EXPECT().Bump(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redis.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).AnyTimes()

	f := &fixture{
		repo:        paymentMocks.NewMockPayment(ctrl),
		bookingRepo: bookingMocks.NewMockBooking(ctrl),
		storage:     s3Mocks.NewMockS3(ctrl),
	}

	f.svc = service.New(f.repo, f.bookingRepo, f.storage, publisher, cfg, redis, mocks.NewOtel())

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

func booking(status lifecycle.Status, method lifecycle.PaymentMethod) bookingModel.Booking {
	paymentStatus := lifecycle.PaymentStatusPending
	if method.CollectsDeposit() {
		paymentStatus = lifecycle.PaymentStatusCashOnArrival
	}

	return bookingModel.Booking{
		ID:              1,
		UserID:          guestUser,
		TotalPrice:      decimal.NewFromInt(500),
		PaymentMethod:   method,
		PaymentStatus:   paymentStatus,
		Status:          status,
		PropertyOwnerID: sql.NullString{String: ownerUser, Valid: true},
	}
}

func pendingPayment(status lifecycle.ReviewStatus) model.Payment {
	return model.Payment{
		ID:              9,
		BookingID:       1,
		PaymentMethod:   lifecycle.PaymentMethodBank,
		Amount:          decimal.NewFromInt(500),
		Status:          status,
		IsValid:         true,
		BookingUserID:   sql.NullString{String: guestUser, Valid: true},
		PropertyOwnerID: sql.NullString{String: ownerUser, Valid: true},
	}
}

func paidWith(payment model.Payment, method lifecycle.PaymentMethod) model.Payment {
	payment.PaymentMethod = method

	return payment
}

func bankRequest() dto.SubmitPaymentRequest {
	providerID := int64(2)

	return dto.SubmitPaymentRequest{
		PaymentMethod:    string(lifecycle.PaymentMethodBank),
		ProviderID:       &providerID,
		TransactionID:    "TX-1",
		PayerFullName:    "Alice Doe",
		PayerPhoneNumber: "+62 812 0000 1111",
	}
}

func TestPaymentService_Submit(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		req       func() dto.SubmitPaymentRequest
		setupMock func(f *fixture)
		wantErr   bool
		wantCode  int
		wantField string
		check     func(t *testing.T, res dto.PaymentResponse)
	}{
		{
			name: "bank transfer with receipt",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.Receipt = "data:image/png;base64,iVBORw0KGgo="

				return req
			},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.storage.EXPECT().
					Upload(gomock.Any(), "receipts", gomock.Any(), "image/png", gomock.Any()).
					Return("https://cdn.example.com/receipts/a.png", nil)
				f.expectTx()
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
					Return(booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank), nil)
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(9), nil)
			},
			check: func(t *testing.T, res dto.PaymentResponse) {
				assert.Equal(t, int64(9), res.ID)
				assert.Equal(t, "500.00", res.Amount)
				assert.Equal(t, string(lifecycle.ReviewPending), res.Status)
				require.NotNil(t, res.ReceiptURL)
				assert.Equal(t, "https://cdn.example.com/receipts/a.png", *res.ReceiptURL)
			},
		},
		{
			name: "switching to cash pays the deposit",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				return dto.SubmitPaymentRequest{PaymentMethod: string(lifecycle.PaymentMethodCash)}
			},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.expectTx()
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
					Return(booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank), nil)
				f.bookingRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, lifecycle.PaymentMethodCash, fields[bookingModel.FieldPaymentMethod])

						return nil
					})
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(10), nil)
			},
			check: func(t *testing.T, res dto.PaymentResponse) {
				assert.Equal(t, "150.00", res.Amount)
				assert.Nil(t, res.ReceiptURL)
			},
		},
		{
			name: "bank transfer needs a transaction id",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.TransactionID = " "

				return req
			},
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "transaction_id",
		},
		{
			name: "bank transfer needs the payer phone number",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.PayerPhoneNumber = ""

				return req
			},
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "payer_phone_number",
		},
		{
			name: "bank transfer needs a provider",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.ProviderID = nil

				return req
			},
			setupMock: func(*fixture) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "provider_id",
		},
		{
			name: "second payment is a conflict",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  bankRequest,
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "only the guest who booked may pay, receipt is discarded",
			ctx:  actor(ownerUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.Receipt = "data:image/jpeg;base64,/9j/4AAQ"

				return req
			},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.storage.EXPECT().Upload(gomock.Any(), "receipts", gomock.Any(), "image/jpeg", gomock.Any()).Return("https://cdn/x.jpg", nil)
				f.expectTx()
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
					Return(booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank), nil)
				f.storage.EXPECT().Delete(gomock.Any(), "receipts", gomock.Any()).Return(nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name: "cancelled booking",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  bankRequest,
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.expectTx()
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
					Return(booking(lifecycle.StatusCancelled, lifecycle.PaymentMethodBank), nil)
			},
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "owner confirmed booking takes no payment",
			ctx:  actor(guestUser, constant.RoleUser),
			req:  bankRequest,
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.expectTx()
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).
					Return(booking(lifecycle.StatusConfirmed, lifecycle.PaymentMethodBank), nil)
			},
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed receipt",
			ctx:  actor(guestUser, constant.RoleUser),
			req: func() dto.SubmitPaymentRequest {
				req := bankRequest()
				req.Receipt = "data:image/png;base64,***"

				return req
			},
			setupMock: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
			wantField: "receipt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f)

			res, err := f.svc.Submit(tt.ctx, 1, tt.req())

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

func TestPaymentService_Moderate(t *testing.T) {
	tests := []struct {
		name          string
		ctx           context.Context
		reject        bool
		payment       model.Payment
		booking       bookingModel.Booking
		wantErr       bool
		wantCode      int
		wantWrite     bool
		wantStatus    lifecycle.ReviewStatus
		wantBooking   lifecycle.Status
		wantPayStatus lifecycle.PaymentStatus
	}{
		{
			name:          "approve confirms the booking",
			ctx:           actor(adminUser, constant.RoleAdmin),
			payment:       pendingPayment(lifecycle.ReviewPending),
			booking:       booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank),
			wantWrite:     true,
			wantStatus:    lifecycle.ReviewApproved,
			wantBooking:   lifecycle.StatusConfirmed,
			wantPayStatus: lifecycle.PaymentStatusPaid,
		},
		{
			name:          "approving a cash payment settles the deposit",
			ctx:           actor(adminUser, constant.RoleSuperAdmin),
			payment:       paidWith(pendingPayment(lifecycle.ReviewPending), lifecycle.PaymentMethodCash),
			booking:       booking(lifecycle.StatusPending, lifecycle.PaymentMethodCash),
			wantWrite:     true,
			wantStatus:    lifecycle.ReviewApproved,
			wantBooking:   lifecycle.StatusConfirmed,
			wantPayStatus: lifecycle.PaymentStatusDepositPaid,
		},
		{
			name:          "a deposit stays a deposit when the booking says transfer",
			ctx:           actor(adminUser, constant.RoleAdmin),
			payment:       paidWith(pendingPayment(lifecycle.ReviewPending), lifecycle.PaymentMethodCash),
			booking:       booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank),
			wantWrite:     true,
			wantStatus:    lifecycle.ReviewApproved,
			wantBooking:   lifecycle.StatusConfirmed,
			wantPayStatus: lifecycle.PaymentStatusDepositPaid,
		},
		{
			name:          "reject cancels the booking",
			ctx:           actor(adminUser, constant.RoleAdmin),
			reject:        true,
			payment:       pendingPayment(lifecycle.ReviewPending),
			booking:       booking(lifecycle.StatusPending, lifecycle.PaymentMethodBank),
			wantWrite:     true,
			wantStatus:    lifecycle.ReviewRejected,
			wantBooking:   lifecycle.StatusCancelled,
			wantPayStatus: lifecycle.PaymentStatusPending,
		},
		{
			name:       "approving twice changes nothing",
			ctx:        actor(adminUser, constant.RoleAdmin),
			payment:    pendingPayment(lifecycle.ReviewApproved),
			wantStatus: lifecycle.ReviewApproved,
		},
		{
			name:     "rejecting an approved payment",
			ctx:      actor(adminUser, constant.RoleAdmin),
			reject:   true,
			payment:  pendingPayment(lifecycle.ReviewApproved),
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "approving for a cancelled booking",
			ctx:      actor(adminUser, constant.RoleAdmin),
			payment:  pendingPayment(lifecycle.ReviewPending),
			booking:  booking(lifecycle.StatusCancelled, lifecycle.PaymentMethodBank),
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing payment",
			ctx:      actor(adminUser, constant.RoleAdmin),
			payment:  model.Payment{},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.expectTx()
			f.repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(tt.payment, nil)

			if tt.booking.ID != 0 {
				f.bookingRepo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), gRepo.LockForUpdate).Return(tt.booking, nil)
			}

			if tt.wantWrite {
				f.bookingRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, tt.wantBooking, fields[bookingModel.FieldStatus])
						assert.Equal(t, tt.wantPayStatus, fields[bookingModel.FieldPaymentStatus])
						assert.Equal(t, tt.payment.PaymentMethod, fields[bookingModel.FieldPaymentMethod])

						return nil
					})
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, tt.wantStatus, fields[model.FieldStatus])
						assert.Equal(t, tt.wantStatus != lifecycle.ReviewRejected, fields[model.FieldIsValid])

						return nil
					})
			}

			var (
				res dto.PaymentResponse
				err error
			)

			if tt.reject {
				res, err = f.svc.Reject(tt.ctx, 9)
			} else {
				res, err = f.svc.Approve(tt.ctx, 9)
			}

			time.Sleep(10 * time.Millisecond)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(tt.wantStatus), res.Status)
		})
	}
}

func TestPaymentService_Moderate_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Approve(actor(ownerUser, constant.RoleUser), 9)

	assert.Error(t, err)
	assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
}

func TestPaymentService_GetByBooking(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		payment  model.Payment
		wantCode int
	}{
		{name: "guest", ctx: actor(guestUser, constant.RoleUser), payment: pendingPayment(lifecycle.ReviewPending)},
		{name: "owner", ctx: actor(ownerUser, constant.RoleUser), payment: pendingPayment(lifecycle.ReviewPending)},
		{name: "admin", ctx: actor(adminUser, constant.RoleAdmin), payment: pendingPayment(lifecycle.ReviewPending)},
		{name: "stranger", ctx: actor("someone", constant.RoleUser), payment: pendingPayment(lifecycle.ReviewPending), wantCode: http.StatusForbidden},
		{name: "no payment yet", ctx: actor(guestUser, constant.RoleUser), payment: model.Payment{}, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.payment, nil)

			res, err := f.svc.GetByBooking(tt.ctx, 1)

			time.Sleep(10 * time.Millisecond)

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(9), res.ID)
		})
	}
}
