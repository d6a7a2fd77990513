package dto

import (
	"chalet/internal/domains/booking/lifecycle"
	bookingModel "chalet/internal/domains/booking/model"
	"chalet/internal/domains/payment/model"
	"chalet/shared/constant"
	"chalet/shared/failure"
	gModel "chalet/shared/model"
	"chalet/shared/timezone"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

type SubmitPaymentRequest struct {
	PaymentMethod    string `json:"payment_method"     validate:"required,oneof=wallet_transfer bank_transfer cash"`
	ProviderID       *int64 `json:"provider_id"        validate:"omitempty,min=1"`
	TransactionID    string `json:"transaction_id"     validate:"omitempty,max=100"`
	PayerFullName    string `json:"payer_full_name"    validate:"omitempty,max=100"`
	PayerPhoneNumber string `json:"payer_phone_number" validate:"omitempty,max=20"`
	// Receipt is an optional proof image as a base64 data url.
	Receipt string `json:"receipt" validate:"omitempty,mimetypes=image/png image/jpeg application/pdf,maxfilesize=5"`
}

// Validate checks the fields a bank transfer cannot do without.
func (r *SubmitPaymentRequest) Validate() error {
	if lifecycle.PaymentMethod(r.PaymentMethod) != lifecycle.PaymentMethodBank {
		return nil
	}

	if strings.TrimSpace(r.TransactionID) == "" {
		return failure.Validation("transaction_id", "transaction_id is required for bank transfers") //nolint:wrapcheck
	}

	if strings.TrimSpace(r.PayerFullName) == "" {
		return failure.Validation("payer_full_name", "payer_full_name is required for bank transfers") //nolint:wrapcheck
	}

	if strings.TrimSpace(r.PayerPhoneNumber) == "" {
		return failure.Validation("payer_phone_number", "payer_phone_number is required for bank transfers") //nolint:wrapcheck
	}

	if r.ProviderID == nil {
		return failure.Validation("provider_id", "provider_id is required for bank transfers") //nolint:wrapcheck
	}

	return nil
}

// AmountDue is the deposit for cash bookings and the total for the transfer methods.
func AmountDue(booking bookingModel.Booking, method lifecycle.PaymentMethod) decimal.Decimal {
	if method.CollectsDeposit() {
		return booking.DepositAmount
	}

	return booking.TotalPrice
}

func (r *SubmitPaymentRequest) ToModel(booking bookingModel.Booking, user string, amount decimal.Decimal) model.Payment {
	now := timezone.Now()

	return model.Payment{
		BookingID:        booking.ID,
		PaymentMethod:    lifecycle.PaymentMethod(r.PaymentMethod),
		ProviderID:       r.ProviderID,
		TransactionID:    strings.TrimSpace(r.TransactionID),
		PayerFullName:    strings.TrimSpace(r.PayerFullName),
		PayerPhoneNumber: strings.TrimSpace(r.PayerPhoneNumber),
		Amount:           amount,
		Status:           lifecycle.ReviewPending,
		IsValid:          true,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
		BookingUserID:   sql.NullString{String: booking.UserID, Valid: true},
		PropertyOwnerID: booking.PropertyOwnerID,
	}
}

type PaymentResponse struct {
	ID               int64   `json:"id"`
	BookingID        int64   `json:"booking_id"`
	PaymentMethod    string  `json:"payment_method"`
	ProviderID       *int64  `json:"provider_id,omitempty"`
	TransactionID    string  `json:"transaction_id,omitempty"`
	PayerFullName    string  `json:"payer_full_name,omitempty"`
	PayerPhoneNumber string  `json:"payer_phone_number,omitempty"`
	Amount           string  `json:"amount"`
	ReceiptURL       *string `json:"receipt_url,omitempty"`
	Status           string  `json:"status"`
	BookedBy         string  `json:"booked_by,omitempty"`
	PropertyOwnerID  string  `json:"property_owner_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
	ModifiedAt       string  `json:"modified_at"`
}

// IsVisibleTo reports whether user booked the paid booking or owns its property.
func (r PaymentResponse) IsVisibleTo(user string) bool {
	return user != "" && (r.BookedBy == user || r.PropertyOwnerID == user)
}

func (r *PaymentResponse) FromModel(model model.Payment) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.PaymentMethod = string(model.PaymentMethod)
	r.ProviderID = model.ProviderID
	r.TransactionID = model.TransactionID
	r.PayerFullName = model.PayerFullName
	r.PayerPhoneNumber = model.PayerPhoneNumber
	r.Amount = model.Amount.StringFixed(2)
	r.Status = string(model.Status)
	r.BookedBy = model.BookingUserID.String
	r.PropertyOwnerID = model.PropertyOwnerID.String
	r.CreatedAt = timezone.Format(model.CreatedAt, constant.DateFormat)
	r.ModifiedAt = timezone.Format(model.ModifiedAt, constant.DateFormat)

	r.ReceiptURL = nil
	if model.ReceiptURL.Valid {
		url := model.ReceiptURL.String
		r.ReceiptURL = &url
	}
}

// ModerationMessage is a moderation decision read from the payment moderation topic.
type ModerationMessage struct {
	PaymentID int64  `json:"payment_id" validate:"required,min=1"`
	Decision  string `json:"decision"   validate:"required,oneof=approve reject"`
	Moderator string `json:"moderator"  validate:"required"`
}

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)
