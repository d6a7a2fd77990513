package model

import (
	"chalet/internal/domains/booking/lifecycle"
	"chalet/shared/model"
	"database/sql"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "payments"
	EntityName = "payment"

	FieldID        = "id"
	FieldBookingID = "booking_id"
	FieldStatus    = "status"
	FieldIsValid   = "is_valid"

	BookingTableName = "bookings"
)

const (
	CacheGetByBooking = "payment:booking"
)

type Payment struct {
	ID               int64                   `db:"id"                 insert:"false"`
	BookingID        int64                   `db:"booking_id"`
	PaymentMethod    lifecycle.PaymentMethod `db:"payment_method"`
	ProviderID       *int64                  `db:"provider_id"`
	TransactionID    string                  `db:"transaction_id"`
	PayerFullName    string                  `db:"payer_full_name"`
	PayerPhoneNumber string                  `db:"payer_phone_number"`
	Amount           decimal.Decimal         `db:"amount"`
	ReceiptURL       sql.NullString          `db:"receipt_url"`
	Status           lifecycle.ReviewStatus  `db:"status"`
	IsValid          bool                    `db:"is_valid"`
	model.Metadata

	BookingUserID   sql.NullString `column:"user_id"  db:"booking_user_id"   table:"bookings"`
	PropertyOwnerID sql.NullString `column:"owner_id" db:"property_owner_id" table:"properties"`
}

func (Payment) GetJoinQuery() string {
	return "JOIN bookings ON bookings.id = payments.booking_id LEFT JOIN properties ON properties.id = bookings.property_id"
}

func (p Payment) IsManagedBy(userID string) bool {
	return userID != "" && p.PropertyOwnerID.Valid && p.PropertyOwnerID.String == userID
}

func (p Payment) IsSubmittedBy(userID string) bool {
	return userID != "" && p.BookingUserID.Valid && p.BookingUserID.String == userID
}
