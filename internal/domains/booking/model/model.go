package model

import (
	"chalet/internal/domains/booking/interval"
	"chalet/internal/domains/booking/lifecycle"
	"chalet/internal/domains/booking/pricing"
	"chalet/shared/model"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID            = "id"
	FieldUserID        = "user_id"
	FieldPropertyID    = "property_id"
	FieldBookingDate   = "booking_date"
	FieldStartDatetime = "start_datetime"
	FieldEndDatetime   = "end_datetime"
	FieldBookingType   = "booking_type"
	FieldTotalPrice    = "total_price"
	FieldDepositAmount = "deposit_amount"
	FieldPaymentMethod = "payment_method"
	FieldPaymentStatus = "payment_status"
	FieldStatus        = "status"

	PropertyTableName    = "properties"
	FieldPropertyOwnerID = "owner_id"
)

// Cache prefixes shared by every service that changes a booking.
const (
	CacheGet    = "booking:get"
	CacheGetAll = "booking:gets"
	CacheCount  = "booking:count"

	CacheVersion     = "booking:version"
	CacheListVersion = "booking:version:list"
)

// Booking is a row of the bookings table. Rows written before timeslots existed only
// carry BookingDate; newer rows carry both instants and a backfilled BookingDate.
type Booking struct {
	ID            int64                   `db:"id"             insert:"false"`
	UserID        string                  `db:"user_id"`
	PropertyID    *int64                  `db:"property_id"`
	BookingDate   time.Time               `db:"booking_date"`
	StartDatetime *time.Time              `db:"start_datetime"`
	EndDatetime   *time.Time              `db:"end_datetime"`
	BookingType   pricing.BookingType     `db:"booking_type"`
	CustomerName  string                  `db:"customer_name"`
	CustomerPhone string                  `db:"customer_phone"`
	TotalPrice    decimal.Decimal         `db:"total_price"`
	DepositAmount decimal.Decimal         `db:"deposit_amount"`
	PaymentMethod lifecycle.PaymentMethod `db:"payment_method"`
	PaymentStatus lifecycle.PaymentStatus `db:"payment_status"`
	Status        lifecycle.Status        `db:"status"`
	model.Metadata

	PropertyOwnerID sql.NullString `column:"owner_id" db:"property_owner_id" table:"properties"`
	PropertyName    sql.NullString `column:"name"     db:"property_name"     table:"properties"`
}

func (Booking) GetJoinQuery() string {
	return "LEFT JOIN properties ON properties.id = bookings.property_id"
}

func (b Booking) Interval(loc *time.Location) (interval.Interval, error) {
	return interval.FromColumns(b.BookingDate, b.StartDatetime, b.EndDatetime, loc) //nolint:wrapcheck
}

func (b Booking) State() lifecycle.State {
	return lifecycle.State{
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
	}
}

// Apply copies a lifecycle state back onto the row.
func (b *Booking) Apply(state lifecycle.State) {
	b.Status = state.Status
	b.PaymentStatus = state.PaymentStatus
	b.PaymentMethod = state.PaymentMethod
}

func (b Booking) IsBookedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

func (b Booking) IsManagedBy(userID string) bool {
	return userID != "" && b.PropertyOwnerID.Valid && b.PropertyOwnerID.String == userID
}
