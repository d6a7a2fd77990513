package model

import (
	"chalet/internal/domains/booking/lifecycle"
	"chalet/internal/domains/guest/manifest"
	"chalet/shared/failure"
	"database/sql"
	"time"
)

const (
	TableName  = "booking_guests"
	EntityName = "booking_guest"

	FieldID           = "id"
	FieldBookingID    = "booking_id"
	FieldSerial       = "serial"
	FieldCode         = "code"
	FieldCheckinTime  = "checkin_time"
	FieldCheckoutTime = "checkout_time"
)

type ScanAction string

const (
	ScanActionCheckin  ScanAction = "checkin"
	ScanActionCheckout ScanAction = "checkout"
)

var (
	ErrAlreadyCheckedIn    = failure.State("guest is already checked in")
	ErrAlreadyCheckedOut   = failure.State("guest is already checked out")
	ErrNotCheckedIn        = failure.State("guest has not checked in yet")
	ErrBookingNotConfirmed = failure.State("booking is not confirmed")
	ErrInvalidScanAction   = failure.Validation("action", "action must be checkin or checkout")
)

type BookingGuest struct {
	ID           int64      `db:"id"            insert:"false"`
	BookingID    int64      `db:"booking_id"`
	Serial       int        `db:"serial"`
	Name         string     `db:"name"`
	Code         string     `db:"code"`
	CheckinTime  *time.Time `db:"checkin_time"`
	CheckoutTime *time.Time `db:"checkout_time"`
	CreatedAt    time.Time  `db:"created_at"`

	BookingStatus   sql.NullString `column:"status"   db:"booking_status"    table:"bookings"`
	BookingUserID   sql.NullString `column:"user_id"  db:"booking_user_id"   table:"bookings"`
	PropertyOwnerID sql.NullString `column:"owner_id" db:"property_owner_id" table:"properties"`
	PropertyName    sql.NullString `column:"name"     db:"property_name"     table:"properties"`
}

func (BookingGuest) GetJoinQuery() string {
	return "JOIN bookings ON bookings.id = booking_guests.booking_id LEFT JOIN properties ON properties.id = bookings.property_id"
}

// FromEntries turns a generated manifest into rows of bookingID.
func FromEntries(bookingID int64, entries []manifest.Entry, createdAt time.Time) []BookingGuest {
	guests := make([]BookingGuest, len(entries))

	for i, entry := range entries {
		guests[i] = BookingGuest{
			BookingID: bookingID,
			Serial:    entry.Serial,
			Name:      entry.Name,
			Code:      entry.Code,
			CreatedAt: createdAt,
		}
	}

	return guests
}

// Record stores a check-in or check-out at the given instant. Each happens once and
// check-out needs a prior check-in. The returned field is the column that changed.
func (g *BookingGuest) Record(action ScanAction, at time.Time) (field string, err error) {
	if lifecycle.Status(g.BookingStatus.String) != lifecycle.StatusConfirmed {
		return "", ErrBookingNotConfirmed
	}

	switch action {
	case ScanActionCheckin:
		if g.CheckinTime != nil {
			return "", ErrAlreadyCheckedIn
		}

		g.CheckinTime = &at

		return FieldCheckinTime, nil
	case ScanActionCheckout:
		if g.CheckinTime == nil {
			return "", ErrNotCheckedIn
		}

		if g.CheckoutTime != nil {
			return "", ErrAlreadyCheckedOut
		}

		g.CheckoutTime = &at

		return FieldCheckoutTime, nil
	default:
		return "", ErrInvalidScanAction
	}
}

func (g BookingGuest) IsManagedBy(userID string) bool {
	return userID != "" && g.PropertyOwnerID.Valid && g.PropertyOwnerID.String == userID
}

func (g BookingGuest) IsBookedBy(userID string) bool {
	return userID != "" && g.BookingUserID.Valid && g.BookingUserID.String == userID
}
