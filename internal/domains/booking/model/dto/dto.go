package dto

import (
	"chalet/internal/domains/booking/interval"
	"chalet/internal/domains/booking/lifecycle"
	"chalet/internal/domains/booking/model"
	"chalet/internal/domains/booking/pricing"
	"chalet/internal/domains/guest/manifest"
	guestDto "chalet/internal/domains/guest/model/dto"
	"chalet/shared"
	"chalet/shared/constant"
	gDto "chalet/shared/dto"
	"chalet/shared/failure"
	gModel "chalet/shared/model"
	"chalet/shared/timezone"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	PropertyID    int64    `json:"property_id"    validate:"required,min=1"`
	BookingType   string   `json:"booking_type"   validate:"required,oneof=hourly half_day full_day overnight"`
	Start         string   `json:"start"          validate:"required"`
	End           string   `json:"end"            validate:"required"`
	CustomerName  string   `json:"customer_name"  validate:"required,max=100"`
	CustomerPhone string   `json:"customer_phone" validate:"required,max=20"`
	PaymentMethod string   `json:"payment_method" validate:"omitempty,oneof=wallet_transfer bank_transfer cash"`
	GuestNames    []string `json:"guest_names"    validate:"omitempty,dive,max=200"`
	// GuestList is the newline separated form of GuestNames.
	GuestList string `json:"guest_list" validate:"omitempty"`
}

// Timeslot parses Start and End. Values without an offset are read in the application timezone.
func (c *CreateBookingRequest) Timeslot() (start, end time.Time, err error) {
	return ParseTimeslot(c.Start, c.End)
}

func ParseTimeslot(rawStart, rawEnd string) (start, end time.Time, err error) {
	start, err = timezone.ParseInstant(rawStart)
	if err != nil {
		return start, end, failure.Validation("start", "start must be an RFC3339 timestamp") //nolint:wrapcheck
	}

	end, err = timezone.ParseInstant(rawEnd)
	if err != nil {
		return start, end, failure.Validation("end", "end must be an RFC3339 timestamp") //nolint:wrapcheck
	}

	return start, end, nil
}

// Names merges GuestNames and GuestList, keeping order and dropping blank entries.
func (c *CreateBookingRequest) Names() []string {
	names := make([]string, 0, len(c.GuestNames))

	for _, name := range c.GuestNames {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}

	return append(names, manifest.ParseNames(c.GuestList)...)
}

func (c *CreateBookingRequest) ToModel(user string, slot interval.Interval, loc *time.Location, total, deposit decimal.Decimal, state lifecycle.State) model.Booking {
	start, end := slot.Range()
	now := timezone.Now()
	propertyID := c.PropertyID

	return model.Booking{
		UserID:        user,
		PropertyID:    &propertyID,
		BookingDate:   slot.Date(loc),
		StartDatetime: &start,
		EndDatetime:   &end,
		BookingType:   pricing.BookingType(c.BookingType),
		CustomerName:  strings.TrimSpace(c.CustomerName),
		CustomerPhone: strings.TrimSpace(c.CustomerPhone),
		TotalPrice:    total,
		DepositAmount: deposit,
		PaymentMethod: state.PaymentMethod,
		PaymentStatus: state.PaymentStatus,
		Status:        state.Status,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type SelectPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=wallet_transfer bank_transfer cash"`
}

type BookingResponse struct {
	ID              int64                    `json:"id"`
	UserID          string                   `json:"user_id"`
	PropertyID      *int64                   `json:"property_id"`
	PropertyName    string                   `json:"property_name,omitempty"`
	PropertyOwnerID string                   `json:"property_owner_id,omitempty"`
	BookingDate     string                   `json:"booking_date"`
	Start           string                   `json:"start"`
	End             string                   `json:"end"`
	Legacy          bool                     `json:"legacy"`
	BookingType     string                   `json:"booking_type"`
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	TotalPrice      decimal.Decimal          `json:"total_price"`
	DepositAmount   decimal.Decimal          `json:"deposit_amount"`
	PaymentMethod   string                   `json:"payment_method"`
	PaymentStatus   string                   `json:"payment_status"`
	Status          string                   `json:"status"`
	Guests          []guestDto.GuestResponse `json:"guests,omitempty"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.PropertyID = model.PropertyID
	r.PropertyName = model.PropertyName.String
	r.PropertyOwnerID = model.PropertyOwnerID.String
	r.BookingDate = model.BookingDate.Format(constant.DateOnlyFormat)
	r.BookingType = string(model.BookingType)
	r.CustomerName = model.CustomerName
	r.CustomerPhone = model.CustomerPhone
	r.TotalPrice = model.TotalPrice
	r.DepositAmount = model.DepositAmount
	r.PaymentMethod = string(model.PaymentMethod)
	r.PaymentStatus = string(model.PaymentStatus)
	r.Status = string(model.Status)
	r.Metadata.FromModel(model.Metadata)

	slot, err := model.Interval(timezone.GetLocation())
	if err != nil {
		return
	}

	start, end := slot.Range()
	r.Start = timezone.Format(start, constant.DateFormat)
	r.End = timezone.Format(end, constant.DateFormat)
	r.Legacy = slot.IsLegacy()
}

// IsVisibleTo reports whether userID booked or manages the booking.
func (r *BookingResponse) IsVisibleTo(userID string) bool {
	return userID != "" && (r.UserID == userID || r.PropertyOwnerID == userID)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
