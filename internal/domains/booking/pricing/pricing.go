package pricing

import (
	"chalet/shared/failure"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type BookingType string

const (
	BookingTypeHourly    BookingType = "hourly"
	BookingTypeHalfDay   BookingType = "half_day"
	BookingTypeFullDay   BookingType = "full_day"
	BookingTypeOvernight BookingType = "overnight"
)

func (t BookingType) Valid() bool {
	switch t {
	case BookingTypeHourly, BookingTypeHalfDay, BookingTypeFullDay, BookingTypeOvernight:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidBookingType = failure.Validation("booking_type", "booking type must be one of hourly half_day full_day overnight")
	ErrInvalidDuration    = failure.Validation("end", "end must be after start")
)

var hundred = decimal.NewFromInt(100)

// RateCard is the per-unit pricing a property exposes. Unset rates are invalid NullDecimals.
type RateCard struct {
	PerHour decimal.NullDecimal
	HalfDay decimal.NullDecimal
	PerDay  decimal.NullDecimal
}

// Options tunes how a missing rate is handled.
type Options struct {
	// AllowZeroPrice prices a booking at 0 when its rate is unset instead of rejecting it.
	AllowZeroPrice bool
}

// Quote is the priced breakdown of a booking.
type Quote struct {
	Total decimal.Decimal
	Rate  decimal.Decimal
	Units int64
	// Unpriced is set when the rate was missing and AllowZeroPrice let the booking through.
	Unpriced bool
}

// rate maps a booking type to the rate it bills and how many units it bills.
func (c RateCard) rate(bookingType BookingType, duration time.Duration) (decimal.NullDecimal, int64) {
	switch bookingType {
	case BookingTypeHourly:
		if c.PerHour.Valid {
			return c.PerHour, ceilHours(duration)
		}

		return c.PerDay, 1
	case BookingTypeHalfDay:
		return c.HalfDay, 1
	case BookingTypeFullDay, BookingTypeOvernight:
		return c.PerDay, 1
	default:
		return decimal.NullDecimal{}, 0
	}
}

func ceilHours(duration time.Duration) int64 {
	hours := int64(duration / time.Hour)
	if duration%time.Hour != 0 {
		hours++
	}

	return hours
}

// Compute prices a booking of bookingType over [start, end).
// An hourly booking bills every started hour, falling back to the day rate when the property
// has no hourly rate.
func Compute(card RateCard, bookingType BookingType, start, end time.Time, opts Options) (Quote, error) {
	if !bookingType.Valid() {
		return Quote{}, ErrInvalidBookingType
	}

	if !end.After(start) {
		return Quote{}, ErrInvalidDuration
	}

	rate, units := card.rate(bookingType, end.Sub(start))
	if !rate.Valid {
		if !opts.AllowZeroPrice {
			return Quote{}, failure.Validation("booking_type", fmt.Sprintf("property has no rate configured for %s bookings", bookingType)) //nolint:wrapcheck
		}

		log.Warn().Str("booking_type", string(bookingType)).Msg("property has no rate configured, pricing booking at zero")

		return Quote{Total: decimal.Zero, Rate: decimal.Zero, Units: units, Unpriced: true}, nil
	}

	return Quote{
		Total: rate.Decimal.Mul(decimal.NewFromInt(units)),
		Rate:  rate.Decimal,
		Units: units,
	}, nil
}

// Deposit is percent of total rounded half up to a whole currency unit.
func Deposit(total, percent decimal.Decimal) decimal.Decimal {
	if total.Sign() <= 0 || percent.Sign() <= 0 {
		return decimal.Zero
	}

	return total.Mul(percent).Div(hundred).Round(0)
}
