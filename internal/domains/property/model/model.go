package model

import (
	"chalet/internal/domains/booking/pricing"
	"chalet/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "properties"
	EntityName = "property"

	FieldID           = "id"
	FieldOwnerID      = "owner_id"
	FieldName         = "name"
	FieldPricePerHour = "price_per_hour"
	FieldPriceHalfDay = "price_half_day"
	FieldPricePerDay  = "price_per_day"
	FieldActive       = "active"
)

// Property is owned by the listing side of the platform; bookings only read it.
type Property struct {
	ID           int64               `db:"id"             insert:"false"`
	OwnerID      string              `db:"owner_id"`
	Name         string              `db:"name"`
	PricePerHour decimal.NullDecimal `db:"price_per_hour"`
	PriceHalfDay decimal.NullDecimal `db:"price_half_day"`
	PricePerDay  decimal.NullDecimal `db:"price_per_day"`
	Active       bool                `db:"active"`
	model.Metadata
}

func (p Property) RateCard() pricing.RateCard {
	return pricing.RateCard{
		PerHour: p.PricePerHour,
		HalfDay: p.PriceHalfDay,
		PerDay:  p.PricePerDay,
	}
}

// Bookable reports whether the property exists and accepts bookings.
func (p Property) Bookable() bool {
	return p.ID != 0 && p.Active
}
