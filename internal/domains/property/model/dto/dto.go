package dto

import (
	"chalet/internal/domains/property/model"
	"chalet/shared"
	gDto "chalet/shared/dto"

	"github.com/shopspring/decimal"
)

type PropertyResponse struct {
	ID           int64            `json:"id"`
	OwnerID      string           `json:"owner_id"`
	Name         string           `json:"name"`
	PricePerHour *decimal.Decimal `json:"price_per_hour"`
	PriceHalfDay *decimal.Decimal `json:"price_half_day"`
	PricePerDay  *decimal.Decimal `json:"price_per_day"`
	Active       bool             `json:"active"`
	gDto.Metadata
}

func nullable(value decimal.NullDecimal) *decimal.Decimal {
	if !value.Valid {
		return nil
	}

	return &value.Decimal
}

func (r *PropertyResponse) FromModel(model model.Property) {
	r.ID = model.ID
	r.OwnerID = model.OwnerID
	r.Name = model.Name
	r.PricePerHour = nullable(model.PricePerHour)
	r.PriceHalfDay = nullable(model.PriceHalfDay)
	r.PricePerDay = nullable(model.PricePerDay)
	r.Active = model.Active
	r.Metadata.FromModel(model.Metadata)
}

type GetPropertiesResponse struct {
	Properties []PropertyResponse `json:"properties"`
	TotalPage  int                `json:"total_page"`
	TotalData  int                `json:"total_data"`
}

func (r *GetPropertiesResponse) FromModels(models []model.Property, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Properties = make([]PropertyResponse, len(models))
	for i, mod := range models {
		r.Properties[i].FromModel(mod)
	}
}

type AvailabilityRequest struct {
	PropertyID       int64  `json:"property_id"        validate:"required,min=1"`
	Start            string `json:"start"              validate:"required"`
	End              string `json:"end"                validate:"required"`
	ExcludeBookingID *int64 `json:"exclude_booking_id" validate:"omitempty,min=1"`
}

type AvailabilityResponse struct {
	PropertyID int64  `json:"property_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Available  bool   `json:"available"`
}
