package dto

import (
	"chalet/internal/domains/guest/model"
	"chalet/shared/constant"
	"chalet/shared/timezone"
	"time"
)

type ScanRequest struct {
	Code      string `json:"code"       validate:"required,len=6"`
	Action    string `json:"action"     validate:"required,oneof=checkin checkout"`
	BookingID *int64 `json:"booking_id" validate:"omitempty,min=1"`
}

type GuestResponse struct {
	ID           int64  `json:"id"`
	BookingID    int64  `json:"booking_id"`
	Serial       int    `json:"serial"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	CheckinTime  string `json:"checkin_time,omitempty"`
	CheckoutTime string `json:"checkout_time,omitempty"`
	PropertyName string `json:"property_name,omitempty"`
	Status       string `json:"booking_status,omitempty"`
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}

	return timezone.Format(*t, constant.DateFormat)
}

func (r *GuestResponse) FromModel(model model.BookingGuest) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.Serial = model.Serial
	r.Name = model.Name
	r.Code = model.Code
	r.CheckinTime = formatOptional(model.CheckinTime)
	r.CheckoutTime = formatOptional(model.CheckoutTime)
	r.PropertyName = model.PropertyName.String
	r.Status = model.BookingStatus.String
}

func FromModels(models []model.BookingGuest) []GuestResponse {
	res := make([]GuestResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}
