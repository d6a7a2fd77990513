package repository_test

import (
	"chalet/internal/domains/booking/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlapFilter(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Riyadh")
	require.NoError(t, err)

	start := time.Date(2025, 6, 1, 20, 0, 0, 0, loc)
	end := time.Date(2025, 6, 2, 9, 0, 0, 0, loc)
	exclude := int64(9)

	filter := repository.OverlapFilter(3, start, end, &exclude, loc)
	where, args := filter.GetWhereClause()

	assert.Contains(t, where, "bookings.property_id = :property_id")
	assert.Contains(t, where, "bookings.status IN (:status_0, :status_1)")
	assert.Contains(t, where, "bookings.id != :exclude_id")
	assert.Contains(t, where, "bookings.start_datetime < :range_end")
	assert.Contains(t, where, "bookings.end_datetime > :range_start")
	assert.Contains(t, where, "bookings.start_datetime IS NULL")
	assert.Contains(t, where, "bookings.booking_date IN (:legacy_date_0, :legacy_date_1)")
	assert.Contains(t, where, " OR ")

	assert.Equal(t, int64(3), args["property_id"])
	assert.Equal(t, "pending", args["status_0"])
	assert.Equal(t, "confirmed", args["status_1"])
	assert.Equal(t, int64(9), args["exclude_id"])
	assert.Equal(t, end, args["range_end"])
	assert.Equal(t, start, args["range_start"])
	assert.Equal(t, "2025-06-01", args["legacy_date_0"])
	assert.Equal(t, "2025-06-02", args["legacy_date_1"])
}

func TestOverlapFilter_WithoutExclusion(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	filter := repository.OverlapFilter(3, start, start.Add(time.Hour), nil, time.UTC)
	where, args := filter.GetWhereClause()

	assert.NotContains(t, where, "exclude_id")
	assert.NotContains(t, args, "exclude_id")
	assert.Equal(t, "2025-06-01", args["legacy_date_0"])
	assert.NotContains(t, args, "legacy_date_1")
}
