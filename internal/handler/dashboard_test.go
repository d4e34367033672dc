package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	start, hasStart, ok := periodStart("7d", now)
	assert.True(t, ok)
	assert.True(t, hasStart)
	assert.Equal(t, now.AddDate(0, 0, -7), start)

	start, hasStart, ok = periodStart("3m", now)
	assert.True(t, ok)
	assert.True(t, hasStart)
	assert.Equal(t, now.AddDate(0, 0, -90), start)

	_, hasStart, ok = periodStart("all", now)
	assert.True(t, ok)
	assert.False(t, hasStart)

	_, _, ok = periodStart("6h", now)
	assert.False(t, ok)
}

func TestWeekBounds(t *testing.T) {
	// A Wednesday.
	wednesday := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)
	start, end := weekBounds(wednesday)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 23, 23, 59, 59, 0, time.UTC), end)

	// Sunday still belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 23, 1, 0, 0, 0, time.UTC)
	start, _ = weekBounds(sunday)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), start)

	// Monday starts its own week.
	monday := time.Date(2026, 8, 24, 0, 0, 1, 0, time.UTC)
	start, _ = weekBounds(monday)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
}

func TestUserTimezoneValidation(t *testing.T) {
	assert.Equal(t, "UTC", validTimezone(""))
	assert.Equal(t, "America/Bogota", validTimezone("America/Bogota"))
	assert.Equal(t, "UTC", validTimezone("Not/AZone"))
	assert.Equal(t, "UTC", validTimezone("'; DROP TABLE sessions; --"))
}
