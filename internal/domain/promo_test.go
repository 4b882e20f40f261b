package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromoCodePercentRange(t *testing.T) {
	issued := time.Now()

	_, err := NewPromoCode("NEG", -1, issued, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidPromo)

	_, err = NewPromoCode("BIG", 101, issued, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidPromo)

	pc, err := NewPromoCode("FULL", 100, issued, time.Time{})
	require.NoError(t, err)
	assert.True(t, pc.Apply(decimal.NewFromInt(40)).IsZero())
}

func TestPromoValidityWindow(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := issued.Add(30 * 24 * time.Hour)

	pc, err := NewPromoCode("JAN30", 10, issued, until)
	require.NoError(t, err)

	assert.False(t, pc.ValidAt(issued.Add(-time.Hour)), "before issue")
	assert.True(t, pc.ValidAt(issued), "window start is inclusive")
	assert.True(t, pc.ValidAt(until.Add(-time.Second)))
	assert.False(t, pc.ValidAt(until), "window end is exclusive")
	assert.False(t, pc.ValidAt(until.Add(time.Hour)), "expired")
}

func TestPromoNoExpiryAlwaysValid(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	pc, err := NewPromoCode("FOREVER", 5, issued, time.Time{})
	require.NoError(t, err)

	assert.True(t, pc.ValidAt(issued.Add(10*365*24*time.Hour)))
}

func TestPromoApplyRounding(t *testing.T) {
	issued := time.Now()

	pc, err := NewPromoCode("TEN", 10, issued, time.Time{})
	require.NoError(t, err)

	got := pc.Apply(decimal.RequireFromString("40.00"))
	assert.True(t, got.Equal(decimal.RequireFromString("36.00")), "got %s", got)

	// 15% off 10.10 is 8.585, banker's rounding lands on 8.58.
	pc15, err := NewPromoCode("FIFTEEN", 15, issued, time.Time{})
	require.NoError(t, err)
	got = pc15.Apply(decimal.RequireFromString("10.10"))
	assert.True(t, got.Equal(decimal.RequireFromString("8.58")), "got %s", got)
}
