package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PromoCode is a percentage discount valid inside [IssuedAt, ValidUntil).
// A zero ValidUntil means the code never expires.
type PromoCode struct {
	Code       string
	Percent    int64
	IssuedAt   time.Time
	ValidUntil time.Time
}

// NewPromoCode validates the discount percent up front; anything outside
// [0,100] is rejected with ErrInvalidPromo.
func NewPromoCode(code string, percent int64, issuedAt, validUntil time.Time) (*PromoCode, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("promo %s: discount percent %d out of range: %w", code, percent, ErrInvalidPromo)
	}
	return &PromoCode{
		Code:       code,
		Percent:    percent,
		IssuedAt:   issuedAt,
		ValidUntil: validUntil,
	}, nil
}

// ValidAt reports whether the code may be applied at time t.
func (pc *PromoCode) ValidAt(t time.Time) bool {
	if t.Before(pc.IssuedAt) {
		return false
	}
	if pc.ValidUntil.IsZero() {
		return true
	}
	return t.Before(pc.ValidUntil)
}

// Apply discounts amount by the promo percentage. The result is rounded to
// the cent with banker's rounding; this is the single place amounts are
// rounded, everywhere else totals are exact decimal arithmetic.
func (pc *PromoCode) Apply(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(100 - pc.Percent)).Div(hundred).RoundBank(2)
}
