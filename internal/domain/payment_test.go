package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway scripts charge/refund outcomes for tests.
type stubGateway struct {
	chargeErr error
	refundErr error
	charges   int
	refunds   int
}

func (g *stubGateway) Charge(_ context.Context, _ decimal.Decimal) (string, error) {
	g.charges++
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	return "TXN-test", nil
}

func (g *stubGateway) Refund(_ context.Context, _ string, _ decimal.Decimal) error {
	g.refunds++
	return g.refundErr
}

func TestCardPaymentProcess(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{}

	p := NewCardPayment(dec("40.00"), "**** **** **** 1234", gw)
	assert.Equal(t, PaymentStatusPending, p.Status())

	require.NoError(t, p.Process(ctx))
	assert.Equal(t, PaymentStatusProcessed, p.Status())
	assert.Equal(t, "TXN-test", p.TxID())

	// A processed payment may not be processed again.
	err := p.Process(ctx)
	assert.ErrorIs(t, err, ErrInvalidPaymentState)
	assert.Equal(t, 1, gw.charges)
}

func TestCardPaymentProcessFailure(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{chargeErr: errors.New("declined")}

	p := NewCardPayment(dec("40.00"), "**** **** **** 1234", gw)
	err := p.Process(ctx)
	require.Error(t, err)
	assert.Equal(t, PaymentStatusFailed, p.Status())

	// Failed payments stay failed; retries use a fresh instance.
	err = p.Process(ctx)
	assert.ErrorIs(t, err, ErrInvalidPaymentState)
}

func TestCardPaymentRefund(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{}

	p := NewCardPayment(dec("40.00"), "**** **** **** 1234", gw)

	// Refund before processing is invalid.
	err := p.Refund(ctx)
	assert.ErrorIs(t, err, ErrInvalidPaymentState)

	require.NoError(t, p.Process(ctx))
	require.NoError(t, p.Refund(ctx))
	assert.Equal(t, PaymentStatusRefunded, p.Status())

	// A refunded payment is never re-processed or re-refunded.
	assert.ErrorIs(t, p.Refund(ctx), ErrInvalidPaymentState)
	assert.ErrorIs(t, p.Process(ctx), ErrInvalidPaymentState)
	assert.Equal(t, 1, gw.refunds)
}

func TestCardPaymentRefundGatewayError(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{refundErr: errors.New("gateway down")}

	p := NewCardPayment(dec("40.00"), "**** **** **** 1234", gw)
	require.NoError(t, p.Process(ctx))

	assert.Error(t, p.Refund(ctx))
	assert.Equal(t, PaymentStatusProcessed, p.Status(), "failed refund leaves payment processed")
}
