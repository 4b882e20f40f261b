package domain

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the capability set an order needs to settle: process a pending
// charge and refund a processed one. New settlement methods are added as new
// implementations of this interface.
type Payment interface {
	ID() string
	Amount() decimal.Decimal
	Status() PaymentStatus
	Process(ctx context.Context) error
	Refund(ctx context.Context) error
}

// Gateway is the external settlement service a payment charges through. Calls
// take a context so the caller can apply timeouts; a timed-out charge leaves
// the payment FAILED and the order untouched.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal) (txID string, err error)
	Refund(ctx context.Context, txID string, amount decimal.Decimal) error
}

// CardPayment settles an order against a card through a Gateway.
type CardPayment struct {
	mu         sync.Mutex
	id         string
	amount     decimal.Decimal
	status     PaymentStatus
	cardMasked string
	gateway    Gateway
	txID       string
}

// NewCardPayment creates a PENDING card payment for the given amount.
func NewCardPayment(amount decimal.Decimal, cardMasked string, gw Gateway) *CardPayment {
	return &CardPayment{
		id:         uuid.New().String(),
		amount:     amount,
		status:     PaymentStatusPending,
		cardMasked: cardMasked,
		gateway:    gw,
	}
}

// ID returns the payment's opaque unique id.
func (cp *CardPayment) ID() string { return cp.id }

// Amount returns the charge amount fixed at creation.
func (cp *CardPayment) Amount() decimal.Decimal { return cp.amount }

// CardMasked returns the masked card number for display.
func (cp *CardPayment) CardMasked() string { return cp.cardMasked }

// TxID returns the gateway transaction id after a successful charge.
func (cp *CardPayment) TxID() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.txID
}

// Status returns the settlement state.
func (cp *CardPayment) Status() PaymentStatus {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.status
}

// Process charges the gateway. Only a PENDING payment may be processed; a
// failed or cancelled charge marks the payment FAILED, and retries go through
// a fresh Payment instance.
func (cp *CardPayment) Process(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.status != PaymentStatusPending {
		return fmt.Errorf("process payment %s in %s: %w", cp.id, cp.status, ErrInvalidPaymentState)
	}
	txID, err := cp.gateway.Charge(ctx, cp.amount)
	if err != nil {
		cp.status = PaymentStatusFailed
		return fmt.Errorf("charge payment %s: %w", cp.id, err)
	}
	cp.txID = txID
	cp.status = PaymentStatusProcessed
	return nil
}

// Refund reverses a PROCESSED payment through the gateway.
func (cp *CardPayment) Refund(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.status != PaymentStatusProcessed {
		return fmt.Errorf("refund payment %s in %s: %w", cp.id, cp.status, ErrInvalidPaymentState)
	}
	if err := cp.gateway.Refund(ctx, cp.txID, cp.amount); err != nil {
		return fmt.Errorf("refund payment %s: %w", cp.id, err)
	}
	cp.status = PaymentStatusRefunded
	return nil
}
