package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodGateway      PaymentMethod = "GATEWAY"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodGateway, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment records a completed payment against an invoice
type Payment struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Reference   string          `json:"reference"` // bank txn id, gateway id
	CompletedAt time.Time       `json:"completed_at"`
	Remark      string          `json:"remark"`
}

// NewPayment creates a completed payment record
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, method PaymentMethod, reference string) (*Payment, error) {
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+string(method))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount must be positive")
	}
	return &Payment{
		BaseEntity:  shared.NewBaseEntity(),
		InvoiceID:   invoiceID,
		Amount:      amount,
		Method:      method,
		Reference:   reference,
		CompletedAt: time.Now(),
	}, nil
}
