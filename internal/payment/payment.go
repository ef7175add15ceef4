// Package payment constructs outbound payment instructions. The core never
// transmits value itself; emitted batches are applied or rejected wholesale by
// the host payment collaborator.
package payment

import (
	"github.com/shopspring/decimal"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// Builder defines the interface for building outbound payment instructions
type Builder interface {
	// Build constructs one payment instruction for the given asset, amount and recipient
	Build(asset string, amount decimal.Decimal, recipient string) domain.PaymentInstruction
}

type builder struct{}

// NewBuilder creates the default payment instruction builder
func NewBuilder() Builder {
	return &builder{}
}

func (b *builder) Build(asset string, amount decimal.Decimal, recipient string) domain.PaymentInstruction {
	return domain.PaymentInstruction{
		Asset:     asset,
		Amount:    amount,
		Recipient: recipient,
	}
}
