// Package settlement computes the payment split for a pack sale: royalties
// proportional to price appreciation, the protocol fee, and the seller's net
// proceeds. All arithmetic is exact decimal; floats never enter the math.
package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/payment"
)

// Params carries everything one settlement needs. Shares must follow the
// pack's royalty_owners order so instruction order is deterministic.
type Params struct {
	// Asset is the settlement currency descriptor
	Asset string
	// FeeRate is the protocol fee rate applied to the payment, in [0, 1]
	FeeRate decimal.Decimal
	// FeeRecipient is the protocol fee recipient address
	FeeRecipient string
	// Seller is the pack's recorded current owner
	Seller string
	// Payment is the attached payment amount
	Payment decimal.Decimal
	// CurrentPrice is the pack's asking price at sale time
	CurrentPrice decimal.Decimal
	// PreviousPrice is the price recorded at the last transfer
	PreviousPrice decimal.Decimal
	// Shares is the pack's royalty beneficiary set in royalty_owners order
	Shares []domain.RoyaltyShare
}

// Engine computes settlement batches using a payment instruction builder
type Engine struct {
	payments payment.Builder
}

// NewEngine creates a settlement engine
func NewEngine(payments payment.Builder) *Engine {
	return &Engine{payments: payments}
}

// Settle computes the instruction batch for one sale.
//
// The base fee is payment * fee rate. When the price appreciated since the
// last transfer, each beneficiary is paid (current - previous) * fraction and
// the gross fee absorbs every royalty payout before the seller's net is
// computed: the gross fee tracks value moved, while the protocol instruction
// carries only the base fee, so the emitted amounts always sum to the payment.
func (e *Engine) Settle(batchID string, p Params) (*domain.SettlementBatch, error) {
	if p.FeeRate.IsNegative() || p.FeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate %s out of range", p.FeeRate)
	}
	if p.Payment.IsNegative() {
		return nil, fmt.Errorf("negative payment %s", p.Payment)
	}

	baseFee := p.Payment.Mul(p.FeeRate)
	grossFee := baseFee

	instructions := make([]domain.PaymentInstruction, 0, len(p.Shares)+2)
	if p.CurrentPrice.GreaterThan(p.PreviousPrice) {
		appreciation := p.CurrentPrice.Sub(p.PreviousPrice)
		for _, share := range p.Shares {
			if !domain.ValidFraction(share.Fraction) {
				return nil, fmt.Errorf("royalty fraction %s out of range for %s", share.Fraction, share.Beneficiary)
			}
			royalty := appreciation.Mul(share.Fraction)
			instructions = append(instructions, e.payments.Build(p.Asset, royalty, share.Beneficiary))
			grossFee = grossFee.Add(royalty)
		}
	}

	sellerNet := p.Payment.Sub(grossFee)
	if sellerNet.IsNegative() {
		return nil, fmt.Errorf("fees %s exceed payment %s", grossFee, p.Payment)
	}

	instructions = append(instructions, e.payments.Build(p.Asset, baseFee, p.FeeRecipient))
	instructions = append(instructions, e.payments.Build(p.Asset, sellerNet, p.Seller))

	return &domain.SettlementBatch{
		BatchID:      batchID,
		Instructions: instructions,
		GrossFee:     grossFee,
	}, nil
}
