package domain

import "github.com/shopspring/decimal"

// PaymentInstruction is an outbound payment the core emits but never executes.
// The host payment collaborator applies the whole batch or rejects it.
type PaymentInstruction struct {
	// Asset is the descriptor of the asset being moved, e.g. a settlement
	// currency denom or a fungible token contract address
	Asset string `json:"asset"`
	// Amount is the exact amount to move
	Amount decimal.Decimal `json:"amount"`
	// Recipient is the address receiving the payment
	Recipient string `json:"recipient"`
}

// SettlementBatch groups the instructions emitted by a single buy operation
// together with its gross fee bookkeeping.
type SettlementBatch struct {
	// BatchID is the ULID assigned to the batch
	BatchID string `json:"batch_id"`
	// Instructions lists every emitted payment: royalties first, then the
	// protocol fee, then the seller's net proceeds
	Instructions []PaymentInstruction `json:"instructions"`
	// GrossFee is the protocol-fee bookkeeping value: the base fee plus all
	// royalty payouts absorbed before computing the seller's net
	GrossFee decimal.Decimal `json:"gross_fee"`
}

// Total returns the sum of all instruction amounts in the batch
func (b *SettlementBatch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, in := range b.Instructions {
		total = total.Add(in.Amount)
	}
	return total
}
