package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/payment"
)

const (
	seller       = "0x1111111111111111111111111111111111111111"
	feeRecipient = "0x2222222222222222222222222222222222222222"
	beneficiary  = "0x3333333333333333333333333333333333333333"
	coPacker     = "0x4444444444444444444444444444444444444444"
)

func newTestEngine() *Engine {
	return NewEngine(payment.NewBuilder())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSettle_AppreciatedPrice(t *testing.T) {
	engine := newTestEngine()

	batch, err := engine.Settle("batch-1", Params{
		Asset:         "usd",
		FeeRate:       dec("0.05"),
		FeeRecipient:  feeRecipient,
		Seller:        seller,
		Payment:       dec("150"),
		CurrentPrice:  dec("150"),
		PreviousPrice: dec("100"),
		Shares: []domain.RoyaltyShare{
			{Beneficiary: beneficiary, Fraction: dec("0.10")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, "batch-1", batch.BatchID)
	require.Len(t, batch.Instructions, 3)

	// Royalty: (150 - 100) * 0.10 = 5
	assert.Equal(t, beneficiary, batch.Instructions[0].Recipient)
	assert.True(t, batch.Instructions[0].Amount.Equal(dec("5")),
		"royalty = %s", batch.Instructions[0].Amount)

	// Protocol fee carries only the base fee: 150 * 0.05 = 7.5
	assert.Equal(t, feeRecipient, batch.Instructions[1].Recipient)
	assert.True(t, batch.Instructions[1].Amount.Equal(dec("7.5")),
		"base fee = %s", batch.Instructions[1].Amount)

	// Seller net: 150 - (7.5 + 5) = 137.5
	assert.Equal(t, seller, batch.Instructions[2].Recipient)
	assert.True(t, batch.Instructions[2].Amount.Equal(dec("137.5")),
		"seller net = %s", batch.Instructions[2].Amount)

	// Gross fee bookkeeping absorbs the royalty payout
	assert.True(t, batch.GrossFee.Equal(dec("12.5")),
		"gross fee = %s", batch.GrossFee)

	// Instruction amounts always sum to the payment
	assert.True(t, batch.Total().Equal(dec("150")),
		"total = %s", batch.Total())
}

func TestSettle_MultipleShares(t *testing.T) {
	engine := newTestEngine()

	batch, err := engine.Settle("batch-2", Params{
		Asset:         "usd",
		FeeRate:       dec("0.05"),
		FeeRecipient:  feeRecipient,
		Seller:        seller,
		Payment:       dec("200"),
		CurrentPrice:  dec("200"),
		PreviousPrice: dec("100"),
		Shares: []domain.RoyaltyShare{
			{Beneficiary: beneficiary, Fraction: dec("0.10")},
			{Beneficiary: coPacker, Fraction: dec("0.05")},
		},
	})
	require.NoError(t, err)
	require.Len(t, batch.Instructions, 4)

	// Royalties preserve share order: 100 * 0.10 then 100 * 0.05
	assert.Equal(t, beneficiary, batch.Instructions[0].Recipient)
	assert.True(t, batch.Instructions[0].Amount.Equal(dec("10")))
	assert.Equal(t, coPacker, batch.Instructions[1].Recipient)
	assert.True(t, batch.Instructions[1].Amount.Equal(dec("5")))

	// Gross fee: 10 + 10 + 5 = 25, seller net: 200 - 25 = 175
	assert.True(t, batch.GrossFee.Equal(dec("25")))
	assert.True(t, batch.Instructions[3].Amount.Equal(dec("175")))
	assert.True(t, batch.Total().Equal(dec("200")))
}

func TestSettle_NoAppreciation(t *testing.T) {
	engine := newTestEngine()

	for _, previous := range []string{"150", "200"} {
		batch, err := engine.Settle("batch-3", Params{
			Asset:         "usd",
			FeeRate:       dec("0.05"),
			FeeRecipient:  feeRecipient,
			Seller:        seller,
			Payment:       dec("150"),
			CurrentPrice:  dec("150"),
			PreviousPrice: dec(previous),
			Shares: []domain.RoyaltyShare{
				{Beneficiary: beneficiary, Fraction: dec("0.10")},
			},
		})
		require.NoError(t, err)

		// No royalty instructions when the price did not appreciate
		require.Len(t, batch.Instructions, 2)
		assert.Equal(t, feeRecipient, batch.Instructions[0].Recipient)
		assert.True(t, batch.Instructions[0].Amount.Equal(dec("7.5")))
		assert.Equal(t, seller, batch.Instructions[1].Recipient)
		assert.True(t, batch.Instructions[1].Amount.Equal(dec("142.5")))
		assert.True(t, batch.GrossFee.Equal(dec("7.5")))
		assert.True(t, batch.Total().Equal(dec("150")))
	}
}

func TestSettle_ZeroFeeRate(t *testing.T) {
	engine := newTestEngine()

	batch, err := engine.Settle("batch-4", Params{
		Asset:         "usd",
		FeeRate:       decimal.Zero,
		FeeRecipient:  feeRecipient,
		Seller:        seller,
		Payment:       dec("100"),
		CurrentPrice:  dec("100"),
		PreviousPrice: decimal.Zero,
		Shares:        nil,
	})
	require.NoError(t, err)
	require.Len(t, batch.Instructions, 2)
	assert.True(t, batch.Instructions[0].Amount.IsZero())
	assert.True(t, batch.Instructions[1].Amount.Equal(dec("100")))
}

func TestSettle_FeesExceedPayment(t *testing.T) {
	engine := newTestEngine()

	// Payment 10, appreciation 100 at fraction 1.0: royalties alone exceed
	// the payment and the batch must be rejected wholesale.
	_, err := engine.Settle("batch-5", Params{
		Asset:         "usd",
		FeeRate:       dec("0.05"),
		FeeRecipient:  feeRecipient,
		Seller:        seller,
		Payment:       dec("10"),
		CurrentPrice:  dec("110"),
		PreviousPrice: dec("10"),
		Shares: []domain.RoyaltyShare{
			{Beneficiary: beneficiary, Fraction: dec("1")},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceed payment")
}

func TestSettle_InvalidFeeRate(t *testing.T) {
	engine := newTestEngine()

	for _, rate := range []string{"-0.01", "1.01"} {
		_, err := engine.Settle("batch-6", Params{
			Asset:        "usd",
			FeeRate:      dec(rate),
			FeeRecipient: feeRecipient,
			Seller:       seller,
			Payment:      dec("100"),
			CurrentPrice: dec("100"),
		})
		require.Error(t, err, "fee rate %s", rate)
		assert.Contains(t, err.Error(), "out of range")
	}
}

func TestSettle_InvalidFraction(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Settle("batch-7", Params{
		Asset:         "usd",
		FeeRate:       dec("0.05"),
		FeeRecipient:  feeRecipient,
		Seller:        seller,
		Payment:       dec("150"),
		CurrentPrice:  dec("150"),
		PreviousPrice: dec("100"),
		Shares: []domain.RoyaltyShare{
			{Beneficiary: beneficiary, Fraction: dec("1.5")},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestSettle_NegativePayment(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Settle("batch-8", Params{
		Asset:        "usd",
		FeeRate:      dec("0.05"),
		FeeRecipient: feeRecipient,
		Seller:       seller,
		Payment:      dec("-1"),
		CurrentPrice: dec("100"),
	})
	require.Error(t, err)
}
