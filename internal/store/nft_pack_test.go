package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

func TestCreateNftPack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, alice, 3)
	pack, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Genesis",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	require.NotNil(t, pack)

	assert.Equal(t, uint64(1), pack.PackID)
	assert.Equal(t, "Genesis", pack.Name)
	assert.Equal(t, 3, pack.ItemCount)
	assert.Equal(t, ids, []string(pack.Items))
	assert.Equal(t, alice, pack.MintedBy)
	assert.Equal(t, alice, pack.CurrentOwner)
	assert.Nil(t, pack.PreviousOwner)
	assert.True(t, pack.CurrentPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, pack.PreviousPrice.IsZero())
	assert.True(t, pack.ForSale)
	assert.Zero(t, pack.TransferCount)
	assert.Equal(t, []string{alice}, []string(pack.RoyaltyOwners))
	assert.Empty(t, pack.Approvals)

	// Every composed item is parked at the vault
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, vaultAddr, item.Owner)
	}

	count, err := s.GetPackBalance(ctx, domain.PackKindNFT, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	shares, err := s.GetRoyaltyShares(ctx, domain.PackKindNFT, pack.PackID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, alice, shares[0].Beneficiary)
	assert.True(t, shares[0].Fraction.Equal(decimal.RequireFromString("0.1")))
}

func TestCreateNftPack_ExtraShares(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pack, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         mintTestItems(t, s, alice, 1),
		Name:            "Shared",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
		ExtraShares: []domain.RoyaltyShare{
			{Beneficiary: bob, Fraction: decimal.RequireFromString("0.05")},
			// The packer's own address dedupes against the leading share
			{Beneficiary: alice, Fraction: decimal.RequireFromString("0.2")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{alice, bob}, []string(pack.RoyaltyOwners))

	shares, err := s.GetRoyaltyShares(ctx, domain.PackKindNFT, pack.PackID)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.True(t, shares[0].Fraction.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, shares[1].Fraction.Equal(decimal.RequireFromString("0.05")))
}

func TestCreateNftPack_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestNftPack(t, s, alice, "Taken", 1, "0.1")

	_, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          bob,
		ItemIDs:         mintTestItems(t, s, bob, 1),
		Name:            "Taken",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.ErrorIs(t, err, domain.ErrExistPackName)

	// The rejected pack attempt must not have moved bob's items
	indexed, err := s.ListPackableItemsByOwner(ctx, bob)
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	item, err := s.GetItem(ctx, indexed[0].ItemID)
	require.NoError(t, err)
	assert.Equal(t, bob, item.Owner)
}

func TestCreateNftPack_NotItemOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, bob, 1)

	_, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Stolen",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// With an approval the item ledger authorizes the send, but the packable
	// index still records bob as owner
	require.NoError(t, s.ApproveItem(ctx, bob, ids[0], alice, nil))
	_, err = s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Stolen",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.ErrorIs(t, err, domain.ErrNotNftOwner)
}

func TestCreateNftPack_InvalidInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, alice, 1)
	valid := CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Valid",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	}

	input := valid
	input.Caller = "not-an-address"
	_, err := s.CreateNftPack(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	input = valid
	input.Name = ""
	_, err = s.CreateNftPack(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	input = valid
	input.ItemIDs = nil
	_, err = s.CreateNftPack(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	input = valid
	input.RoyaltyFraction = decimal.RequireFromString("1.5")
	_, err = s.CreateNftPack(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	input = valid
	input.Price = decimal.NewFromInt(-1)
	_, err = s.CreateNftPack(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateNftPack_TooManyItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, alice, 11)
	_, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Oversized",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "at most 10 items")
}

func TestPackRoundTripLowercaseCaller(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// The same raw lowercase string must authorize mint, pack, and unpack;
	// ownership checks compare checksummed forms throughout.
	lower := "0xdddddddddddddddddddddddddddddddddddddddd"
	ids := mintTestItems(t, s, lower, 2)

	pack, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          lower,
		ItemIDs:         ids,
		Name:            "Lower Case",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NormalizeAddress(lower), pack.CurrentOwner)

	unpacked, err := s.UnpackNftPack(ctx, lower, pack.PackID)
	require.NoError(t, err)

	for _, itemID := range unpacked.Items {
		item, err := s.GetItem(ctx, itemID)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, domain.NormalizeAddress(lower), item.Owner)
	}
}

func TestNftPackIDsNeverReused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := createTestNftPack(t, s, alice, "First", 1, "0.1")
	assert.Equal(t, uint64(1), first)

	_, err := s.UnpackNftPack(ctx, alice, first)
	require.NoError(t, err)

	// The counter never decrements; the next pack takes id 2
	second := createTestNftPack(t, s, alice, "Second", 1, "0.1")
	assert.Equal(t, uint64(2), second)
}

func TestUnpackNftPack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, alice, 2)
	pack, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Dissolving",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)

	unpacked, err := s.UnpackNftPack(ctx, alice, pack.PackID)
	require.NoError(t, err)
	assert.Equal(t, pack.PackID, unpacked.PackID)

	// Items returned to the caller
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, alice, item.Owner)
	}

	// The pack row, its balance and its royalty entries are gone
	got, err := s.GetNftPack(ctx, pack.PackID)
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := s.GetPackBalance(ctx, domain.PackKindNFT, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = s.GetRoyaltyShares(ctx, domain.PackKindNFT, pack.PackID)
	require.ErrorIs(t, err, domain.ErrPackNotFound)

	// The name is free again
	createTestNftPack(t, s, bob, "Dissolving", 1, "0.1")
}

func TestUnpackNftPack_PreconditionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Guarded", 1, "0.1")

	// Balance check fires first: carol holds no packs at all
	_, err := s.UnpackNftPack(ctx, carol, packID)
	require.ErrorIs(t, err, domain.ErrNoBalance)

	// Ownership check fires next: bob holds a pack, but not this one
	createTestNftPack(t, s, bob, "Bobs", 1, "0.1")
	_, err = s.UnpackNftPack(ctx, bob, packID)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	// Royalty check fires next: transfer the pack to bob, who owns it but
	// holds no royalty entry for it
	_, err = s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)
	_, err = s.TransferNftPack(ctx, bob, packID, alice, bob)
	require.NoError(t, err)

	_, err = s.UnpackNftPack(ctx, bob, packID)
	require.ErrorIs(t, err, domain.ErrNoPackRoyalty)
}

func TestUnpackNftPack_VaultCustodyViolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := mintTestItems(t, s, alice, 1)
	pack, err := s.CreateNftPack(ctx, CreatePackInput{
		Caller:          alice,
		ItemIDs:         ids,
		Name:            "Breached",
		Price:           decimal.NewFromInt(100),
		RoyaltyFraction: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)

	// Move the composed item out of vault custody behind the store's back
	err = testDB.Model(&schema.Item{}).
		Where("item_id = ?", ids[0]).
		Update("owner", carol).Error
	require.NoError(t, err)

	_, err = s.UnpackNftPack(ctx, alice, pack.PackID)
	require.ErrorIs(t, err, domain.ErrInvalidItemOwner)
}

func TestApproveNftPack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Approvable", 1, "0.1")

	pack, err := s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, []string(pack.Approvals))

	// Repeated approvals dedupe
	pack, err = s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, []string(pack.Approvals))

	pack, err = s.ApproveNftPack(ctx, alice, packID, carol)
	require.NoError(t, err)
	assert.Equal(t, []string{bob, carol}, []string(pack.Approvals))

	_, err = s.ApproveNftPack(ctx, bob, packID, carol)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = s.ApproveNftPack(ctx, alice, 999, bob)
	require.ErrorIs(t, err, domain.ErrPackNotFound)
}

func TestTransferNftPack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Moving", 1, "0.1")

	// Transfers are pull-only: even the owner cannot move an unapproved pack
	_, err := s.TransferNftPack(ctx, alice, packID, alice, bob)
	require.ErrorIs(t, err, domain.ErrNotApproved)

	_, err = s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)

	_, err = s.TransferNftPack(ctx, bob, packID, carol, bob)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	pack, err := s.TransferNftPack(ctx, bob, packID, alice, bob)
	require.NoError(t, err)

	assert.Equal(t, bob, pack.CurrentOwner)
	require.NotNil(t, pack.PreviousOwner)
	assert.Equal(t, alice, *pack.PreviousOwner)
	assert.True(t, pack.PreviousPrice.Equal(pack.CurrentPrice))
	assert.Equal(t, uint64(1), pack.TransferCount)
	assert.Empty(t, pack.Approvals)

	// Balances moved with the pack
	count, err := s.GetPackBalance(ctx, domain.PackKindNFT, alice)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = s.GetPackBalance(ctx, domain.PackKindNFT, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Approvals are single-use: a second transfer needs a fresh approval
	_, err = s.TransferNftPack(ctx, bob, packID, bob, carol)
	require.ErrorIs(t, err, domain.ErrNotApproved)
}

func TestTransferNftPack_BalanceUnderflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Corrupted", 1, "0.1")
	_, err := s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)

	// Zero out the sender's counter behind the store's back
	err = testDB.Model(&schema.PackBalance{}).
		Where("kind = ? AND owner = ?", domain.PackKindNFT, alice).
		Update("count", 0).Error
	require.NoError(t, err)

	_, err = s.TransferNftPack(ctx, bob, packID, alice, bob)
	require.ErrorIs(t, err, domain.ErrBalanceUnderflow)
}

func TestUpdateNftPackSale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Repriced", 1, "0.1")

	pack, err := s.UpdateNftPackSale(ctx, alice, packID, decimal.NewFromInt(150), false)
	require.NoError(t, err)
	assert.True(t, pack.CurrentPrice.Equal(decimal.NewFromInt(150)))
	assert.False(t, pack.ForSale)

	// The previous price is untouched by repricing
	assert.True(t, pack.PreviousPrice.IsZero())

	_, err = s.UpdateNftPackSale(ctx, bob, packID, decimal.NewFromInt(1), true)
	require.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = s.UpdateNftPackSale(ctx, alice, packID, decimal.NewFromInt(-1), true)
	require.Error(t, err)
}

func TestBuyNftPack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// alice packs at 100, transfers to bob (previous price becomes 100),
	// bob reprices to 150 and settles at 150
	packID := createTestNftPack(t, s, alice, "Sold", 1, "0.1")
	_, err := s.ApproveNftPack(ctx, alice, packID, bob)
	require.NoError(t, err)
	_, err = s.TransferNftPack(ctx, bob, packID, alice, bob)
	require.NoError(t, err)
	_, err = s.UpdateNftPackSale(ctx, bob, packID, decimal.NewFromInt(150), true)
	require.NoError(t, err)

	result, err := s.BuyNftPack(ctx, BuyPackInput{
		Caller:  bob,
		PackID:  packID,
		Payment: decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	batch := result.Batch
	require.Len(t, batch.Instructions, 3)

	// Royalty to alice: (150 - 100) * 0.1 = 5
	assert.Equal(t, alice, batch.Instructions[0].Recipient)
	assert.True(t, batch.Instructions[0].Amount.Equal(decimal.NewFromInt(5)))
	// Base fee: 150 * 0.05 = 7.5
	assert.Equal(t, feeCollector, batch.Instructions[1].Recipient)
	assert.True(t, batch.Instructions[1].Amount.Equal(decimal.RequireFromString("7.5")))
	// Seller net: 150 - 12.5 = 137.5
	assert.Equal(t, bob, batch.Instructions[2].Recipient)
	assert.True(t, batch.Instructions[2].Amount.Equal(decimal.RequireFromString("137.5")))
	assert.True(t, batch.GrossFee.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, batch.Total().Equal(decimal.NewFromInt(150)))

	// The price history advanced; ownership did not change
	assert.True(t, result.Pack.PreviousPrice.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, bob, result.Pack.CurrentOwner)

	// The batch is persisted for audit
	record, err := s.GetSettlementRecord(ctx, batch.BatchID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.PackKindNFT, record.Kind)
	assert.Equal(t, packID, record.PackID)
	assert.Equal(t, bob, record.Buyer)
	assert.True(t, record.Payment.Equal(decimal.NewFromInt(150)))
	assert.True(t, record.GrossFee.Equal(decimal.RequireFromString("12.5")))

	// A repeat settlement sees no appreciation and pays no royalties
	result, err = s.BuyNftPack(ctx, BuyPackInput{
		Caller:  bob,
		PackID:  packID,
		Payment: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	require.Len(t, result.Batch.Instructions, 2)
}

func TestBuyNftPack_InsufficientFunds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	packID := createTestNftPack(t, s, alice, "Unaffordable", 1, "0.1")

	// Payment below the asking price
	_, err := s.BuyNftPack(ctx, BuyPackInput{
		Caller:  alice,
		PackID:  packID,
		Payment: decimal.NewFromInt(99),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// A caller who is not the recorded owner fails the same way
	_, err = s.BuyNftPack(ctx, BuyPackInput{
		Caller:  bob,
		PackID:  packID,
		Payment: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = s.BuyNftPack(ctx, BuyPackInput{
		Caller:  alice,
		PackID:  999,
		Payment: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, domain.ErrPackNotFound)
}

func TestListNftPacksByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestNftPack(t, s, alice, "List A", 1, "0.1")
	createTestNftPack(t, s, alice, "List B", 1, "0.1")
	createTestNftPack(t, s, bob, "List C", 1, "0.1")

	packs, err := s.ListNftPacksByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "List A", packs[0].Name)
	assert.Equal(t, "List B", packs[1].Name)

	packs, err = s.ListNftPacksByOwner(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, packs)
}
