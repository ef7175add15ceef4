package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/itemledger"
	"github.com/nftmx/pack-ledger/internal/settlement"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// validatePackShares validates the packer's fraction and any extra
// beneficiaries recorded at packing time, and returns the assembled share
// list with the packer first
func (s *pgStore) validatePackShares(caller string, fraction decimal.Decimal, extras []domain.RoyaltyShare) ([]domain.RoyaltyShare, error) {
	if !domain.ValidFraction(fraction) {
		return nil, fmt.Errorf("royalty fraction %s out of range: %w", fraction, domain.ErrInvalidInput)
	}

	shares := make([]domain.RoyaltyShare, 0, len(extras)+1)
	shares = append(shares, domain.RoyaltyShare{Beneficiary: caller, Fraction: fraction})
	for _, extra := range extras {
		if !domain.ValidAddress(extra.Beneficiary) {
			return nil, fmt.Errorf("invalid royalty beneficiary %q: %w", extra.Beneficiary, domain.ErrInvalidInput)
		}
		if !domain.ValidFraction(extra.Fraction) {
			return nil, fmt.Errorf("royalty fraction %s out of range: %w", extra.Fraction, domain.ErrInvalidInput)
		}
		beneficiary := domain.NormalizeAddress(extra.Beneficiary)
		if beneficiary == caller {
			continue
		}
		shares = append(shares, domain.RoyaltyShare{Beneficiary: beneficiary, Fraction: extra.Fraction})
	}

	if len(shares) > s.cfg.MaxRoyaltyOwners {
		return nil, fmt.Errorf("at most %d royalty owners per pack: %w", s.cfg.MaxRoyaltyOwners, domain.ErrInvalidInput)
	}

	return shares, nil
}

// writeRoyaltyEntries records one royalty ledger entry per beneficiary
func writeRoyaltyEntries(tx *gorm.DB, kind domain.PackKind, packID uint64, shares []domain.RoyaltyShare) error {
	for _, share := range shares {
		fee := schema.RoyaltyFee{
			Kind:        kind,
			PackID:      packID,
			Beneficiary: share.Beneficiary,
			Fraction:    share.Fraction,
		}
		if err := tx.Create(&fee).Error; err != nil {
			return fmt.Errorf("failed to create royalty entry: %w", err)
		}
	}
	return nil
}

func shareOwners(shares []domain.RoyaltyShare) datatypes.JSONSlice[string] {
	owners := make(datatypes.JSONSlice[string], 0, len(shares))
	for _, share := range shares {
		owners = append(owners, share.Beneficiary)
	}
	return owners
}

// CreateNftPack packs items into a new NFT pack. All item checks run before
// any write begins; on any failure nothing is mutated.
func (s *pgStore) CreateNftPack(ctx context.Context, input CreatePackInput) (*schema.NftPack, error) {
	if !domain.ValidAddress(input.Caller) {
		return nil, fmt.Errorf("invalid caller address %q: %w", input.Caller, domain.ErrInvalidInput)
	}
	caller := domain.NormalizeAddress(input.Caller)

	if input.Name == "" {
		return nil, fmt.Errorf("pack name is required: %w", domain.ErrInvalidInput)
	}
	if len(input.ItemIDs) == 0 {
		return nil, fmt.Errorf("pack needs at least one item: %w", domain.ErrInvalidInput)
	}
	if len(input.ItemIDs) > s.cfg.MaxPackItemCount {
		return nil, fmt.Errorf("at most %d items per pack: %w", s.cfg.MaxPackItemCount, domain.ErrInvalidInput)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("pack price must be non-negative: %w", domain.ErrInvalidInput)
	}

	shares, err := s.validatePackShares(caller, input.RoyaltyFraction, input.ExtraShares)
	if err != nil {
		return nil, err
	}

	var pack schema.NftPack
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		free, err := keyFree(tx, domain.RegistryNFTPackName, input.Name)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrExistPackName
		}

		items := itemledger.New(tx)

		// Validation pass: every item must be sendable by the caller and
		// recorded for the caller in the packable index before any write.
		loaded := make([]*schema.Item, 0, len(input.ItemIDs))
		for _, itemID := range input.ItemIDs {
			item, err := items.LoadItem(ctx, itemID)
			if err != nil {
				return err
			}
			if err := items.AuthorizeSend(ctx, caller, item); err != nil {
				return err
			}

			var packable schema.PackableItem
			err = tx.Where("item_id = ?", itemID).First(&packable).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrItemNotFound
				}
				return fmt.Errorf("failed to load packable index row: %w", err)
			}
			if packable.CurrentOwner != caller {
				return domain.ErrNotNftOwner
			}

			loaded = append(loaded, item)
		}

		// Park every item at the vault and drop its approvals
		for _, item := range loaded {
			if err := items.TransferOwner(ctx, item.ItemID, s.cfg.VaultAddress); err != nil {
				return err
			}
			if err := items.ClearApprovals(ctx, item.ItemID); err != nil {
				return err
			}
		}

		packID, err := nextPackID(tx, domain.PackKindNFT)
		if err != nil {
			return err
		}

		pack = schema.NftPack{
			PackID:        packID,
			Name:          input.Name,
			ItemCount:     len(input.ItemIDs),
			Items:         datatypes.NewJSONSlice(input.ItemIDs),
			MintedBy:      caller,
			CurrentOwner:  caller,
			CurrentPrice:  input.Price,
			PreviousPrice: decimal.Zero,
			ForSale:       true,
			RoyaltyOwners: shareOwners(shares),
			Approvals:     datatypes.JSONSlice[string]{},
		}
		if err := tx.Create(&pack).Error; err != nil {
			return fmt.Errorf("failed to create pack: %w", err)
		}

		if err := reserveKey(tx, domain.RegistryNFTPackName, input.Name, domain.ErrExistPackName); err != nil {
			return err
		}
		if err := incPackBalance(tx, domain.PackKindNFT, caller); err != nil {
			return err
		}
		return writeRoyaltyEntries(tx, domain.PackKindNFT, packID, shares)
	})
	if err != nil {
		return nil, err
	}

	return &pack, nil
}

// loadNftPackForUpdate loads a pack row with a row lock for mutation
func loadNftPackForUpdate(tx *gorm.DB, packID uint64) (*schema.NftPack, error) {
	var pack schema.NftPack
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pack_id = ?", packID).
		First(&pack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPackNotFound
		}
		return nil, fmt.Errorf("failed to load pack: %w", err)
	}
	return &pack, nil
}

// UnpackNftPack dissolves a pack back to its items. Precondition order is
// part of the contract: balance, then ownership, then the caller's royalty
// entry, then vault custody of every composed item.
func (s *pgStore) UnpackNftPack(ctx context.Context, caller string, packID uint64) (*schema.NftPack, error) {
	caller = domain.NormalizeAddress(caller)

	var pack *schema.NftPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := packBalance(tx, domain.PackKindNFT, caller)
		if err != nil {
			return err
		}
		if count < 1 {
			return domain.ErrNoBalance
		}

		pack, err = loadNftPackForUpdate(tx, packID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller {
			return domain.ErrNotOwner
		}

		var fee schema.RoyaltyFee
		err = tx.Where("kind = ? AND pack_id = ? AND beneficiary = ?", domain.PackKindNFT, packID, caller).
			First(&fee).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNoPackRoyalty
			}
			return fmt.Errorf("failed to load royalty entry: %w", err)
		}

		items := itemledger.New(tx)
		loaded := make([]*schema.Item, 0, len(pack.Items))
		for _, itemID := range pack.Items {
			item, err := items.LoadItem(ctx, itemID)
			if err != nil {
				return err
			}
			if item.Owner != s.cfg.VaultAddress {
				return domain.ErrInvalidItemOwner
			}
			loaded = append(loaded, item)
		}

		for _, item := range loaded {
			if err := items.TransferOwner(ctx, item.ItemID, caller); err != nil {
				return err
			}
			if err := items.ClearApprovals(ctx, item.ItemID); err != nil {
				return err
			}
		}

		if err := releaseKey(tx, domain.RegistryNFTPackName, pack.Name); err != nil {
			return err
		}
		if err := decPackBalance(tx, domain.PackKindNFT, caller); err != nil {
			return err
		}
		err = tx.Where("kind = ? AND pack_id = ?", domain.PackKindNFT, packID).
			Delete(&schema.RoyaltyFee{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete royalty entries: %w", err)
		}
		if err := tx.Delete(&schema.NftPack{}, "pack_id = ?", packID).Error; err != nil {
			return fmt.Errorf("failed to delete pack: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pack, nil
}

// ApproveNftPack authorizes a spender to pull-transfer the pack. Repeated
// approvals for the same spender dedupe to one entry.
func (s *pgStore) ApproveNftPack(ctx context.Context, caller string, packID uint64, spender string) (*schema.NftPack, error) {
	caller = domain.NormalizeAddress(caller)
	if !domain.ValidAddress(spender) {
		return nil, fmt.Errorf("invalid spender address %q: %w", spender, domain.ErrInvalidInput)
	}
	spender = domain.NormalizeAddress(spender)

	var pack *schema.NftPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadNftPackForUpdate(tx, packID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller {
			return domain.ErrNotOwner
		}

		for _, approved := range pack.Approvals {
			if approved == spender {
				return nil
			}
		}
		pack.Approvals = append(pack.Approvals, spender)

		if err := tx.Save(pack).Error; err != nil {
			return fmt.Errorf("failed to save pack approvals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pack, nil
}

// TransferNftPack moves pack ownership from from to to. The caller must be in
// the pack's approval set; the set is cleared on success so approvals are
// single-use.
func (s *pgStore) TransferNftPack(ctx context.Context, caller string, packID uint64, from string, to string) (*schema.NftPack, error) {
	caller = domain.NormalizeAddress(caller)
	from = domain.NormalizeAddress(from)
	if !domain.ValidAddress(to) {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, domain.ErrInvalidInput)
	}
	to = domain.NormalizeAddress(to)

	var pack *schema.NftPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadNftPackForUpdate(tx, packID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != from {
			return domain.ErrNotOwner
		}

		approved := false
		for _, spender := range pack.Approvals {
			if spender == caller {
				approved = true
				break
			}
		}
		if !approved {
			return domain.ErrNotApproved
		}

		previous := pack.CurrentOwner
		pack.PreviousOwner = &previous
		pack.CurrentOwner = to
		pack.PreviousPrice = pack.CurrentPrice
		pack.TransferCount++
		pack.Approvals = datatypes.JSONSlice[string]{}

		if err := decPackBalance(tx, domain.PackKindNFT, from); err != nil {
			return err
		}
		if err := incPackBalance(tx, domain.PackKindNFT, to); err != nil {
			return err
		}

		if err := tx.Save(pack).Error; err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pack, nil
}

// UpdateNftPackSale repositions the pack's asking price and sale flag. This is
// the only path by which the current price can rise above the previous price
// between transfers.
func (s *pgStore) UpdateNftPackSale(ctx context.Context, caller string, packID uint64, price decimal.Decimal, forSale bool) (*schema.NftPack, error) {
	caller = domain.NormalizeAddress(caller)
	if price.IsNegative() {
		return nil, fmt.Errorf("pack price must be non-negative: %w", domain.ErrInvalidInput)
	}

	var pack *schema.NftPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadNftPackForUpdate(tx, packID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller {
			return domain.ErrNotOwner
		}

		pack.CurrentPrice = price
		pack.ForSale = forSale

		if err := tx.Save(pack).Error; err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pack, nil
}

// BuyNftPack settles a pack sale: the settlement batch is computed, recorded,
// and returned, and the pack's price history advances. The precondition
// matches the observed contract: the caller must be the recorded current
// owner and the attached payment must cover the asking price.
func (s *pgStore) BuyNftPack(ctx context.Context, input BuyPackInput) (*BuyNftPackResult, error) {
	caller := domain.NormalizeAddress(input.Caller)

	var result BuyNftPackResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pack, err := loadNftPackForUpdate(tx, input.PackID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller || input.Payment.LessThan(pack.CurrentPrice) {
			return domain.ErrInsufficientFunds
		}

		shares, err := royaltyShares(tx, domain.PackKindNFT, input.PackID, pack.RoyaltyOwners)
		if err != nil {
			return err
		}

		batchID := ulid.Make().String()
		batch, err := s.engine.Settle(batchID, settlement.Params{
			Asset:         s.cfg.SettlementAsset,
			FeeRate:       s.cfg.FeeRate,
			FeeRecipient:  s.cfg.FeeRecipient,
			Seller:        pack.CurrentOwner,
			Payment:       input.Payment,
			CurrentPrice:  pack.CurrentPrice,
			PreviousPrice: pack.PreviousPrice,
			Shares:        shares,
		})
		if err != nil {
			return err
		}

		if err := saveSettlementRecord(tx, domain.PackKindNFT, input.PackID, caller, input.Payment, batch); err != nil {
			return err
		}

		pack.PreviousPrice = pack.CurrentPrice
		if err := tx.Save(pack).Error; err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}

		result = BuyNftPackResult{Pack: pack, Batch: batch}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// saveSettlementRecord persists the emitted batch as the settlement audit row
func saveSettlementRecord(tx *gorm.DB, kind domain.PackKind, packID uint64, buyer string, paymentAmount decimal.Decimal, batch *domain.SettlementBatch) error {
	instructions, err := json.Marshal(batch.Instructions)
	if err != nil {
		return fmt.Errorf("failed to marshal instructions: %w", err)
	}

	record := schema.SettlementRecord{
		BatchID:      batch.BatchID,
		Kind:         kind,
		PackID:       packID,
		Buyer:        buyer,
		Payment:      paymentAmount,
		GrossFee:     batch.GrossFee,
		Instructions: instructions,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create settlement record: %w", err)
	}
	return nil
}

// GetNftPack retrieves a pack by id, nil when absent
func (s *pgStore) GetNftPack(ctx context.Context, packID uint64) (*schema.NftPack, error) {
	var pack schema.NftPack
	err := s.db.WithContext(ctx).Where("pack_id = ?", packID).First(&pack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return &pack, nil
}

// ListNftPacksByOwner lists live packs currently owned by an address
func (s *pgStore) ListNftPacksByOwner(ctx context.Context, owner string) ([]*schema.NftPack, error) {
	var packs []*schema.NftPack
	err := s.db.WithContext(ctx).
		Where("current_owner = ?", domain.NormalizeAddress(owner)).
		Order("pack_id").
		Find(&packs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	return packs, nil
}
