package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/settlement"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// CreateTokenPack packs a fungible allocation into a new token pack. The
// state machine mirrors NFT packs; only the composition differs.
func (s *pgStore) CreateTokenPack(ctx context.Context, input CreateTokenPackInput) (*schema.TokenPack, error) {
	if !domain.ValidAddress(input.Caller) {
		return nil, fmt.Errorf("invalid caller address %q: %w", input.Caller, domain.ErrInvalidInput)
	}
	caller := domain.NormalizeAddress(input.Caller)

	if input.Name == "" {
		return nil, fmt.Errorf("pack name is required: %w", domain.ErrInvalidInput)
	}
	if !domain.ValidAddress(input.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q: %w", input.TokenAddress, domain.ErrInvalidInput)
	}
	if !input.TokenAmount.IsPositive() {
		return nil, fmt.Errorf("token amount must be positive: %w", domain.ErrInvalidInput)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("pack price must be non-negative: %w", domain.ErrInvalidInput)
	}

	shares, err := s.validatePackShares(caller, input.RoyaltyFraction, input.ExtraShares)
	if err != nil {
		return nil, err
	}

	var pack schema.TokenPack
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		free, err := keyFree(tx, domain.RegistryTokenPackName, input.Name)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrExistPackName
		}

		packID, err := nextPackID(tx, domain.PackKindToken)
		if err != nil {
			return err
		}

		pack = schema.TokenPack{
			PackID:        packID,
			Name:          input.Name,
			TokenAddress:  domain.NormalizeAddress(input.TokenAddress),
			TokenAmount:   input.TokenAmount,
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

		if err := reserveKey(tx, domain.RegistryTokenPackName, input.Name, domain.ErrExistPackName); err != nil {
			return err
		}
		if err := incPackBalance(tx, domain.PackKindToken, caller); err != nil {
			return err
		}
		return writeRoyaltyEntries(tx, domain.PackKindToken, packID, shares)
	})
	if err != nil {
		return nil, err
	}

	return &pack, nil
}

func loadTokenPackForUpdate(tx *gorm.DB, packID uint64) (*schema.TokenPack, error) {
	var pack schema.TokenPack
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

// UnpackTokenPack dissolves a token pack and emits the instruction returning
// the allocation to the caller. Precondition order matches the NFT path minus
// the item custody check, which has no token-pack analogue.
func (s *pgStore) UnpackTokenPack(ctx context.Context, caller string, packID uint64) (*UnpackTokenPackResult, error) {
	caller = domain.NormalizeAddress(caller)

	var result UnpackTokenPackResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := packBalance(tx, domain.PackKindToken, caller)
		if err != nil {
			return err
		}
		if count < 1 {
			return domain.ErrNoBalance
		}

		pack, err := loadTokenPackForUpdate(tx, packID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller {
			return domain.ErrNotOwner
		}

		var fee schema.RoyaltyFee
		err = tx.Where("kind = ? AND pack_id = ? AND beneficiary = ?", domain.PackKindToken, packID, caller).
			First(&fee).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNoPackRoyalty
			}
			return fmt.Errorf("failed to load royalty entry: %w", err)
		}

		if err := releaseKey(tx, domain.RegistryTokenPackName, pack.Name); err != nil {
			return err
		}
		if err := decPackBalance(tx, domain.PackKindToken, caller); err != nil {
			return err
		}
		err = tx.Where("kind = ? AND pack_id = ?", domain.PackKindToken, packID).
			Delete(&schema.RoyaltyFee{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete royalty entries: %w", err)
		}
		if err := tx.Delete(&schema.TokenPack{}, "pack_id = ?", packID).Error; err != nil {
			return fmt.Errorf("failed to delete pack: %w", err)
		}

		result = UnpackTokenPackResult{
			Pack:   pack,
			Refund: s.payments.Build(pack.TokenAddress, pack.TokenAmount, caller),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ApproveTokenPack authorizes a spender to pull-transfer the pack
func (s *pgStore) ApproveTokenPack(ctx context.Context, caller string, packID uint64, spender string) (*schema.TokenPack, error) {
	caller = domain.NormalizeAddress(caller)
	if !domain.ValidAddress(spender) {
		return nil, fmt.Errorf("invalid spender address %q: %w", spender, domain.ErrInvalidInput)
	}
	spender = domain.NormalizeAddress(spender)

	var pack *schema.TokenPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadTokenPackForUpdate(tx, packID)
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

// TransferTokenPack moves pack ownership from from to to, clearing the
// approval set on success
func (s *pgStore) TransferTokenPack(ctx context.Context, caller string, packID uint64, from string, to string) (*schema.TokenPack, error) {
	caller = domain.NormalizeAddress(caller)
	from = domain.NormalizeAddress(from)
	if !domain.ValidAddress(to) {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, domain.ErrInvalidInput)
	}
	to = domain.NormalizeAddress(to)

	var pack *schema.TokenPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadTokenPackForUpdate(tx, packID)
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

		if err := decPackBalance(tx, domain.PackKindToken, from); err != nil {
			return err
		}
		if err := incPackBalance(tx, domain.PackKindToken, to); err != nil {
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

// UpdateTokenPackSale repositions the pack's asking price and sale flag
func (s *pgStore) UpdateTokenPackSale(ctx context.Context, caller string, packID uint64, price decimal.Decimal, forSale bool) (*schema.TokenPack, error) {
	caller = domain.NormalizeAddress(caller)
	if price.IsNegative() {
		return nil, fmt.Errorf("pack price must be non-negative: %w", domain.ErrInvalidInput)
	}

	var pack *schema.TokenPack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pack, err = loadTokenPackForUpdate(tx, packID)
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

// BuyTokenPack settles a token pack sale, recording the batch and advancing
// the pack's price history
func (s *pgStore) BuyTokenPack(ctx context.Context, input BuyPackInput) (*BuyTokenPackResult, error) {
	caller := domain.NormalizeAddress(input.Caller)

	var result BuyTokenPackResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pack, err := loadTokenPackForUpdate(tx, input.PackID)
		if err != nil {
			return err
		}
		if pack.CurrentOwner != caller || input.Payment.LessThan(pack.CurrentPrice) {
			return domain.ErrInsufficientFunds
		}

		shares, err := royaltyShares(tx, domain.PackKindToken, input.PackID, pack.RoyaltyOwners)
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

		if err := saveSettlementRecord(tx, domain.PackKindToken, input.PackID, caller, input.Payment, batch); err != nil {
			return err
		}

		pack.PreviousPrice = pack.CurrentPrice
		if err := tx.Save(pack).Error; err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}

		result = BuyTokenPackResult{Pack: pack, Batch: batch}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetTokenPack retrieves a token pack by id, nil when absent
func (s *pgStore) GetTokenPack(ctx context.Context, packID uint64) (*schema.TokenPack, error) {
	var pack schema.TokenPack
	err := s.db.WithContext(ctx).Where("pack_id = ?", packID).First(&pack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return &pack, nil
}

// ListTokenPacksByOwner lists live token packs currently owned by an address
func (s *pgStore) ListTokenPacksByOwner(ctx context.Context, owner string) ([]*schema.TokenPack, error) {
	var packs []*schema.TokenPack
	err := s.db.WithContext(ctx).
		Where("current_owner = ?", domain.NormalizeAddress(owner)).
		Order("pack_id").
		Find(&packs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	return packs, nil
}
