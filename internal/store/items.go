package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/itemledger"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// MintItem mints a packable item: the item ledger row, its packable-index
// mirror, and both uniqueness reservations are created in one transaction
func (s *pgStore) MintItem(ctx context.Context, input MintItemInput) (*schema.Item, error) {
	if input.ItemID == "" {
		return nil, fmt.Errorf("item id is required: %w", domain.ErrInvalidInput)
	}
	if input.URI == "" || input.Name == "" {
		return nil, fmt.Errorf("item uri and name are required: %w", domain.ErrInvalidInput)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("item price must be non-negative: %w", domain.ErrInvalidInput)
	}

	// Addresses are stored checksummed so later pack-side comparisons hold
	// regardless of the caller's casing
	caller := domain.NormalizeAddress(input.Caller)
	owner := caller
	if input.Owner != "" {
		owner = domain.NormalizeAddress(input.Owner)
	}

	item := schema.Item{
		ItemID:    input.ItemID,
		Owner:     owner,
		Approvals: datatypes.JSONSlice[schema.Approval]{},
		URI:       input.URI,
		Name:      input.Name,
		Metadata:  datatypes.JSON(input.Metadata),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserveKey(tx, domain.RegistryItemURI, input.URI, domain.ErrExistItemURI); err != nil {
			return err
		}
		if err := reserveKey(tx, domain.RegistryItemName, input.Name, domain.ErrExistItemName); err != nil {
			return err
		}

		if err := tx.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrItemAlreadyClaimed
			}
			return fmt.Errorf("failed to create item: %w", err)
		}

		packable := schema.PackableItem{
			ItemID:       input.ItemID,
			Name:         input.Name,
			URI:          input.URI,
			MintedBy:     caller,
			CurrentOwner: owner,
			Price:        input.Price,
			ForSale:      true,
		}
		if err := tx.Create(&packable).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrItemAlreadyClaimed
			}
			return fmt.Errorf("failed to create packable index row: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// BurnItem destroys an item the caller may send, freeing its reservations
func (s *pgStore) BurnItem(ctx context.Context, caller string, itemID string) error {
	caller = domain.NormalizeAddress(caller)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := itemledger.New(tx)

		item, err := items.LoadItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := items.AuthorizeSend(ctx, caller, item); err != nil {
			return err
		}

		if err := releaseKey(tx, domain.RegistryItemURI, item.URI); err != nil {
			return err
		}
		if err := releaseKey(tx, domain.RegistryItemName, item.Name); err != nil {
			return err
		}

		if err := tx.Where("item_id = ?", itemID).Delete(&schema.PackableItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete packable index row: %w", err)
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&schema.Item{}).Error; err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}

		return nil
	})
}

// ApproveItem grants a spender a pull-transfer approval; any prior approval
// for the same spender is replaced
func (s *pgStore) ApproveItem(ctx context.Context, caller string, itemID string, spender string, expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return domain.ErrApprovalExpired
	}
	caller = domain.NormalizeAddress(caller)
	spender = domain.NormalizeAddress(spender)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateItemApprovals(ctx, tx, caller, itemID, spender, expiresAt, true)
	})
}

// RevokeItemApproval removes a spender's approval from an item
func (s *pgStore) RevokeItemApproval(ctx context.Context, caller string, itemID string, spender string) error {
	caller = domain.NormalizeAddress(caller)
	spender = domain.NormalizeAddress(spender)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateItemApprovals(ctx, tx, caller, itemID, spender, nil, false)
	})
}

// updateItemApprovals rewrites the approval list, removing any entry for the
// spender and re-adding it when add is set
func updateItemApprovals(ctx context.Context, tx *gorm.DB, caller string, itemID string, spender string, expiresAt *time.Time, add bool) error {
	items := itemledger.New(tx)

	item, err := items.LoadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := canApprove(tx, caller, item); err != nil {
		return err
	}

	approvals := make(datatypes.JSONSlice[schema.Approval], 0, len(item.Approvals)+1)
	for _, approval := range item.Approvals {
		if approval.Spender != spender {
			approvals = append(approvals, approval)
		}
	}
	if add {
		approvals = append(approvals, schema.Approval{Spender: spender, ExpiresAt: expiresAt})
	}

	err = tx.Model(&schema.Item{}).
		Where("item_id = ?", itemID).
		Update("approvals", approvals).Error
	if err != nil {
		return fmt.Errorf("failed to update item approvals: %w", err)
	}
	return nil
}

// canApprove checks that the caller is the item's owner or an unexpired operator
func canApprove(tx *gorm.DB, caller string, item *schema.Item) error {
	if item.Owner == caller {
		return nil
	}

	var grant schema.OperatorGrant
	err := tx.Where("granter = ? AND operator = ?", item.Owner, caller).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("failed to load operator grant: %w", err)
	}
	if grant.Expired(time.Now()) {
		return domain.ErrUnauthorized
	}
	return nil
}

// SetOperator grants an operator full control over the granter's items
func (s *pgStore) SetOperator(ctx context.Context, granter string, operator string, expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return domain.ErrApprovalExpired
	}

	grant := schema.OperatorGrant{
		Granter:   domain.NormalizeAddress(granter),
		Operator:  domain.NormalizeAddress(operator),
		ExpiresAt: expiresAt,
	}
	err := s.db.WithContext(ctx).Save(&grant).Error
	if err != nil {
		return fmt.Errorf("failed to set operator: %w", err)
	}
	return nil
}

// RevokeOperator removes an operator grant
func (s *pgStore) RevokeOperator(ctx context.Context, granter string, operator string) error {
	err := s.db.WithContext(ctx).
		Where("granter = ? AND operator = ?", domain.NormalizeAddress(granter), domain.NormalizeAddress(operator)).
		Delete(&schema.OperatorGrant{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke operator: %w", err)
	}
	return nil
}

// TransferItem moves a single item to a recipient, clears its approvals, and
// advances the packable-index ownership history
func (s *pgStore) TransferItem(ctx context.Context, caller string, recipient string, itemID string) error {
	caller = domain.NormalizeAddress(caller)
	recipient = domain.NormalizeAddress(recipient)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := itemledger.New(tx)

		item, err := items.LoadItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := items.AuthorizeSend(ctx, caller, item); err != nil {
			return err
		}

		if err := items.TransferOwner(ctx, itemID, recipient); err != nil {
			return err
		}
		if err := items.ClearApprovals(ctx, itemID); err != nil {
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

		previous := packable.CurrentOwner
		packable.PreviousOwner = &previous
		packable.CurrentOwner = recipient
		packable.TransferCount++
		if err := tx.Save(&packable).Error; err != nil {
			return fmt.Errorf("failed to update packable index row: %w", err)
		}

		return nil
	})
}

// GetItem retrieves an item by id, nil when absent
func (s *pgStore) GetItem(ctx context.Context, itemID string) (*schema.Item, error) {
	var item schema.Item
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListPackableItemsByOwner lists packable-index rows recorded for an owner
func (s *pgStore) ListPackableItemsByOwner(ctx context.Context, owner string) ([]*schema.PackableItem, error) {
	var items []*schema.PackableItem
	err := s.db.WithContext(ctx).
		Where("current_owner = ?", domain.NormalizeAddress(owner)).
		Order("item_id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packable items: %w", err)
	}
	return items, nil
}
