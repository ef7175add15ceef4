// Package itemledger exposes the single-item ownership/approval registry the
// pack core collaborates with. The core calls only the Ledger interface; the
// GORM implementation here binds to whatever transaction handle it is given,
// so its writes share the caller's atomicity scope.
package itemledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// Ledger defines the item ledger collaborator interface
type Ledger interface {
	// LoadItem retrieves an item by id
	LoadItem(ctx context.Context, itemID string) (*schema.Item, error)
	// AuthorizeSend checks that the caller may move the item: owner, an
	// unexpired approval, or an unexpired operator grant
	AuthorizeSend(ctx context.Context, caller string, item *schema.Item) error
	// TransferOwner reassigns the item's owner
	TransferOwner(ctx context.Context, itemID string, newOwner string) error
	// ClearApprovals removes every approval from the item
	ClearApprovals(ctx context.Context, itemID string) error
}

type gormLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates an item ledger bound to the given database handle. Pass a
// transaction handle to scope the ledger's writes to that transaction.
func New(db *gorm.DB) Ledger {
	return &gormLedger{db: db, now: time.Now}
}

func (l *gormLedger) LoadItem(ctx context.Context, itemID string) (*schema.Item, error) {
	var item schema.Item
	err := l.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return &item, nil
}

func (l *gormLedger) AuthorizeSend(ctx context.Context, caller string, item *schema.Item) error {
	if item.Owner == caller {
		return nil
	}

	now := l.now()
	for _, approval := range item.Approvals {
		if approval.Spender == caller && !approval.Expired(now) {
			return nil
		}
	}

	var grant schema.OperatorGrant
	err := l.db.WithContext(ctx).
		Where("granter = ? AND operator = ?", item.Owner, caller).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("failed to load operator grant: %w", err)
	}
	if grant.Expired(now) {
		return domain.ErrUnauthorized
	}

	return nil
}

func (l *gormLedger) TransferOwner(ctx context.Context, itemID string, newOwner string) error {
	result := l.db.WithContext(ctx).
		Model(&schema.Item{}).
		Where("item_id = ?", itemID).
		Update("owner", newOwner)
	if result.Error != nil {
		return fmt.Errorf("failed to transfer item owner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (l *gormLedger) ClearApprovals(ctx context.Context, itemID string) error {
	err := l.db.WithContext(ctx).
		Model(&schema.Item{}).
		Where("item_id = ?", itemID).
		Update("approvals", datatypes.JSONSlice[schema.Approval]{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear item approvals: %w", err)
	}
	return nil
}
