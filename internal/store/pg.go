package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/payment"
	"github.com/nftmx/pack-ledger/internal/settlement"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// Config holds the ledger-wide settlement and limit configuration
type Config struct {
	// VaultAddress is the pack-holding custody address items are parked at
	// for the lifetime of their pack
	VaultAddress string
	// FeeRate is the protocol fee rate applied to every settlement
	FeeRate decimal.Decimal
	// FeeRecipient receives the protocol fee
	FeeRecipient string
	// SettlementAsset is the settlement currency descriptor
	SettlementAsset string
	// MaxPackItemCount caps the number of items per pack
	MaxPackItemCount int
	// MaxRoyaltyOwners caps the number of royalty beneficiaries per pack
	MaxRoyaltyOwners int
}

type pgStore struct {
	db       *gorm.DB
	cfg      Config
	engine   *settlement.Engine
	payments payment.Builder
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, cfg Config, engine *settlement.Engine, payments payment.Builder) Store {
	if cfg.MaxPackItemCount == 0 {
		cfg.MaxPackItemCount = 10
	}
	if cfg.MaxRoyaltyOwners == 0 {
		cfg.MaxRoyaltyOwners = 10
	}
	// Custody comparisons run against stored checksummed owners
	cfg.VaultAddress = domain.NormalizeAddress(cfg.VaultAddress)
	cfg.FeeRecipient = domain.NormalizeAddress(cfg.FeeRecipient)
	return &pgStore{db: db, cfg: cfg, engine: engine, payments: payments}
}

// Migrate creates the persisted layout and initializes the per-kind pack-id
// counters to zero at bootstrap
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&schema.Item{},
		&schema.OperatorGrant{},
		&schema.PackableItem{},
		&schema.NftPack{},
		&schema.TokenPack{},
		&schema.RegistryEntry{},
		&schema.PackBalance{},
		&schema.RoyaltyFee{},
		&schema.KeyValueStore{},
		&schema.SettlementRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, kind := range []domain.PackKind{domain.PackKindNFT, domain.PackKindToken} {
		kv := schema.KeyValueStore{Key: packCounterKey(kind), Value: "0"}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&kv).Error; err != nil {
			return fmt.Errorf("failed to seed pack counter: %w", err)
		}
	}

	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to safe defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

func packCounterKey(kind domain.PackKind) string {
	return fmt.Sprintf("pack_counter:%s", kind)
}

// reserveKey inserts a presence flag into one uniqueness registry, returning
// conflictErr when the key is already reserved
func reserveKey(tx *gorm.DB, registry domain.Registry, key string, conflictErr error) error {
	entry := schema.RegistryEntry{Registry: registry, Key: key}
	if err := tx.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflictErr
		}
		return fmt.Errorf("failed to reserve %s key: %w", registry, err)
	}
	return nil
}

// releaseKey unconditionally removes a presence flag from one registry
func releaseKey(tx *gorm.DB, registry domain.Registry, key string) error {
	err := tx.Where("registry = ? AND key = ?", registry, key).
		Delete(&schema.RegistryEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to release %s key: %w", registry, err)
	}
	return nil
}

// keyFree reports whether a key is unreserved in one registry
func keyFree(tx *gorm.DB, registry domain.Registry, key string) (bool, error) {
	var count int64
	err := tx.Model(&schema.RegistryEntry{}).
		Where("registry = ? AND key = ?", registry, key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s key: %w", registry, err)
	}
	return count == 0, nil
}

// nextPackID advances the per-kind sequential pack-id counter and returns the
// new id. Ids are 1-based and never reused even after unpack.
func nextPackID(tx *gorm.DB, kind domain.PackKind) (uint64, error) {
	key := packCounterKey(kind)

	var kv schema.KeyValueStore
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("key = ?", key).
		First(&kv).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("failed to load pack counter: %w", err)
		}
		kv = schema.KeyValueStore{Key: key, Value: "0"}
	}

	current, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse pack counter: %w", err)
	}

	next := current + 1
	kv.Value = strconv.FormatUint(next, 10)
	if err := tx.Save(&kv).Error; err != nil {
		return 0, fmt.Errorf("failed to advance pack counter: %w", err)
	}

	return next, nil
}

// incPackBalance increments the (kind, owner) live-pack counter, creating it
// at 1 when absent
func incPackBalance(tx *gorm.DB, kind domain.PackKind, owner string) error {
	balance := schema.PackBalance{Kind: kind, Owner: owner, Count: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("pack_balances.count + 1")}),
	}).Create(&balance).Error
	if err != nil {
		return fmt.Errorf("failed to increment pack balance: %w", err)
	}
	return nil
}

// decPackBalance decrements the (kind, owner) counter. A decrement below zero
// is a contract violation and fails the whole operation.
func decPackBalance(tx *gorm.DB, kind domain.PackKind, owner string) error {
	var balance schema.PackBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND owner = ?", kind, owner).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrBalanceUnderflow
		}
		return fmt.Errorf("failed to load pack balance: %w", err)
	}
	if balance.Count == 0 {
		return domain.ErrBalanceUnderflow
	}

	balance.Count--
	if err := tx.Save(&balance).Error; err != nil {
		return fmt.Errorf("failed to decrement pack balance: %w", err)
	}
	return nil
}

func packBalance(tx *gorm.DB, kind domain.PackKind, owner string) (uint64, error) {
	var balance schema.PackBalance
	err := tx.Where("kind = ? AND owner = ?", kind, owner).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get pack balance: %w", err)
	}
	return balance.Count, nil
}

// royaltyShares resolves the fraction for every address in owners, preserving
// order. A missing entry for a listed royalty owner means the pack's royalty
// ledger is incomplete and the lookup fails.
func royaltyShares(tx *gorm.DB, kind domain.PackKind, packID uint64, owners []string) ([]domain.RoyaltyShare, error) {
	shares := make([]domain.RoyaltyShare, 0, len(owners))
	for _, owner := range owners {
		var fee schema.RoyaltyFee
		err := tx.Where("kind = ? AND pack_id = ? AND beneficiary = ?", kind, packID, owner).
			First(&fee).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrNoPackRoyalty
			}
			return nil, fmt.Errorf("failed to load royalty entry: %w", err)
		}
		shares = append(shares, domain.RoyaltyShare{Beneficiary: owner, Fraction: fee.Fraction})
	}
	return shares, nil
}

// GetPackBalance returns the live-pack counter for (kind, owner)
func (s *pgStore) GetPackBalance(ctx context.Context, kind domain.PackKind, owner string) (uint64, error) {
	return packBalance(s.db.WithContext(ctx), kind, owner)
}

// GetRoyaltyShares returns the pack's royalty shares in royalty_owners order
func (s *pgStore) GetRoyaltyShares(ctx context.Context, kind domain.PackKind, packID uint64) ([]domain.RoyaltyShare, error) {
	var owners []string
	switch kind {
	case domain.PackKindNFT:
		pack, err := s.GetNftPack(ctx, packID)
		if err != nil {
			return nil, err
		}
		if pack == nil {
			return nil, domain.ErrPackNotFound
		}
		owners = pack.RoyaltyOwners
	case domain.PackKindToken:
		pack, err := s.GetTokenPack(ctx, packID)
		if err != nil {
			return nil, err
		}
		if pack == nil {
			return nil, domain.ErrPackNotFound
		}
		owners = pack.RoyaltyOwners
	default:
		return nil, fmt.Errorf("unknown pack kind %q", kind)
	}

	return royaltyShares(s.db.WithContext(ctx), kind, packID, owners)
}

// GetSettlementRecord retrieves an emitted settlement batch by id
func (s *pgStore) GetSettlementRecord(ctx context.Context, batchID string) (*schema.SettlementRecord, error) {
	var record schema.SettlementRecord
	err := s.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return &record, nil
}
