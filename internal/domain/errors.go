package domain

import "errors"

var (
	// ErrItemNotFound is returned when a referenced item does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrPackNotFound is returned when a referenced pack does not exist or was already dissolved
	ErrPackNotFound = errors.New("pack not found")

	// ErrUnauthorized is returned when the caller holds neither ownership, a valid
	// approval, nor a valid operator grant for the item
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExistItemURI is returned when an item uri is already reserved
	ErrExistItemURI = errors.New("item uri already exists")

	// ErrExistItemName is returned when an item name is already reserved
	ErrExistItemName = errors.New("item name already exists")

	// ErrExistPackName is returned when a pack name is already reserved
	ErrExistPackName = errors.New("pack name already exists")

	// ErrNotNftOwner is returned when the packable index records a different owner
	// for an item being packed
	ErrNotNftOwner = errors.New("not nft owner")

	// ErrNotOwner is returned when the caller is not the pack's current owner
	ErrNotOwner = errors.New("not pack owner")

	// ErrNotApproved is returned when the pack's approval set does not authorize the caller
	ErrNotApproved = errors.New("pack not approved")

	// ErrNoBalance is returned when the caller's pack balance counter is empty
	ErrNoBalance = errors.New("pack balance is not enough")

	// ErrNoPackRoyalty is returned when no royalty entry exists for (pack, caller);
	// only an address recorded as a royalty owner for the pack may dissolve it
	ErrNoPackRoyalty = errors.New("no royalty entry for pack")

	// ErrInvalidItemOwner is returned when a packed item is not held by the vault
	// address, signaling the pack's contents were moved out-of-band
	ErrInvalidItemOwner = errors.New("packed item not held by vault")

	// ErrInsufficientFunds is returned when the attached payment is below the pack price
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceUnderflow is returned when a balance counter decrement would go negative
	ErrBalanceUnderflow = errors.New("pack balance underflow")

	// ErrApprovalExpired is returned when setting an approval or operator grant
	// whose expiry is already in the past
	ErrApprovalExpired = errors.New("approval already expired")

	// ErrItemAlreadyClaimed is returned when minting an item id that already exists
	ErrItemAlreadyClaimed = errors.New("item id already claimed")

	// ErrInvalidInput wraps operation input that fails validation before any
	// state is read or written
	ErrInvalidInput = errors.New("invalid input")
)
