package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nftmx/pack-ledger/internal/api/rest/dto"
	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/logger"
	"github.com/nftmx/pack-ledger/internal/messaging"
	"github.com/nftmx/pack-ledger/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// MintItem mints a packable item
	// POST /api/v1/items
	MintItem(c *gin.Context)
	// BurnItem destroys an item the caller may send
	// POST /api/v1/items/:id/burn
	BurnItem(c *gin.Context)
	// ApproveItem grants a spender a pull-transfer approval on an item
	// POST /api/v1/items/:id/approve
	ApproveItem(c *gin.Context)
	// RevokeItemApproval removes a spender's approval from an item
	// POST /api/v1/items/:id/revoke
	RevokeItemApproval(c *gin.Context)
	// SetOperator grants an operator full control over the granter's items
	// POST /api/v1/operators
	SetOperator(c *gin.Context)
	// RevokeOperator removes an operator grant
	// POST /api/v1/operators/revoke
	RevokeOperator(c *gin.Context)
	// TransferItem moves a single item to a recipient
	// POST /api/v1/items/:id/transfer
	TransferItem(c *gin.Context)
	// GetItem retrieves an item by id
	// GET /api/v1/items/:id
	GetItem(c *gin.Context)
	// ListItems lists packable-index rows by owner
	// GET /api/v1/items?owner=<address>
	ListItems(c *gin.Context)

	// CreateNftPack packs items into a new NFT pack
	// POST /api/v1/packs/nft
	CreateNftPack(c *gin.Context)
	// UnpackNftPack dissolves a pack back to its items
	// POST /api/v1/packs/nft/:id/unpack
	UnpackNftPack(c *gin.Context)
	// ApproveNftPack authorizes a spender to pull-transfer the pack
	// POST /api/v1/packs/nft/:id/approve
	ApproveNftPack(c *gin.Context)
	// TransferNftPack moves pack ownership
	// POST /api/v1/packs/nft/:id/transfer
	TransferNftPack(c *gin.Context)
	// UpdateNftPackSale repositions the pack's asking price and sale flag
	// PUT /api/v1/packs/nft/:id/sale
	UpdateNftPackSale(c *gin.Context)
	// BuyNftPack settles a pack sale
	// POST /api/v1/packs/nft/:id/buy
	BuyNftPack(c *gin.Context)
	// GetNftPack retrieves a pack by id
	// GET /api/v1/packs/nft/:id
	GetNftPack(c *gin.Context)
	// ListNftPacks lists packs by owner
	// GET /api/v1/packs/nft?owner=<address>
	ListNftPacks(c *gin.Context)

	// CreateTokenPack packs a fungible allocation into a new token pack
	// POST /api/v1/packs/token
	CreateTokenPack(c *gin.Context)
	// UnpackTokenPack dissolves a token pack
	// POST /api/v1/packs/token/:id/unpack
	UnpackTokenPack(c *gin.Context)
	// ApproveTokenPack authorizes a spender to pull-transfer the pack
	// POST /api/v1/packs/token/:id/approve
	ApproveTokenPack(c *gin.Context)
	// TransferTokenPack moves pack ownership
	// POST /api/v1/packs/token/:id/transfer
	TransferTokenPack(c *gin.Context)
	// UpdateTokenPackSale repositions the pack's asking price and sale flag
	// PUT /api/v1/packs/token/:id/sale
	UpdateTokenPackSale(c *gin.Context)
	// BuyTokenPack settles a token pack sale
	// POST /api/v1/packs/token/:id/buy
	BuyTokenPack(c *gin.Context)
	// GetTokenPack retrieves a token pack by id
	// GET /api/v1/packs/token/:id
	GetTokenPack(c *gin.Context)
	// ListTokenPacks lists token packs by owner
	// GET /api/v1/packs/token?owner=<address>
	ListTokenPacks(c *gin.Context)

	// GetBalance returns the live-pack counter for (kind, owner)
	// GET /api/v1/balances/:kind/:owner
	GetBalance(c *gin.Context)
	// GetRoyaltyShares returns a pack's royalty shares
	// GET /api/v1/royalties/:kind/:id
	GetRoyaltyShares(c *gin.Context)
	// GetSettlementRecord retrieves an emitted settlement batch
	// GET /api/v1/settlements/:batch_id
	GetSettlementRecord(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store     store.Store
	publisher messaging.Publisher
}

// NewHandler creates a new REST API handler
func NewHandler(s store.Store, publisher messaging.Publisher) Handler {
	return &handler{store: s, publisher: publisher}
}

// publish emits a pack lifecycle event after the operation has committed.
// Publishing is best effort; a broker outage never fails the request.
func (h *handler) publish(ctx context.Context, event domain.PackEvent) {
	if h.publisher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := h.publisher.PublishEvent(ctx, &event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("kind", string(event.Kind)),
			zap.String("event_type", string(event.EventType)),
			zap.Uint64("pack_id", event.PackID),
		)
	}
}

func parsePackID(c *gin.Context) (uint64, bool) {
	packID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid pack id")
		return 0, false
	}
	return packID, true
}

// MintItem mints a packable item
func (h *handler) MintItem(c *gin.Context) {
	var req dto.MintItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	price, _ := dto.ParsePrice(req.Price)
	item, err := h.store.MintItem(c.Request.Context(), store.MintItemInput{
		Caller:   req.Caller,
		ItemID:   req.ItemID,
		Owner:    req.Owner,
		URI:      req.URI,
		Name:     req.Name,
		Price:    price,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewItemResponse(item))
}

// BurnItem destroys an item the caller may send
func (h *handler) BurnItem(c *gin.Context) {
	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.store.BurnItem(c.Request.Context(), req.Caller, c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ApproveItem grants a spender a pull-transfer approval on an item
func (h *handler) ApproveItem(c *gin.Context) {
	var req dto.ApproveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	err := h.store.ApproveItem(c.Request.Context(), req.Caller, c.Param("id"), req.Spender, req.ExpiresAt)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeItemApproval removes a spender's approval from an item
func (h *handler) RevokeItemApproval(c *gin.Context) {
	var req dto.ApproveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	err := h.store.RevokeItemApproval(c.Request.Context(), req.Caller, c.Param("id"), req.Spender)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetOperator grants an operator full control over the granter's items
func (h *handler) SetOperator(c *gin.Context) {
	var req dto.OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.store.SetOperator(c.Request.Context(), req.Granter, req.Operator, req.ExpiresAt); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeOperator removes an operator grant
func (h *handler) RevokeOperator(c *gin.Context) {
	var req dto.OperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.store.RevokeOperator(c.Request.Context(), req.Granter, req.Operator); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// TransferItem moves a single item to a recipient
func (h *handler) TransferItem(c *gin.Context) {
	var req dto.TransferItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.store.TransferItem(c.Request.Context(), req.Caller, req.Recipient, c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetItem retrieves an item by id
func (h *handler) GetItem(c *gin.Context) {
	item, err := h.store.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "Failed to get item")
		return
	}
	if item == nil {
		respondNotFound(c, "Item not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewItemResponse(item))
}

// ListItems lists packable-index rows by owner
func (h *handler) ListItems(c *gin.Context) {
	owner := c.Query("owner")
	if !domain.ValidAddress(owner) {
		respondBadRequest(c, "Valid owner address is required")
		return
	}

	items, err := h.store.ListPackableItemsByOwner(c.Request.Context(), domain.NormalizeAddress(owner))
	if err != nil {
		respondInternalError(c, err, "Failed to list items")
		return
	}

	c.JSON(http.StatusOK, dto.NewPackableItemListResponse(items))
}

// CreateNftPack packs items into a new NFT pack
func (h *handler) CreateNftPack(c *gin.Context) {
	var req dto.CreateNftPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	extras := make([]domain.RoyaltyShare, 0, len(req.ExtraShares))
	for _, share := range req.ExtraShares {
		converted, err := share.ToDomain()
		if err != nil {
			respondValidationError(c, err.Error())
			return
		}
		extras = append(extras, converted)
	}

	price, _ := dto.ParsePrice(req.Price)
	fraction, _ := decimal.NewFromString(req.RoyaltyFraction)

	pack, err := h.store.CreateNftPack(c.Request.Context(), store.CreatePackInput{
		Caller:          req.Caller,
		ItemIDs:         req.ItemIDs,
		Name:            req.Name,
		Price:           price,
		RoyaltyFraction: fraction,
		ExtraShares:     extras,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypePacked,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusCreated, dto.NewNftPackResponse(pack))
}

// UnpackNftPack dissolves a pack back to its items
func (h *handler) UnpackNftPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pack, err := h.store.UnpackNftPack(c.Request.Context(), req.Caller, packID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypeUnpacked,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewNftPackResponse(pack))
}

// ApproveNftPack authorizes a spender to pull-transfer the pack
func (h *handler) ApproveNftPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.ApprovePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pack, err := h.store.ApproveNftPack(c.Request.Context(), req.Caller, packID, req.Spender)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	spender := domain.NormalizeAddress(req.Spender)
	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypeApproved,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Recipient: &spender,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewNftPackResponse(pack))
}

// TransferNftPack moves pack ownership
func (h *handler) TransferNftPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.TransferPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pack, err := h.store.TransferNftPack(c.Request.Context(), req.Caller, packID, req.From, req.To)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypeTransferred,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Recipient: &pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewNftPackResponse(pack))
}

// UpdateNftPackSale repositions the pack's asking price and sale flag
func (h *handler) UpdateNftPackSale(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	forSale := true
	if req.ForSale != nil {
		forSale = *req.ForSale
	}

	pack, err := h.store.UpdateNftPackSale(c.Request.Context(), req.Caller, packID, req.PriceDecimal(), forSale)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypeSaleUpdated,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewNftPackResponse(pack))
}

// BuyNftPack settles a pack sale
func (h *handler) BuyNftPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.BuyPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.store.BuyNftPack(c.Request.Context(), store.BuyPackInput{
		Caller:  req.Caller,
		PackID:  packID,
		Payment: req.PaymentDecimal(),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypeBought,
		PackID:    result.Pack.PackID,
		PackName:  result.Pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Price:     result.Pack.CurrentPrice,
		BatchID:   result.Batch.BatchID,
	})

	c.JSON(http.StatusOK, dto.BuyPackResponse{
		Pack:       dto.NewNftPackResponse(result.Pack),
		Settlement: dto.NewSettlementBatchResponse(result.Batch),
	})
}

// GetNftPack retrieves a pack by id
func (h *handler) GetNftPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	pack, err := h.store.GetNftPack(c.Request.Context(), packID)
	if err != nil {
		respondInternalError(c, err, "Failed to get pack")
		return
	}
	if pack == nil {
		respondNotFound(c, "Pack not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewNftPackResponse(pack))
}

// ListNftPacks lists packs by owner
func (h *handler) ListNftPacks(c *gin.Context) {
	owner := c.Query("owner")
	if !domain.ValidAddress(owner) {
		respondBadRequest(c, "Valid owner address is required")
		return
	}

	packs, err := h.store.ListNftPacksByOwner(c.Request.Context(), owner)
	if err != nil {
		respondInternalError(c, err, "Failed to list packs")
		return
	}

	c.JSON(http.StatusOK, dto.NewNftPackListResponse(packs))
}

// CreateTokenPack packs a fungible allocation into a new token pack
func (h *handler) CreateTokenPack(c *gin.Context) {
	var req dto.CreateTokenPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	extras := make([]domain.RoyaltyShare, 0, len(req.ExtraShares))
	for _, share := range req.ExtraShares {
		converted, err := share.ToDomain()
		if err != nil {
			respondValidationError(c, err.Error())
			return
		}
		extras = append(extras, converted)
	}

	price, _ := dto.ParsePrice(req.Price)
	amount, _ := decimal.NewFromString(req.TokenAmount)
	fraction, _ := decimal.NewFromString(req.RoyaltyFraction)

	pack, err := h.store.CreateTokenPack(c.Request.Context(), store.CreateTokenPackInput{
		Caller:          req.Caller,
		TokenAddress:    req.TokenAddress,
		TokenAmount:     amount,
		Name:            req.Name,
		Price:           price,
		RoyaltyFraction: fraction,
		ExtraShares:     extras,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypePacked,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusCreated, dto.NewTokenPackResponse(pack))
}

// UnpackTokenPack dissolves a token pack
func (h *handler) UnpackTokenPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.store.UnpackTokenPack(c.Request.Context(), req.Caller, packID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypeUnpacked,
		PackID:    result.Pack.PackID,
		PackName:  result.Pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Price:     result.Pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.UnpackTokenPackResponse{
		Pack:   dto.NewTokenPackResponse(result.Pack),
		Refund: dto.NewPaymentInstructionResponse(result.Refund),
	})
}

// ApproveTokenPack authorizes a spender to pull-transfer the pack
func (h *handler) ApproveTokenPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.ApprovePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pack, err := h.store.ApproveTokenPack(c.Request.Context(), req.Caller, packID, req.Spender)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	spender := domain.NormalizeAddress(req.Spender)
	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypeApproved,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Recipient: &spender,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewTokenPackResponse(pack))
}

// TransferTokenPack moves pack ownership
func (h *handler) TransferTokenPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.TransferPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pack, err := h.store.TransferTokenPack(c.Request.Context(), req.Caller, packID, req.From, req.To)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypeTransferred,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Recipient: &pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewTokenPackResponse(pack))
}

// UpdateTokenPackSale repositions the pack's asking price and sale flag
func (h *handler) UpdateTokenPackSale(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	forSale := true
	if req.ForSale != nil {
		forSale = *req.ForSale
	}

	pack, err := h.store.UpdateTokenPackSale(c.Request.Context(), req.Caller, packID, req.PriceDecimal(), forSale)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypeSaleUpdated,
		PackID:    pack.PackID,
		PackName:  pack.Name,
		Actor:     pack.CurrentOwner,
		Price:     pack.CurrentPrice,
	})

	c.JSON(http.StatusOK, dto.NewTokenPackResponse(pack))
}

// BuyTokenPack settles a token pack sale
func (h *handler) BuyTokenPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	var req dto.BuyPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.store.BuyTokenPack(c.Request.Context(), store.BuyPackInput{
		Caller:  req.Caller,
		PackID:  packID,
		Payment: req.PaymentDecimal(),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c.Request.Context(), domain.PackEvent{
		Kind:      domain.PackKindToken,
		EventType: domain.PackEventTypeBought,
		PackID:    result.Pack.PackID,
		PackName:  result.Pack.Name,
		Actor:     domain.NormalizeAddress(req.Caller),
		Price:     result.Pack.CurrentPrice,
		BatchID:   result.Batch.BatchID,
	})

	c.JSON(http.StatusOK, dto.BuyPackResponse{
		Pack:       dto.NewTokenPackResponse(result.Pack),
		Settlement: dto.NewSettlementBatchResponse(result.Batch),
	})
}

// GetTokenPack retrieves a token pack by id
func (h *handler) GetTokenPack(c *gin.Context) {
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	pack, err := h.store.GetTokenPack(c.Request.Context(), packID)
	if err != nil {
		respondInternalError(c, err, "Failed to get pack")
		return
	}
	if pack == nil {
		respondNotFound(c, "Pack not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenPackResponse(pack))
}

// ListTokenPacks lists token packs by owner
func (h *handler) ListTokenPacks(c *gin.Context) {
	owner := c.Query("owner")
	if !domain.ValidAddress(owner) {
		respondBadRequest(c, "Valid owner address is required")
		return
	}

	packs, err := h.store.ListTokenPacksByOwner(c.Request.Context(), owner)
	if err != nil {
		respondInternalError(c, err, "Failed to list packs")
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenPackListResponse(packs))
}

// GetBalance returns the live-pack counter for (kind, owner)
func (h *handler) GetBalance(c *gin.Context) {
	kind := domain.PackKind(c.Param("kind"))
	if !domain.IsValidPackKind(kind) {
		respondBadRequest(c, "Invalid pack kind")
		return
	}
	owner := c.Param("owner")
	if !domain.ValidAddress(owner) {
		respondBadRequest(c, "Valid owner address is required")
		return
	}
	owner = domain.NormalizeAddress(owner)

	count, err := h.store.GetPackBalance(c.Request.Context(), kind, owner)
	if err != nil {
		respondInternalError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Kind: kind, Owner: owner, Count: count})
}

// GetRoyaltyShares returns a pack's royalty shares
func (h *handler) GetRoyaltyShares(c *gin.Context) {
	kind := domain.PackKind(c.Param("kind"))
	if !domain.IsValidPackKind(kind) {
		respondBadRequest(c, "Invalid pack kind")
		return
	}
	packID, ok := parsePackID(c)
	if !ok {
		return
	}

	shares, err := h.store.GetRoyaltyShares(c.Request.Context(), kind, packID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoyaltySharesResponse(kind, packID, shares))
}

// GetSettlementRecord retrieves an emitted settlement batch
func (h *handler) GetSettlementRecord(c *gin.Context) {
	record, err := h.store.GetSettlementRecord(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		respondInternalError(c, err, "Failed to get settlement record")
		return
	}
	if record == nil {
		respondNotFound(c, "Settlement record not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewSettlementRecordResponse(record))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "pack-ledger-api",
	})
}
