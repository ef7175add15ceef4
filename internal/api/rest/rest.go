package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/nftmx/pack-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes. Reads are public; every
// mutating endpoint requires authentication.
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	auth := middleware.Auth(authCfg)
	{
		// Item endpoints
		v1.GET("/items/:id", handler.GetItem)
		v1.GET("/items", handler.ListItems)
		v1.POST("/items", auth, handler.MintItem)
		v1.POST("/items/:id/burn", auth, handler.BurnItem)
		v1.POST("/items/:id/approve", auth, handler.ApproveItem)
		v1.POST("/items/:id/revoke", auth, handler.RevokeItemApproval)
		v1.POST("/items/:id/transfer", auth, handler.TransferItem)
		v1.POST("/operators", auth, handler.SetOperator)
		v1.POST("/operators/revoke", auth, handler.RevokeOperator)

		// NFT pack endpoints
		v1.GET("/packs/nft/:id", handler.GetNftPack)
		v1.GET("/packs/nft", handler.ListNftPacks)
		v1.POST("/packs/nft", auth, handler.CreateNftPack)
		v1.POST("/packs/nft/:id/unpack", auth, handler.UnpackNftPack)
		v1.POST("/packs/nft/:id/approve", auth, handler.ApproveNftPack)
		v1.POST("/packs/nft/:id/transfer", auth, handler.TransferNftPack)
		v1.PUT("/packs/nft/:id/sale", auth, handler.UpdateNftPackSale)
		v1.POST("/packs/nft/:id/buy", auth, handler.BuyNftPack)

		// Token pack endpoints
		v1.GET("/packs/token/:id", handler.GetTokenPack)
		v1.GET("/packs/token", handler.ListTokenPacks)
		v1.POST("/packs/token", auth, handler.CreateTokenPack)
		v1.POST("/packs/token/:id/unpack", auth, handler.UnpackTokenPack)
		v1.POST("/packs/token/:id/approve", auth, handler.ApproveTokenPack)
		v1.POST("/packs/token/:id/transfer", auth, handler.TransferTokenPack)
		v1.PUT("/packs/token/:id/sale", auth, handler.UpdateTokenPackSale)
		v1.POST("/packs/token/:id/buy", auth, handler.BuyTokenPack)

		// Read surface for balances, royalties, and settlements
		v1.GET("/balances/:kind/:owner", handler.GetBalance)
		v1.GET("/royalties/:kind/:id", handler.GetRoyaltyShares)
		v1.GET("/settlements/:batch_id", handler.GetSettlementRecord)
	}
}
