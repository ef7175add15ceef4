package rest

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nftmx/pack-ledger/internal/api/shared/errors"
	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, errors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, errors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, errors.NewValidationError(message))
}

// respondInternalError responds with an internal server error
func respondInternalError(c *gin.Context, err error, message string, details ...string) {
	logger.ErrorCtx(c.Request.Context(), err)
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message, details...))
}

// respondDomainError maps a ledger error to its HTTP status. Unrecognized
// errors are treated as internal; underflow and custody violations are
// invariant breaks, so they land on 500 as well.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, domain.ErrItemNotFound),
		stderrors.Is(err, domain.ErrPackNotFound):
		respondNotFound(c, err.Error())
	case stderrors.Is(err, domain.ErrExistItemURI),
		stderrors.Is(err, domain.ErrExistItemName),
		stderrors.Is(err, domain.ErrExistPackName),
		stderrors.Is(err, domain.ErrItemAlreadyClaimed):
		c.JSON(http.StatusConflict, errors.NewConflictError(err.Error()))
	case stderrors.Is(err, domain.ErrUnauthorized),
		stderrors.Is(err, domain.ErrNotNftOwner),
		stderrors.Is(err, domain.ErrNotOwner),
		stderrors.Is(err, domain.ErrNotApproved),
		stderrors.Is(err, domain.ErrNoBalance),
		stderrors.Is(err, domain.ErrNoPackRoyalty):
		c.JSON(http.StatusForbidden, errors.NewForbiddenError(err.Error()))
	case stderrors.Is(err, domain.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, errors.NewInsufficientFundsError(err.Error()))
	case stderrors.Is(err, domain.ErrApprovalExpired),
		stderrors.Is(err, domain.ErrInvalidInput):
		respondValidationError(c, err.Error())
	default:
		respondInternalError(c, err, "Operation failed")
	}
}
