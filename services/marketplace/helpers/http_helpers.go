package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, marketerrors.ErrBookNotFound):
		return http.StatusNotFound, "book not found"
	case errors.Is(err, marketerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, marketerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, marketerrors.ErrConversationNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.Is(err, marketerrors.ErrNotificationNotFound):
		return http.StatusNotFound, "notification not found"
	case errors.Is(err, marketerrors.ErrTransactionNotFound):
		return http.StatusNotFound, "transaction not found"
	case errors.Is(err, marketerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, marketerrors.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid status value"
	case errors.Is(err, marketerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, marketerrors.ErrOwnBook):
		return http.StatusForbidden, "cannot bid on your own book"
	case errors.Is(err, marketerrors.ErrNotOwner):
		return http.StatusForbidden, "only the book owner may do this"
	case errors.Is(err, marketerrors.ErrNotParticipant):
		return http.StatusForbidden, "not a conversation participant"
	case errors.Is(err, marketerrors.ErrBiddingClosed):
		return http.StatusConflict, "bidding period has ended"
	case errors.Is(err, marketerrors.ErrBidFinalized):
		return http.StatusConflict, "bid already finalized"
	case errors.Is(err, marketerrors.ErrBidNotWon):
		return http.StatusConflict, "bid has not won the auction"
	case errors.Is(err, marketerrors.ErrAuctionAlreadyClosed):
		return http.StatusConflict, "auction already closed"
	case errors.Is(err, marketerrors.ErrConversationExists):
		return http.StatusConflict, "conversation already exists for bid"
	case errors.Is(err, marketerrors.ErrConversationInactive):
		return http.StatusConflict, "conversation is no longer active"
	case errors.Is(err, marketerrors.ErrTransactionExists):
		return http.StatusConflict, "transaction already exists for bid"
	case errors.Is(err, marketerrors.ErrTransactionFinalized):
		return http.StatusConflict, "transaction already settled"
	case errors.Is(err, marketerrors.ErrNoBids):
		return http.StatusOK, "no bids found for book"
	case errors.Is(err, marketerrors.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable, "payment gateway not configured"
	case errors.Is(err, marketerrors.ErrPredictionUnavailable):
		return http.StatusBadGateway, "price prediction service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ToBidResponse converts a bid model to its HTTP representation
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		BookID:    bid.BookID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Status:    string(bid.Status),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToTransactionResponse converts a transaction model to its HTTP
// representation. clientSecret is only present right after creation.
func ToTransactionResponse(tx model.Transaction, clientSecret string) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:   tx.TransactionID,
		BidID:           tx.BidID,
		PaymentIntentID: tx.PaymentIntentID,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Status:          string(tx.Status),
		ClientSecret:    clientSecret,
		CreatedAt:       tx.CreatedAt.UTC().Format(time.RFC3339),
	}
	if tx.CompletionDate != nil {
		resp.CompletionDate = tx.CompletionDate.UTC().Format(time.RFC3339)
	}
	return resp
}
