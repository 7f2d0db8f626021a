package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/services/marketplace/helpers"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, bookID, bidderID string, amount float64) (model.Bid, error)
	BidsForBook(ctx context.Context, bookID string) ([]model.Bid, error)
	HighestBid(ctx context.Context, bookID string) (model.Bid, error)
	BidsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Bid, error)
	AcceptBid(ctx context.Context, ownerID, bidID string) (model.Bid, error)
	RejectBid(ctx context.Context, ownerID, bidID string) (model.Bid, error)
}

type BidHandler struct {
	service BiddingServiceInterface
}

func NewBidHandler(service BiddingServiceInterface) *BidHandler {
	return &BidHandler{service: service}
}

// PlaceBidHandler handles POST /bids
func (h *BidHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), req.BookID, req.BidderID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to record bid", map[string]any{
			"handler":   "PlaceBidHandler",
			"book_id":   req.BookID,
			"bidder_id": req.BidderID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":    bid.BidID,
		"book_id":   bid.BookID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
}

// GetBidsByBookHandler handles GET /books/:book_id/bids
func (h *BidHandler) GetBidsByBookHandler(c *gin.Context) {
	bookID := c.Param("book_id")
	bids, err := h.service.BidsForBook(c.Request.Context(), bookID)
	if err != nil && !errors.Is(err, marketerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByBookHandler: error retrieving bids", map[string]any{"book_id": bookID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByBookHandler", "bids retrieved successfully", map[string]any{
		"book_id": bookID,
		"count":   len(bids),
	})
}

// GetHighestBidHandler handles GET /books/:book_id/highest
func (h *BidHandler) GetHighestBidHandler(c *gin.Context) {
	bookID := c.Param("book_id")
	bid, err := h.service.HighestBid(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, marketerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no bids found for book")
			utils.Info("GetHighestBidHandler: no bids found", map[string]any{"book_id": bookID})
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetHighestBidHandler: highest bid error", map[string]any{"book_id": bookID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "highest bid retrieved successfully")
}

// GetBidsByUserHandler handles GET /users/:user_id/bids
func (h *BidHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bids, err := h.service.BidsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByUserHandler: error retrieving bids", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByUserHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}

// AcceptBidHandler handles POST /bids/:bid_id/accept
func (h *BidHandler) AcceptBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	var req helpers.OwnerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AcceptBidHandler", err)
		return
	}

	bid, err := h.service.AcceptBid(c.Request.Context(), req.OwnerID, bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("AcceptBidHandler: failed to accept bid", map[string]any{
			"handler":  "AcceptBidHandler",
			"bid_id":   bidID,
			"owner_id": req.OwnerID,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "bid accepted successfully")
	helpers.LogSuccess("AcceptBidHandler", "bid accepted successfully", map[string]any{
		"bid_id":    bid.BidID,
		"book_id":   bid.BookID,
		"bidder_id": bid.BidderID,
	})
}

// RejectBidHandler handles POST /bids/:bid_id/reject
func (h *BidHandler) RejectBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	var req helpers.OwnerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RejectBidHandler", err)
		return
	}

	bid, err := h.service.RejectBid(c.Request.Context(), req.OwnerID, bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("RejectBidHandler: failed to reject bid", map[string]any{
			"handler":  "RejectBidHandler",
			"bid_id":   bidID,
			"owner_id": req.OwnerID,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "bid rejected successfully")
	helpers.LogSuccess("RejectBidHandler", "bid rejected successfully", map[string]any{
		"bid_id":    bid.BidID,
		"book_id":   bid.BookID,
		"bidder_id": bid.BidderID,
	})
}
