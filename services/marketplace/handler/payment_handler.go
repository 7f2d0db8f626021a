package handler

import (
	"context"
	"fmt"
	"net/http"

	model "bidbook/internal/models"
	"bidbook/internal/payments"
	"bidbook/services/marketplace/helpers"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
)

type PaymentServiceInterface interface {
	CreateForBid(ctx context.Context, bidID string) (payments.Created, error)
	Get(ctx context.Context, transactionID string) (model.Transaction, error)
	ForBid(ctx context.Context, bidID string) (model.Transaction, error)
	Settle(ctx context.Context, transactionID string, status model.TransactionStatus) (model.Transaction, error)
}

type PaymentHandler struct {
	service PaymentServiceInterface
}

func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// CreateTransactionHandler handles POST /transactions/bid/:bid_id
func (h *PaymentHandler) CreateTransactionHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	created, err := h.service.CreateForBid(c.Request.Context(), bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateTransactionHandler: failed to create transaction", map[string]any{
			"handler": "CreateTransactionHandler",
			"bid_id":  bidID,
			"error":   err.Error(),
		})
		return
	}

	resp := helpers.ToTransactionResponse(created.Transaction, created.ClientSecret)
	utils.JSONResponse(c, http.StatusCreated, resp, "transaction created successfully")
	helpers.LogSuccess("CreateTransactionHandler", "transaction created successfully", map[string]any{
		"transaction_id": created.Transaction.TransactionID,
		"bid_id":         bidID,
		"amount":         created.Transaction.Amount,
	})
}

// GetTransactionHandler handles GET /transactions/:transaction_id
func (h *PaymentHandler) GetTransactionHandler(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	tx, err := h.service.Get(c.Request.Context(), transactionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetTransactionHandler: error retrieving transaction", map[string]any{"transaction_id": transactionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToTransactionResponse(tx, ""), "transaction retrieved successfully")
}

// GetTransactionByBidHandler handles GET /bids/:bid_id/transaction
func (h *PaymentHandler) GetTransactionByBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	tx, err := h.service.ForBid(c.Request.Context(), bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetTransactionByBidHandler: error retrieving transaction", map[string]any{"bid_id": bidID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToTransactionResponse(tx, ""), "transaction retrieved successfully")
}

// SettleTransactionHandler handles PATCH /transactions/:transaction_id/status
func (h *PaymentHandler) SettleTransactionHandler(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	var req helpers.SettleTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SettleTransactionHandler", err)
		return
	}

	tx, err := h.service.Settle(c.Request.Context(), transactionID, model.TransactionStatus(req.Status))
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("SettleTransactionHandler: failed to settle transaction", map[string]any{
			"handler":        "SettleTransactionHandler",
			"transaction_id": transactionID,
			"status":         req.Status,
			"error":          err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToTransactionResponse(tx, ""), "transaction settled successfully")
	helpers.LogSuccess("SettleTransactionHandler", "transaction settled successfully", map[string]any{
		"transaction_id": tx.TransactionID,
		"status":         string(tx.Status),
	})
}
