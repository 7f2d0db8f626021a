package handler

import (
	"context"
	"fmt"
	"net/http"

	"bidbook/internal/books"
	model "bidbook/internal/models"
	"bidbook/services/marketplace/helpers"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
)

type BookServiceInterface interface {
	CreateListing(ctx context.Context, in books.CreateListingInput) (model.Book, error)
	Get(ctx context.Context, bookID string) (model.Book, error)
	ListOpen(ctx context.Context) ([]model.Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error)
}

type BookHandler struct {
	service BookServiceInterface
}

func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// CreateBookHandler handles POST /books
func (h *BookHandler) CreateBookHandler(c *gin.Context) {
	var req helpers.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateBookHandler", err)
		return
	}

	book, err := h.service.CreateListing(c.Request.Context(), books.CreateListingInput{
		OwnerID:      req.OwnerID,
		Title:        req.Title,
		Author:       req.Author,
		Editor:       req.Editor,
		Category:     req.Category,
		Language:     req.Language,
		Edition:      req.Edition,
		TotalPages:   req.TotalPages,
		DamagedPages: req.DamagedPages,
		Age:          req.Age,
		Price:        req.Price,
		Picture:      req.Picture,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateBookHandler: failed to create listing", map[string]any{
			"handler":  "CreateBookHandler",
			"owner_id": req.OwnerID,
			"title":    req.Title,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, book, "book listed successfully")
	helpers.LogSuccess("CreateBookHandler", "book listed successfully", map[string]any{
		"book_id":  book.BookID,
		"owner_id": book.OwnerID,
		"price":    book.Price,
	})
}

// GetBookHandler handles GET /books/:book_id
func (h *BookHandler) GetBookHandler(c *gin.Context) {
	bookID := c.Param("book_id")
	book, err := h.service.Get(c.Request.Context(), bookID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBookHandler: error retrieving book", map[string]any{"book_id": bookID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, book, "book retrieved successfully")
}

// ListOpenBooksHandler handles GET /books
func (h *BookHandler) ListOpenBooksHandler(c *gin.Context) {
	list, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListOpenBooksHandler: error listing books", map[string]any{"error": err.Error()})
		return
	}

	if list == nil {
		list = []model.Book{}
	}

	utils.JSONResponse(c, http.StatusOK, list, "books retrieved successfully")
}

// GetBooksByOwnerHandler handles GET /users/:user_id/books
func (h *BookHandler) GetBooksByOwnerHandler(c *gin.Context) {
	userID := c.Param("user_id")
	list, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBooksByOwnerHandler: error listing books", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if list == nil {
		list = []model.Book{}
	}

	utils.JSONResponse(c, http.StatusOK, list, "books retrieved successfully")
	helpers.LogSuccess("GetBooksByOwnerHandler", "books retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(list),
	})
}
