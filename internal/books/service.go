package books

import (
	"context"
	"fmt"
	"time"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/pricing"
	"bidbook/internal/repository"
	"bidbook/utils"
)

// CreateListingInput carries the fields an owner provides for a listing
type CreateListingInput struct {
	OwnerID      string
	Title        string
	Author       string
	Editor       string
	Category     string
	Language     string
	Edition      int
	TotalPages   int
	DamagedPages int
	Age          int
	Price        float64
	Picture      string
}

// Service manages book listings
type Service struct {
	books     repository.BookStore
	users     repository.UserStore
	predictor pricing.Predictor // optional
}

// NewService creates a book listing service. predictor may be nil, in
// which case the owner's asking price is used as-is.
func NewService(books repository.BookStore, users repository.UserStore, predictor pricing.Predictor) *Service {
	return &Service{books: books, users: users, predictor: predictor}
}

// CreateListing registers a book and opens it for bidding. When a
// price predictor is configured its estimate replaces the asking
// price; a predictor outage fails the listing.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (model.Book, error) {
	if in.OwnerID == "" || in.Title == "" {
		return model.Book{}, fmt.Errorf("service: %w - missing owner or title", marketerrors.ErrInvalidBid)
	}
	if _, err := s.users.GetUser(ctx, in.OwnerID); err != nil {
		return model.Book{}, fmt.Errorf("service: failed to load owner %s: %w", in.OwnerID, err)
	}

	book := model.Book{
		BookID:        utils.GenerateID(),
		OwnerID:       in.OwnerID,
		Title:         in.Title,
		Author:        in.Author,
		Editor:        in.Editor,
		Category:      in.Category,
		Language:      in.Language,
		Edition:       in.Edition,
		TotalPages:    in.TotalPages,
		DamagedPages:  in.DamagedPages,
		Age:           in.Age,
		Price:         in.Price,
		Picture:       in.Picture,
		IsBiddingOpen: true,
		CreatedAt:     time.Now().UTC(),
	}

	if s.predictor != nil {
		predicted, err := s.predictor.PredictPrice(ctx, book)
		if err != nil {
			return model.Book{}, fmt.Errorf("service: failed to predict price for %q: %w", in.Title, err)
		}
		book.Price = predicted
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		return model.Book{}, fmt.Errorf("service: failed to create listing %q: %w", in.Title, err)
	}
	return book, nil
}

// Get returns a single listing
func (s *Service) Get(ctx context.Context, bookID string) (model.Book, error) {
	if bookID == "" {
		return model.Book{}, fmt.Errorf("service: %w - empty book ID", marketerrors.ErrInvalidBid)
	}
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return model.Book{}, fmt.Errorf("service: failed to get book %s: %w", bookID, err)
	}
	return book, nil
}

// ListOpen returns every listing currently open for bidding
func (s *Service) ListOpen(ctx context.Context) ([]model.Book, error) {
	books, err := s.books.ListOpenBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list open books: %w", err)
	}
	return books, nil
}

// ListByOwner returns a user's listings
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("service: %w - empty owner ID", marketerrors.ErrInvalidBid)
	}
	books, err := s.books.ListBooksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list books for owner %s: %w", ownerID, err)
	}
	return books, nil
}
