package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bidbook/internal/conversation"
	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/internal/repository"
	"bidbook/utils"
)

// DefaultBiddingWindow is how long the most recent bid stays open
// before the auction settles.
const DefaultBiddingWindow = 24 * time.Hour

// BiddingService defines the business logic for book auctions
type BiddingService struct {
	books      repository.BookStore
	bids       repository.BidStore
	dispatcher *notifications.Dispatcher
	convs      *conversation.Service
	window     time.Duration
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(books repository.BookStore, bids repository.BidStore, dispatcher *notifications.Dispatcher, convs *conversation.Service, window time.Duration) *BiddingService {
	if window <= 0 {
		window = DefaultBiddingWindow
	}
	return &BiddingService{
		books:      books,
		bids:       bids,
		dispatcher: dispatcher,
		convs:      convs,
		window:     window,
	}
}

// Window returns the configured bidding window
func (s *BiddingService) Window() time.Duration {
	return s.window
}

// PlaceBid validates and records a user's bid on a book
func (s *BiddingService) PlaceBid(ctx context.Context, bookID, bidderID string, amount float64) (model.Bid, error) {
	if bookID == "" || bidderID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing bookID or bidderID", marketerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return model.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", marketerrors.ErrInvalidBid)
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load book %s: %w", bookID, err)
	}
	if book.IsSold || !book.IsBiddingOpen {
		return model.Bid{}, fmt.Errorf("service: book %s: %w", bookID, marketerrors.ErrBiddingClosed)
	}
	if book.OwnerID == bidderID {
		return model.Bid{}, fmt.Errorf("service: book %s: %w", bookID, marketerrors.ErrOwnBook)
	}

	highest, err := s.bids.HighestBid(ctx, bookID)
	switch {
	case err == nil:
		// a stale highest bid means the window already elapsed; close
		// the book instead of accepting the newcomer
		if time.Since(highest.CreatedAt) > s.window {
			if closeErr := s.books.SetBiddingOpen(ctx, bookID, false); closeErr != nil {
				utils.Error("service: failed to close expired book", map[string]any{
					"book_id": bookID,
					"error":   closeErr.Error(),
				})
			}
			return model.Bid{}, fmt.Errorf("service: book %s: %w", bookID, marketerrors.ErrBiddingClosed)
		}
		if amount <= highest.Amount {
			return model.Bid{}, fmt.Errorf("service: %w - current highest bid is %.2f", marketerrors.ErrBidTooLow, highest.Amount)
		}
	case errors.Is(err, marketerrors.ErrNoBids):
		// first bid must beat the asking price
		if amount <= book.Price {
			return model.Bid{}, fmt.Errorf("service: %w - first bid must exceed asking price %.2f", marketerrors.ErrBidTooLow, book.Price)
		}
	default:
		return model.Bid{}, fmt.Errorf("service: failed to check highest bid: %w", err)
	}

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		BookID:    bookID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    model.BidPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.bids.CreateBid(ctx, bid); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to record bid for book %s by user %s: %w", bookID, bidderID, err)
	}

	s.notify(ctx, notifications.Request{
		UserID:  book.OwnerID,
		Type:    model.NotificationBidPlaced,
		Message: fmt.Sprintf("A new bid of $%.2f was placed on your book %q by user %s.", amount, book.Title, bidderID),
		Data:    map[string]any{"book_id": book.BookID, "bid_amount": amount, "bidder_id": bidderID},
	})

	return bid, nil
}

// BidsForBook returns all bids placed on a book
func (s *BiddingService) BidsForBook(ctx context.Context, bookID string) ([]model.Bid, error) {
	if bookID == "" {
		return nil, fmt.Errorf("service: %w - empty book ID", marketerrors.ErrInvalidBid)
	}
	bids, err := s.bids.BidsForBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for book %s: %w", bookID, err)
	}
	return bids, nil
}

// HighestBid returns the largest bid on a book
func (s *BiddingService) HighestBid(ctx context.Context, bookID string) (model.Bid, error) {
	if bookID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty book ID", marketerrors.ErrInvalidBid)
	}
	bid, err := s.bids.HighestBid(ctx, bookID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get highest bid for book %s: %w", bookID, err)
	}
	return bid, nil
}

// BidsByUser returns the user's bids, newest first
func (s *BiddingService) BidsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", marketerrors.ErrInvalidBid)
	}
	bids, err := s.bids.BidsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", userID, err)
	}
	return bids, nil
}

// AcceptBid is the owner's explicit accept. It runs the same promotion
// path as the scheduler: the bid wins, competitors are rejected, the
// book closes, and the conversation opens.
func (s *BiddingService) AcceptBid(ctx context.Context, ownerID, bidID string) (model.Bid, error) {
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load bid %s: %w", bidID, err)
	}
	book, err := s.books.GetBook(ctx, bid.BookID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load book %s: %w", bid.BookID, err)
	}
	if book.OwnerID != ownerID {
		return model.Bid{}, fmt.Errorf("service: user %s on book %s: %w", ownerID, book.BookID, marketerrors.ErrNotOwner)
	}
	return s.PromoteBid(ctx, book, bid)
}

// PromoteBid transitions the bid to WON with all side effects: the
// book closes, competing PENDING bids are rejected, the conversation
// between bidder and owner is created, and both parties are notified.
// Safe to call from concurrent writers; the losing one gets
// ErrAuctionAlreadyClosed.
func (s *BiddingService) PromoteBid(ctx context.Context, book model.Book, bid model.Bid) (model.Bid, error) {
	winner, rejected, err := s.bids.CloseAuction(ctx, book.BookID, bid.BidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to close auction for book %s: %w", book.BookID, err)
	}

	if _, err := s.convs.CreateForBid(ctx, winner); err != nil && !errors.Is(err, marketerrors.ErrConversationExists) {
		utils.Error("service: failed to create conversation for winning bid", map[string]any{
			"bid_id":  winner.BidID,
			"book_id": book.BookID,
			"error":   err.Error(),
		})
	}

	s.notify(ctx, notifications.Request{
		UserID:  winner.BidderID,
		Type:    model.NotificationAuctionWon,
		Message: fmt.Sprintf("Congratulations! You have won the auction for the book %q.", book.Title),
		Data:    map[string]any{"book_id": book.BookID, "bid_id": winner.BidID, "amount": winner.Amount},
	})
	s.notify(ctx, notifications.Request{
		UserID:  book.OwnerID,
		Type:    model.NotificationAuctionEndedOwner,
		Message: fmt.Sprintf("The auction for your book %q ended. Winning bid: $%.2f by user %s.", book.Title, winner.Amount, winner.BidderID),
		Data:    map[string]any{"book_id": book.BookID, "winner_id": winner.BidderID, "amount": winner.Amount},
	})
	for _, lost := range rejected {
		s.notify(ctx, notifications.Request{
			UserID:  lost.BidderID,
			Type:    model.NotificationBidRejected,
			Message: fmt.Sprintf("Your bid of $%.2f on %q did not win.", lost.Amount, book.Title),
			Data:    map[string]any{"book_id": book.BookID, "bid_id": lost.BidID},
		})
	}

	return winner, nil
}

// RejectBid is the owner's explicit reject of a single pending bid
func (s *BiddingService) RejectBid(ctx context.Context, ownerID, bidID string) (model.Bid, error) {
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load bid %s: %w", bidID, err)
	}
	book, err := s.books.GetBook(ctx, bid.BookID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load book %s: %w", bid.BookID, err)
	}
	if book.OwnerID != ownerID {
		return model.Bid{}, fmt.Errorf("service: user %s on book %s: %w", ownerID, book.BookID, marketerrors.ErrNotOwner)
	}

	if err := s.bids.UpdateBidStatus(ctx, bidID, model.BidRejected); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to reject bid %s: %w", bidID, err)
	}
	bid.Status = model.BidRejected

	// a conversation that slipped in before the reject is shut down
	if err := s.convs.DeactivateForBid(ctx, bidID); err != nil {
		utils.Warn("service: failed to deactivate conversation for rejected bid", map[string]any{
			"bid_id": bidID,
			"error":  err.Error(),
		})
	}

	s.notify(ctx, notifications.Request{
		UserID:  bid.BidderID,
		Type:    model.NotificationBidRejected,
		Message: fmt.Sprintf("Your bid of $%.2f on %q was rejected by the owner.", bid.Amount, book.Title),
		Data:    map[string]any{"book_id": book.BookID, "bid_id": bid.BidID},
	})

	return bid, nil
}

// notify dispatches best-effort; a failed notification never fails the
// domain operation that triggered it.
func (s *BiddingService) notify(ctx context.Context, req notifications.Request) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Notify(ctx, req); err != nil {
		utils.Error("service: failed to dispatch notification", map[string]any{
			"user_id": req.UserID,
			"type":    string(req.Type),
			"error":   err.Error(),
		})
	}
}
