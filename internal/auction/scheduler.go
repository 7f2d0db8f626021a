package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/repository"
	"bidbook/utils"
)

// DefaultTickInterval is how often the scheduler scans open auctions
const DefaultTickInterval = time.Minute

// BidPromoter settles a winning bid with all side effects. Implemented
// by the bidding service.
type BidPromoter interface {
	PromoteBid(ctx context.Context, book model.Book, bid model.Bid) (model.Bid, error)
}

// Scheduler closes expired auctions. It runs as a singleton periodic
// job: every tick it scans books still open for bidding, promotes the
// most recent pending bid once its window has elapsed, and rejects the
// competitors. Ticks are idempotent - a closed book drops out of the
// scan and a settled bid is no longer PENDING.
type Scheduler struct {
	books    repository.BookStore
	bids     repository.BidStore
	promoter BidPromoter
	window   time.Duration
	interval time.Duration
	cron     *cron.Cron
}

// NewScheduler creates a scheduler with the given bidding window and
// tick interval. Non-positive durations fall back to the defaults.
func NewScheduler(books repository.BookStore, bids repository.BidStore, promoter BidPromoter, window, interval time.Duration) *Scheduler {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		books:    books,
		bids:     bids,
		promoter: promoter,
		window:   window,
		interval: interval,
	}
}

// Start begins periodic ticking. Returns an error if the schedule
// cannot be registered.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: failed to register cron job: %w", err)
	}
	c.Start()
	s.cron = c
	utils.Info("auction scheduler started", map[string]any{
		"interval": s.interval.String(),
		"window":   s.window.String(),
	})
	return nil
}

// Stop halts ticking and waits for a running tick to finish
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Tick runs one scan over all open auctions. Failures on one book are
// isolated: they are logged and the remaining books still process.
func (s *Scheduler) Tick(ctx context.Context) {
	books, err := s.books.ListOpenBooks(ctx)
	if err != nil {
		utils.Error("scheduler: failed to list open books", map[string]any{"error": err.Error()})
		return
	}

	closed := 0
	for _, book := range books {
		if s.closeIfExpired(ctx, book) {
			closed++
		}
	}
	if closed > 0 {
		utils.Info("scheduler: closed expired auctions", map[string]any{
			"scanned": len(books),
			"closed":  closed,
		})
	}
}

// closeIfExpired settles a single book when its pending bid has aged
// past the window. Returns true when the auction was closed.
func (s *Scheduler) closeIfExpired(ctx context.Context, book model.Book) bool {
	// the winning bid is the most recent pending one, not the largest
	// amount
	bid, err := s.bids.LatestPendingBid(ctx, book.BookID)
	if errors.Is(err, marketerrors.ErrNoBids) {
		// a book nobody bid on never closes
		return false
	}
	if err != nil {
		utils.Error("scheduler: failed to load pending bid", map[string]any{
			"book_id": book.BookID,
			"error":   err.Error(),
		})
		return false
	}
	if bid.BidderID == "" {
		return false
	}
	if time.Since(bid.CreatedAt) <= s.window {
		return false
	}

	if _, err := s.promoter.PromoteBid(ctx, book, bid); err != nil {
		if errors.Is(err, marketerrors.ErrAuctionAlreadyClosed) {
			// another writer settled this book between scan and close
			return false
		}
		utils.Error("scheduler: failed to close auction", map[string]any{
			"book_id": book.BookID,
			"bid_id":  bid.BidID,
			"error":   err.Error(),
		})
		return false
	}

	utils.Info("scheduler: auction closed", map[string]any{
		"book_id":   book.BookID,
		"bid_id":    bid.BidID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
	return true
}
