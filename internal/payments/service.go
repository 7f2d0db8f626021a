package payments

import (
	"context"
	"fmt"
	"time"

	"bidbook/internal/conversation"
	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/internal/repository"
	"bidbook/internal/stripe"
	"bidbook/utils"
)

// Created is returned when a settlement transaction is opened
type Created struct {
	Transaction  model.Transaction
	ClientSecret string
}

// Service settles won bids through the payment gateway. The gateway is
// the authoritative source for payment outcomes; this service records
// them and applies the domain side effects. A nil gateway disables
// transaction creation.
type Service struct {
	txs        repository.TransactionStore
	bids       repository.BidStore
	books      repository.BookStore
	gateway    stripe.Gateway
	dispatcher *notifications.Dispatcher
	convs      *conversation.Service
}

// NewService creates the settlement service
func NewService(txs repository.TransactionStore, bids repository.BidStore, books repository.BookStore, gateway stripe.Gateway, dispatcher *notifications.Dispatcher, convs *conversation.Service) *Service {
	return &Service{
		txs:        txs,
		bids:       bids,
		books:      books,
		gateway:    gateway,
		dispatcher: dispatcher,
		convs:      convs,
	}
}

// CreateForBid opens a pending transaction for a won bid, backed by a
// payment intent at the gateway.
func (s *Service) CreateForBid(ctx context.Context, bidID string) (Created, error) {
	if s.gateway == nil {
		return Created{}, fmt.Errorf("payments: bid %s: %w", bidID, marketerrors.ErrPaymentsDisabled)
	}
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return Created{}, fmt.Errorf("payments: failed to load bid %s: %w", bidID, err)
	}
	if bid.Status != model.BidWon {
		return Created{}, fmt.Errorf("payments: bid %s: %w", bidID, marketerrors.ErrBidNotWon)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, bid.Amount, "usd")
	if err != nil {
		return Created{}, fmt.Errorf("payments: failed to create payment intent for bid %s: %w", bidID, err)
	}

	tx := model.Transaction{
		TransactionID:   utils.GenerateID(),
		BidID:           bid.BidID,
		PaymentIntentID: intent.IntentID,
		Amount:          bid.Amount,
		Currency:        intent.Currency,
		Status:          model.TransactionPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.txs.CreateTransaction(ctx, tx); err != nil {
		return Created{}, fmt.Errorf("payments: failed to create transaction for bid %s: %w", bidID, err)
	}

	return Created{Transaction: tx, ClientSecret: intent.ClientSecret}, nil
}

// Get returns a transaction by id
func (s *Service) Get(ctx context.Context, transactionID string) (model.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, transactionID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("payments: failed to get transaction %s: %w", transactionID, err)
	}
	return tx, nil
}

// ForBid returns the transaction settling a bid
func (s *Service) ForBid(ctx context.Context, bidID string) (model.Transaction, error) {
	tx, err := s.txs.TransactionByBid(ctx, bidID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("payments: failed to get transaction for bid %s: %w", bidID, err)
	}
	return tx, nil
}

// Settle records the gateway's outcome for a pending transaction.
// On success the book is marked sold, the conversation is closed and
// buyer and seller are notified. On failure only the status changes:
// the book stays unsold and the conversation stays active so the
// parties can renegotiate.
func (s *Service) Settle(ctx context.Context, transactionID string, status model.TransactionStatus) (model.Transaction, error) {
	if !status.Terminal() {
		return model.Transaction{}, fmt.Errorf("payments: settle transaction %s with %q: %w", transactionID, status, marketerrors.ErrInvalidStatus)
	}

	tx, err := s.txs.SettleTransaction(ctx, transactionID, status)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("payments: failed to settle transaction %s: %w", transactionID, err)
	}

	if status == model.TransactionSucceeded {
		s.applySuccess(ctx, tx)
	}
	return tx, nil
}

// applySuccess runs the post-payment side effects. Each is best-effort
// and isolated; the settled status is already persisted.
func (s *Service) applySuccess(ctx context.Context, tx model.Transaction) {
	bid, err := s.bids.GetBid(ctx, tx.BidID)
	if err != nil {
		utils.Error("payments: failed to load bid after settlement", map[string]any{
			"transaction_id": tx.TransactionID,
			"bid_id":         tx.BidID,
			"error":          err.Error(),
		})
		return
	}
	book, err := s.books.GetBook(ctx, bid.BookID)
	if err != nil {
		utils.Error("payments: failed to load book after settlement", map[string]any{
			"transaction_id": tx.TransactionID,
			"book_id":        bid.BookID,
			"error":          err.Error(),
		})
		return
	}

	if err := s.books.MarkSold(ctx, book.BookID); err != nil {
		utils.Error("payments: failed to mark book sold", map[string]any{
			"book_id": book.BookID,
			"error":   err.Error(),
		})
	}
	if err := s.convs.DeactivateForBid(ctx, bid.BidID); err != nil {
		utils.Warn("payments: failed to deactivate conversation", map[string]any{
			"bid_id": bid.BidID,
			"error":  err.Error(),
		})
	}

	s.notify(ctx, notifications.Request{
		UserID:  bid.BidderID,
		Type:    model.NotificationPaymentSucceeded,
		Message: fmt.Sprintf("Your payment of $%.2f for %q succeeded.", tx.Amount, book.Title),
		Data:    map[string]any{"book_id": book.BookID, "transaction_id": tx.TransactionID},
	})
	s.notify(ctx, notifications.Request{
		UserID:  book.OwnerID,
		Type:    model.NotificationBookSold,
		Message: fmt.Sprintf("Your book %q was sold for $%.2f.", book.Title, tx.Amount),
		Data:    map[string]any{"book_id": book.BookID, "transaction_id": tx.TransactionID, "buyer_id": bid.BidderID},
	})
}

func (s *Service) notify(ctx context.Context, req notifications.Request) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Notify(ctx, req); err != nil {
		utils.Error("payments: failed to dispatch notification", map[string]any{
			"user_id": req.UserID,
			"type":    string(req.Type),
			"error":   err.Error(),
		})
	}
}
