package repository

import (
	"context"

	model "bidbook/internal/models"
)

// DefaultBidPageSize is the page size BidsByUser falls back to when the
// caller passes no limit.
const DefaultBidPageSize = 50

// BookStore defines persistence for book listings
type BookStore interface {
	CreateBook(ctx context.Context, book model.Book) error
	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListOpenBooks(ctx context.Context) ([]model.Book, error)
	ListBooksByOwner(ctx context.Context, ownerID string) ([]model.Book, error)
	SetBiddingOpen(ctx context.Context, bookID string, open bool) error
	MarkSold(ctx context.Context, bookID string) error
}

// BidStore defines persistence for bids and the auction-close transition
type BidStore interface {
	CreateBid(ctx context.Context, bid model.Bid) error
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	BidsForBook(ctx context.Context, bookID string) ([]model.Bid, error)

	// HighestBid returns the bid with the largest amount for a book,
	// regardless of status. Returns ErrNoBids when none exist.
	HighestBid(ctx context.Context, bookID string) (model.Bid, error)

	// LatestPendingBid returns the most recently created PENDING bid for
	// a book. The scheduler promotes this bid, not the largest amount.
	LatestPendingBid(ctx context.Context, bookID string) (model.Bid, error)

	// BidsByUser pages the user's bids newest-first. A non-positive
	// limit falls back to DefaultBidPageSize.
	BidsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Bid, error)

	// UpdateBidStatus transitions a single bid. Terminal states are
	// immutable; transitioning an already WON or REJECTED bid returns
	// ErrBidFinalized.
	UpdateBidStatus(ctx context.Context, bidID string, status model.BidStatus) error

	// CloseAuction atomically promotes winningBidID to WON, closes the
	// book for bidding, and rejects every other PENDING bid on the book.
	// The book-open and bid-PENDING conditions are re-validated inside
	// the same transaction; a losing writer gets ErrAuctionAlreadyClosed.
	CloseAuction(ctx context.Context, bookID, winningBidID string) (winner model.Bid, rejected []model.Bid, err error)
}

// ConversationStore defines persistence for conversations and messages
type ConversationStore interface {
	// CreateConversation inserts a conversation. A bid may have at most
	// one; a second insert for the same bid returns ErrConversationExists.
	CreateConversation(ctx context.Context, conv model.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (model.Conversation, error)
	ConversationByBid(ctx context.Context, bidID string) (model.Conversation, error)
	ConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	SetConversationActive(ctx context.Context, conversationID string, active bool) error

	AddMessage(ctx context.Context, msg model.Message) error
	Messages(ctx context.Context, conversationID string) ([]model.Message, error)
	// UnreadMessages returns the unread messages in the conversation
	// whose direction matches sentByBidder, in timestamp order.
	UnreadMessages(ctx context.Context, conversationID string, sentByBidder bool) ([]model.Message, error)
	// MarkMessagesRead marks every unread message in the conversation
	// whose direction matches sentByBidder.
	MarkMessagesRead(ctx context.Context, conversationID string, sentByBidder bool) error
}

// NotificationStore defines persistence for user notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	NotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	DeleteNotification(ctx context.Context, notificationID string) error
}

// TransactionStore defines persistence for payment transactions
type TransactionStore interface {
	// CreateTransaction inserts a transaction. A bid settles at most
	// once; a second insert for the same bid returns ErrTransactionExists.
	CreateTransaction(ctx context.Context, tx model.Transaction) error
	GetTransaction(ctx context.Context, transactionID string) (model.Transaction, error)
	TransactionByBid(ctx context.Context, bidID string) (model.Transaction, error)
	// SettleTransaction moves a pending transaction to a terminal status
	// and stamps the completion date. Settling twice returns
	// ErrTransactionFinalized.
	SettleTransaction(ctx context.Context, transactionID string, status model.TransactionStatus) (model.Transaction, error)
}

// UserStore defines persistence for marketplace users
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
}

// Store aggregates every persistence concern of the marketplace core
type Store interface {
	BookStore
	BidStore
	ConversationStore
	NotificationStore
	TransactionStore
	UserStore
}
