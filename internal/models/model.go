package models

import "time"

// User represents a marketplace participant (book owner or bidder)
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Book represents a listed used book
type Book struct {
	BookID        string    `json:"book_id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Editor        string    `json:"editor"`
	Category      string    `json:"category"`
	Language      string    `json:"language"`
	Edition       int       `json:"edition"`
	TotalPages    int       `json:"total_pages"`
	DamagedPages  int       `json:"damaged_pages"`
	Age           int       `json:"age"`
	Price         float64   `json:"price"`
	Picture       string    `json:"picture"`
	IsBiddingOpen bool      `json:"is_bidding_open"`
	IsSold        bool      `json:"is_sold"`
	CreatedAt     time.Time `json:"created_at"`
}

// BidStatus enumerates the lifecycle states of a bid.
// PENDING is the only non-terminal state.
type BidStatus string

const (
	BidPending  BidStatus = "PENDING"
	BidWon      BidStatus = "WON"
	BidRejected BidStatus = "REJECTED"
)

// Terminal reports whether a bid in this status can no longer transition
func (s BidStatus) Terminal() bool {
	return s == BidWon || s == BidRejected
}

// Bid represents a user's offer on a book
type Bid struct {
	BidID     string    `json:"bid_id"`
	BookID    string    `json:"book_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	Status    BidStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the private thread between bidder and owner, created
// once a bid is won. Exactly one conversation exists per bid.
type Conversation struct {
	ConversationID string     `json:"conversation_id"`
	BidID          string     `json:"bid_id"`
	BidderID       string     `json:"bidder_id"`
	OwnerID        string     `json:"owner_id"`
	IsActive       bool       `json:"is_active"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

// Message is a single chat message inside a conversation
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	FromBidder     bool      `json:"from_bidder"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationType enumerates the domain events a user can be notified about
type NotificationType string

const (
	NotificationBidPlaced         NotificationType = "BID_PLACED_ON_YOUR_BOOK"
	NotificationBidRejected       NotificationType = "BID_REJECTED"
	NotificationAuctionWon        NotificationType = "AUCTION_WON"
	NotificationAuctionEndedOwner NotificationType = "AUCTION_ENDED_OWNER"
	NotificationPaymentSucceeded  NotificationType = "PAYMENT_SUCCEEDED"
	NotificationBookSold          NotificationType = "BOOK_SOLD"
)

// Notification is a persisted, optionally live-pushed, event message
type Notification struct {
	NotificationID string           `json:"notification_id"`
	UserID         string           `json:"user_id"`
	Type           NotificationType `json:"type"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data,omitempty"`
	Read           bool             `json:"read"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TransactionStatus enumerates payment settlement states.
// Succeeded and failed are terminal.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
)

// Terminal reports whether the settlement outcome is final
func (s TransactionStatus) Terminal() bool {
	return s == TransactionSucceeded || s == TransactionFailed
}

// Transaction tracks payment settlement of a won bid
type Transaction struct {
	TransactionID   string            `json:"transaction_id"`
	BidID           string            `json:"bid_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	Status          TransactionStatus `json:"status"`
	CompletionDate  *time.Time        `json:"completion_date,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
