package marketerrors

import "errors"

// Repository-level errors
var (
	ErrBookNotFound         = errors.New("book not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNoBids               = errors.New("no bids found for book")
	ErrConversationExists   = errors.New("conversation already exists for bid")
	ErrTransactionExists    = errors.New("transaction already exists for bid")
	ErrAuctionAlreadyClosed = errors.New("auction already closed")
)

// business logic errors
var (
	ErrInvalidBid            = errors.New("invalid bid")
	ErrBidTooLow             = errors.New("bid amount too low")
	ErrOwnBook               = errors.New("cannot bid on your own book")
	ErrBiddingClosed         = errors.New("bidding period has ended")
	ErrBidFinalized          = errors.New("bid is in a terminal state")
	ErrBidNotWon             = errors.New("bid has not won the auction")
	ErrNotOwner              = errors.New("user is not the book owner")
	ErrNotParticipant        = errors.New("user is not part of this conversation")
	ErrConversationInactive  = errors.New("conversation is no longer active")
	ErrTransactionFinalized  = errors.New("transaction already settled")
	ErrInvalidStatus         = errors.New("invalid status value")
	ErrPaymentsDisabled      = errors.New("payment gateway not configured")
	ErrPredictionUnavailable = errors.New("price prediction service unavailable")
)
