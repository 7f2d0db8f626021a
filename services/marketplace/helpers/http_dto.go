package helpers

// Request/Response DTOs

type CreateBookRequest struct {
	OwnerID      string  `json:"owner_id" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Author       string  `json:"author"`
	Editor       string  `json:"editor"`
	Category     string  `json:"category"`
	Language     string  `json:"language"`
	Edition      int     `json:"edition"`
	TotalPages   int     `json:"total_pages"`
	DamagedPages int     `json:"damaged_pages"`
	Age          int     `json:"age"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	Picture      string  `json:"picture"`
}

type PlaceBidRequest struct {
	BookID   string  `json:"book_id" binding:"required"`
	BidderID string  `json:"bidder_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	BookID    string  `json:"book_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

// OwnerActionRequest identifies the owner performing an accept/reject
type OwnerActionRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

type MarkConversationReadRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type SettleTransactionRequest struct {
	Status string `json:"status" binding:"required"`
}

type TransactionResponse struct {
	TransactionID   string  `json:"transaction_id"`
	BidID           string  `json:"bid_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	ClientSecret    string  `json:"client_secret,omitempty"`
	CompletionDate  string  `json:"completion_date,omitempty"`
	CreatedAt       string  `json:"created_at"`
}
