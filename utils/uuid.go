package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a random identifier for domain entities (books,
// bids, conversations, messages, notifications, transactions).
func GenerateID() string {
	return uuid.New().String()
}
