package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/repository"
	"bidbook/utils"
)

// MessagePusher delivers a freshly stored message to a connected user.
// Implemented by the chat hub; delivery is best-effort.
type MessagePusher interface {
	PushMessage(userID string, msg model.Message) bool
}

// Service manages conversation lifecycle and message exchange between
// a winning bidder and the book owner.
type Service struct {
	convs  repository.ConversationStore
	books  repository.BookStore
	pusher MessagePusher // optional
}

// NewService creates a conversation service. pusher may be nil.
func NewService(convs repository.ConversationStore, books repository.BookStore, pusher MessagePusher) *Service {
	return &Service{convs: convs, books: books, pusher: pusher}
}

// SetPusher wires the live message channel after construction. The hub
// needs the service for inbound frames, so the cycle is broken here.
func (s *Service) SetPusher(pusher MessagePusher) {
	s.pusher = pusher
}

// CreateForBid opens the thread between the winning bidder and the book
// owner. Exactly one conversation may exist per bid.
func (s *Service) CreateForBid(ctx context.Context, bid model.Bid) (model.Conversation, error) {
	book, err := s.books.GetBook(ctx, bid.BookID)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("conversation: failed to load book %s for bid %s: %w", bid.BookID, bid.BidID, err)
	}

	conv := model.Conversation{
		ConversationID: utils.GenerateID(),
		BidID:          bid.BidID,
		BidderID:       bid.BidderID,
		OwnerID:        book.OwnerID,
		IsActive:       true,
		StartDate:      time.Now().UTC(),
	}
	if err := s.convs.CreateConversation(ctx, conv); err != nil {
		return model.Conversation{}, fmt.Errorf("conversation: failed to create for bid %s: %w", bid.BidID, err)
	}
	return conv, nil
}

// FindByBid returns the conversation attached to a bid
func (s *Service) FindByBid(ctx context.Context, bidID string) (model.Conversation, error) {
	conv, err := s.convs.ConversationByBid(ctx, bidID)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("conversation: failed to find for bid %s: %w", bidID, err)
	}
	return conv, nil
}

// ForUser lists every conversation the user participates in
func (s *Service) ForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	convs, err := s.convs.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list for user %s: %w", userID, err)
	}
	return convs, nil
}

// Deactivate closes the thread, stamping the end date
func (s *Service) Deactivate(ctx context.Context, conversationID string) error {
	if err := s.convs.SetConversationActive(ctx, conversationID, false); err != nil {
		return fmt.Errorf("conversation: failed to deactivate %s: %w", conversationID, err)
	}
	return nil
}

// DeactivateForBid closes the thread attached to a bid if one exists.
// A bid without a conversation is a normal no-op.
func (s *Service) DeactivateForBid(ctx context.Context, bidID string) error {
	conv, err := s.convs.ConversationByBid(ctx, bidID)
	if errors.Is(err, marketerrors.ErrConversationNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("conversation: failed to find for bid %s: %w", bidID, err)
	}
	return s.Deactivate(ctx, conv.ConversationID)
}

// participant resolves the sender's role, rejecting outsiders
func participant(conv model.Conversation, userID string) (fromBidder bool, err error) {
	switch userID {
	case conv.BidderID:
		return true, nil
	case conv.OwnerID:
		return false, nil
	default:
		return false, marketerrors.ErrNotParticipant
	}
}

// SendMessage stores a message and pushes it to the other party when
// they are connected.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	if content == "" {
		return model.Message{}, fmt.Errorf("conversation: %w - empty message content", marketerrors.ErrInvalidBid)
	}

	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return model.Message{}, fmt.Errorf("conversation: failed to load %s: %w", conversationID, err)
	}
	fromBidder, err := participant(conv, senderID)
	if err != nil {
		return model.Message{}, fmt.Errorf("conversation: user %s on %s: %w", senderID, conversationID, err)
	}
	if !conv.IsActive {
		return model.Message{}, fmt.Errorf("conversation: %s: %w", conversationID, marketerrors.ErrConversationInactive)
	}

	msg := model.Message{
		MessageID:      utils.GenerateID(),
		ConversationID: conversationID,
		Content:        content,
		FromBidder:     fromBidder,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convs.AddMessage(ctx, msg); err != nil {
		return model.Message{}, fmt.Errorf("conversation: failed to store message in %s: %w", conversationID, err)
	}

	receiverID := conv.OwnerID
	if !fromBidder {
		receiverID = conv.BidderID
	}
	if s.pusher != nil {
		s.pusher.PushMessage(receiverID, msg)
	}

	return msg, nil
}

// Messages returns the thread in timestamp order. Only participants may
// read it.
func (s *Service) Messages(ctx context.Context, conversationID, requesterID string) ([]model.Message, error) {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load %s: %w", conversationID, err)
	}
	if _, err := participant(conv, requesterID); err != nil {
		return nil, fmt.Errorf("conversation: user %s on %s: %w", requesterID, conversationID, err)
	}
	msgs, err := s.convs.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load messages for %s: %w", conversationID, err)
	}
	return msgs, nil
}

// UnreadMessages returns the messages addressed to the reader that are
// still unread, in timestamp order.
func (s *Service) UnreadMessages(ctx context.Context, conversationID, readerID string) ([]model.Message, error) {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load %s: %w", conversationID, err)
	}
	readerIsBidder, err := participant(conv, readerID)
	if err != nil {
		return nil, fmt.Errorf("conversation: user %s on %s: %w", readerID, conversationID, err)
	}
	msgs, err := s.convs.UnreadMessages(ctx, conversationID, !readerIsBidder)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load unread messages for %s: %w", conversationID, err)
	}
	return msgs, nil
}

// MarkRead marks every message addressed to the reader as read
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID string) error {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("conversation: failed to load %s: %w", conversationID, err)
	}
	readerIsBidder, err := participant(conv, readerID)
	if err != nil {
		return fmt.Errorf("conversation: user %s on %s: %w", readerID, conversationID, err)
	}
	// messages addressed to the reader were sent by the other side
	if err := s.convs.MarkMessagesRead(ctx, conversationID, !readerIsBidder); err != nil {
		return fmt.Errorf("conversation: failed to mark messages read for %s: %w", conversationID, err)
	}
	return nil
}
