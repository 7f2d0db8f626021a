package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of Store.
// It backs the test suite and local development without a database;
// the single mutex serializes all bid-state mutation, which upholds
// the one-WON-bid-per-book invariant.
type MemoryRepo struct {
	mu            sync.RWMutex
	books         map[string]model.Book
	bids          map[string]model.Bid
	bookBids      map[string][]string // key: bookID -> value: bid IDs in insertion order
	conversations map[string]model.Conversation
	bidConv       map[string]string // key: bidID -> value: conversationID
	messages      map[string][]model.Message
	notifications map[string]model.Notification
	userNotifs    map[string][]string // key: userID -> value: notification IDs in insertion order
	transactions  map[string]model.Transaction
	bidTx         map[string]string // key: bidID -> value: transactionID
	users         map[string]model.User
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		books:         make(map[string]model.Book),
		bids:          make(map[string]model.Bid),
		bookBids:      make(map[string][]string),
		conversations: make(map[string]model.Conversation),
		bidConv:       make(map[string]string),
		messages:      make(map[string][]model.Message),
		notifications: make(map[string]model.Notification),
		userNotifs:    make(map[string][]string),
		transactions:  make(map[string]model.Transaction),
		bidTx:         make(map[string]string),
		users:         make(map[string]model.User),
	}
}

// ----- BookStore -----

func (r *MemoryRepo) CreateBook(_ context.Context, book model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.BookID] = book
	return nil
}

func (r *MemoryRepo) GetBook(_ context.Context, bookID string) (model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[bookID]
	if !ok {
		return model.Book{}, fmt.Errorf("get book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	return book, nil
}

func (r *MemoryRepo) ListOpenBooks(_ context.Context) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var books []model.Book
	for _, b := range r.books {
		if b.IsBiddingOpen {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.Before(books[j].CreatedAt) })
	return books, nil
}

func (r *MemoryRepo) ListBooksByOwner(_ context.Context, ownerID string) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var books []model.Book
	for _, b := range r.books {
		if b.OwnerID == ownerID {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.Before(books[j].CreatedAt) })
	return books, nil
}

func (r *MemoryRepo) SetBiddingOpen(_ context.Context, bookID string, open bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[bookID]
	if !ok {
		return fmt.Errorf("set bidding open for book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	book.IsBiddingOpen = open
	r.books[bookID] = book
	return nil
}

func (r *MemoryRepo) MarkSold(_ context.Context, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[bookID]
	if !ok {
		return fmt.Errorf("mark book %s sold: %w", bookID, marketerrors.ErrBookNotFound)
	}
	// a sold book is never open for bidding
	book.IsSold = true
	book.IsBiddingOpen = false
	r.books[bookID] = book
	return nil
}

// ----- BidStore -----

func (r *MemoryRepo) CreateBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[bid.BookID]; !ok {
		return fmt.Errorf("record bid for book %s: %w", bid.BookID, marketerrors.ErrBookNotFound)
	}
	r.bids[bid.BidID] = bid
	r.bookBids[bid.BookID] = append(r.bookBids[bid.BookID], bid.BidID)
	return nil
}

func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	return bid, nil
}

func (r *MemoryRepo) BidsForBook(_ context.Context, bookID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bookBids[bookID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("get bids for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	bids := make([]model.Bid, 0, len(ids))
	for _, id := range ids {
		bids = append(bids, r.bids[id])
	}
	return bids, nil
}

func (r *MemoryRepo) HighestBid(_ context.Context, bookID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.highestBidLocked(bookID)
}

func (r *MemoryRepo) highestBidLocked(bookID string) (model.Bid, error) {
	ids := r.bookBids[bookID]
	if len(ids) == 0 {
		return model.Bid{}, fmt.Errorf("get highest bid for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	winning := r.bids[ids[0]]
	for _, id := range ids[1:] {
		b := r.bids[id]
		if b.Amount > winning.Amount || (b.Amount == winning.Amount && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, nil
}

func (r *MemoryRepo) LatestPendingBid(_ context.Context, bookID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest model.Bid
	found := false
	for _, id := range r.bookBids[bookID] {
		b := r.bids[id]
		if b.Status != model.BidPending {
			continue
		}
		if !found || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
			found = true
		}
	}
	if !found {
		return model.Bid{}, fmt.Errorf("get latest pending bid for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	return latest, nil
}

func (r *MemoryRepo) BidsByUser(_ context.Context, userID string, limit, offset int) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var bids []model.Bid
	for _, b := range r.bids {
		if b.BidderID == userID {
			bids = append(bids, b)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	if limit <= 0 {
		limit = DefaultBidPageSize
	}
	if offset >= len(bids) {
		return []model.Bid{}, nil
	}
	bids = bids[offset:]
	if limit < len(bids) {
		bids = bids[:limit]
	}
	return bids, nil
}

func (r *MemoryRepo) UpdateBidStatus(_ context.Context, bidID string, status model.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.bids[bidID]
	if !ok {
		return fmt.Errorf("update status of bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	if bid.Status.Terminal() {
		return fmt.Errorf("update status of bid %s: %w", bidID, marketerrors.ErrBidFinalized)
	}
	bid.Status = status
	r.bids[bidID] = bid
	return nil
}

func (r *MemoryRepo) CloseAuction(_ context.Context, bookID, winningBidID string) (model.Bid, []model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	book, ok := r.books[bookID]
	if !ok {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	winner, ok := r.bids[winningBidID]
	if !ok || winner.BookID != bookID {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrBidNotFound)
	}

	// re-validate the close condition under the lock; a racing writer
	// that lost gets ErrAuctionAlreadyClosed and must abandon
	if !book.IsBiddingOpen || winner.Status != model.BidPending {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrAuctionAlreadyClosed)
	}

	winner.Status = model.BidWon
	r.bids[winner.BidID] = winner

	book.IsBiddingOpen = false
	r.books[bookID] = book

	var rejected []model.Bid
	for _, id := range r.bookBids[bookID] {
		if id == winner.BidID {
			continue
		}
		b := r.bids[id]
		if b.Status != model.BidPending {
			continue
		}
		b.Status = model.BidRejected
		r.bids[id] = b
		rejected = append(rejected, b)
	}

	return winner, rejected, nil
}

// ----- ConversationStore -----

func (r *MemoryRepo) CreateConversation(_ context.Context, conv model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bidConv[conv.BidID]; ok {
		return fmt.Errorf("create conversation for bid %s: %w", conv.BidID, marketerrors.ErrConversationExists)
	}
	r.conversations[conv.ConversationID] = conv
	r.bidConv[conv.BidID] = conv.ConversationID
	return nil
}

func (r *MemoryRepo) GetConversation(_ context.Context, conversationID string) (model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return model.Conversation{}, fmt.Errorf("get conversation %s: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	return conv, nil
}

func (r *MemoryRepo) ConversationByBid(_ context.Context, bidID string) (model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bidConv[bidID]
	if !ok {
		return model.Conversation{}, fmt.Errorf("get conversation for bid %s: %w", bidID, marketerrors.ErrConversationNotFound)
	}
	return r.conversations[id], nil
}

func (r *MemoryRepo) ConversationsForUser(_ context.Context, userID string) ([]model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var convs []model.Conversation
	for _, c := range r.conversations {
		if c.BidderID == userID || c.OwnerID == userID {
			convs = append(convs, c)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].StartDate.Before(convs[j].StartDate) })
	return convs, nil
}

func (r *MemoryRepo) SetConversationActive(_ context.Context, conversationID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return fmt.Errorf("set conversation %s active: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	conv.IsActive = active
	if !active && conv.EndDate == nil {
		now := time.Now().UTC()
		conv.EndDate = &now
	}
	r.conversations[conversationID] = conv
	return nil
}

func (r *MemoryRepo) AddMessage(_ context.Context, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("add message to conversation %s: %w", msg.ConversationID, marketerrors.ErrConversationNotFound)
	}
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], msg)
	return nil
}

func (r *MemoryRepo) Messages(_ context.Context, conversationID string) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("get messages for conversation %s: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	msgs := append([]model.Message(nil), r.messages[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (r *MemoryRepo) UnreadMessages(_ context.Context, conversationID string, sentByBidder bool) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("get unread messages for conversation %s: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	var msgs []model.Message
	for _, m := range r.messages[conversationID] {
		if m.FromBidder == sentByBidder && !m.IsRead {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (r *MemoryRepo) MarkMessagesRead(_ context.Context, conversationID string, sentByBidder bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return fmt.Errorf("mark messages read for conversation %s: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	msgs := r.messages[conversationID]
	for i := range msgs {
		if msgs[i].FromBidder == sentByBidder {
			msgs[i].IsRead = true
		}
	}
	r.messages[conversationID] = msgs
	return nil
}

// ----- NotificationStore -----

func (r *MemoryRepo) CreateNotification(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.NotificationID] = n
	r.userNotifs[n.UserID] = append(r.userNotifs[n.UserID], n.NotificationID)
	return nil
}

func (r *MemoryRepo) NotificationsForUser(_ context.Context, userID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.userNotifs[userID]
	notifs := make([]model.Notification, 0, len(ids))
	for _, id := range ids {
		if n, ok := r.notifications[id]; ok {
			notifs = append(notifs, n)
		}
	}
	// newest first
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (r *MemoryRepo) MarkNotificationRead(_ context.Context, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[notificationID]
	if !ok {
		return fmt.Errorf("mark notification %s read: %w", notificationID, marketerrors.ErrNotificationNotFound)
	}
	n.Read = true
	r.notifications[notificationID] = n
	return nil
}

func (r *MemoryRepo) DeleteNotification(_ context.Context, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[notificationID]
	if !ok {
		return fmt.Errorf("delete notification %s: %w", notificationID, marketerrors.ErrNotificationNotFound)
	}
	delete(r.notifications, notificationID)
	ids := r.userNotifs[n.UserID]
	for i, id := range ids {
		if id == notificationID {
			r.userNotifs[n.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// ----- TransactionStore -----

func (r *MemoryRepo) CreateTransaction(_ context.Context, tx model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bidTx[tx.BidID]; ok {
		return fmt.Errorf("create transaction for bid %s: %w", tx.BidID, marketerrors.ErrTransactionExists)
	}
	r.transactions[tx.TransactionID] = tx
	r.bidTx[tx.BidID] = tx.TransactionID
	return nil
}

func (r *MemoryRepo) GetTransaction(_ context.Context, transactionID string) (model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.transactions[transactionID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("get transaction %s: %w", transactionID, marketerrors.ErrTransactionNotFound)
	}
	return tx, nil
}

func (r *MemoryRepo) TransactionByBid(_ context.Context, bidID string) (model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bidTx[bidID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("get transaction for bid %s: %w", bidID, marketerrors.ErrTransactionNotFound)
	}
	return r.transactions[id], nil
}

func (r *MemoryRepo) SettleTransaction(_ context.Context, transactionID string, status model.TransactionStatus) (model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[transactionID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, marketerrors.ErrTransactionNotFound)
	}
	if tx.Status.Terminal() {
		return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, marketerrors.ErrTransactionFinalized)
	}
	tx.Status = status
	if status == model.TransactionSucceeded {
		now := time.Now().UTC()
		tx.CompletionDate = &now
	}
	r.transactions[transactionID] = tx
	return tx, nil
}

// ----- UserStore -----

func (r *MemoryRepo) CreateUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
	return nil
}

func (r *MemoryRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, marketerrors.ErrUserNotFound)
	}
	return user, nil
}
