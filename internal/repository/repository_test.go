package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"

	"github.com/stretchr/testify/require"
)

// Helper to create a new Book
func newBook(bookID, ownerID string, price float64) model.Book {
	return model.Book{
		BookID:        bookID,
		OwnerID:       ownerID,
		Title:         fmt.Sprintf("%s title", bookID),
		Price:         price,
		IsBiddingOpen: true,
		CreatedAt:     time.Now().UTC(),
	}
}

// Helper to create a new pending Bid
func newBid(bidID, bookID, bidderID string, amount float64, createdAt time.Time) model.Bid {
	return model.Bid{
		BidID:     bidID,
		BookID:    bookID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    model.BidPending,
		CreatedAt: createdAt,
	}
}

// Test CreateBid
func TestMemoryRepo_CreateBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))

	tests := []struct {
		name      string
		bid       model.Bid
		wantError bool
	}{
		{name: "valid_bid", bid: newBid("bid1", "book1", "user1", 100, time.Now()), wantError: false},
		{name: "book_not_found", bid: newBid("bid2", "bookX", "user1", 50, time.Now()), wantError: true},
		{name: "bid_with_past_timestamp", bid: newBid("bid3", "book1", "user2", 120, time.Now().Add(-24*time.Hour)), wantError: false},
		{name: "empty_bookID", bid: newBid("bid4", "", "user3", 100, time.Now()), wantError: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := repo.CreateBid(ctx, tc.bid)
			if tc.wantError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				bids, err := repo.BidsForBook(ctx, tc.bid.BookID)
				require.NoError(t, err)
				require.Contains(t, bids, tc.bid)
			}
		})
	}
}

// Test HighestBid: largest amount wins, ties go to the earlier bid
func TestMemoryRepo_HighestBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))

	_, err := repo.HighestBid(ctx, "book1")
	require.ErrorIs(t, err, marketerrors.ErrNoBids)

	require.NoError(t, repo.CreateBid(ctx, newBid("bid1", "book1", "user1", 100, now)))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid2", "book1", "user2", 150, now.Add(time.Second))))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid3", "book1", "user3", 150, now.Add(2*time.Second))))

	bid, err := repo.HighestBid(ctx, "book1")
	require.NoError(t, err)
	require.Equal(t, "bid2", bid.BidID, "earlier bid wins the tie")
	require.Equal(t, 150.0, bid.Amount)
}

// Test LatestPendingBid: newest creation time among PENDING bids only
func TestMemoryRepo_LatestPendingBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))

	_, err := repo.LatestPendingBid(ctx, "book1")
	require.ErrorIs(t, err, marketerrors.ErrNoBids)

	require.NoError(t, repo.CreateBid(ctx, newBid("bid1", "book1", "user1", 200, now.Add(-2*time.Hour))))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid2", "book1", "user2", 100, now.Add(-time.Hour))))
	rejected := newBid("bid3", "book1", "user3", 300, now)
	rejected.Status = model.BidRejected
	require.NoError(t, repo.CreateBid(ctx, rejected))

	bid, err := repo.LatestPendingBid(ctx, "book1")
	require.NoError(t, err)
	require.Equal(t, "bid2", bid.BidID, "newest pending bid, not the largest amount")
}

// Test UpdateBidStatus: terminal states are immutable
func TestMemoryRepo_UpdateBidStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid1", "book1", "user1", 100, time.Now())))

	err := repo.UpdateBidStatus(ctx, "missing", model.BidRejected)
	require.ErrorIs(t, err, marketerrors.ErrBidNotFound)

	require.NoError(t, repo.UpdateBidStatus(ctx, "bid1", model.BidRejected))

	err = repo.UpdateBidStatus(ctx, "bid1", model.BidWon)
	require.ErrorIs(t, err, marketerrors.ErrBidFinalized)
}

// Test CloseAuction: winner promoted, competitors rejected, book closed
func TestMemoryRepo_CloseAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid1", "book1", "user1", 100, now)))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid2", "book1", "user2", 150, now.Add(time.Second))))
	require.NoError(t, repo.CreateBid(ctx, newBid("bid3", "book1", "user3", 120, now.Add(2*time.Second))))

	winner, rejectedBids, err := repo.CloseAuction(ctx, "book1", "bid2")
	require.NoError(t, err)
	require.Equal(t, model.BidWon, winner.Status)
	require.Len(t, rejectedBids, 2)
	for _, b := range rejectedBids {
		require.Equal(t, model.BidRejected, b.Status)
	}

	book, err := repo.GetBook(ctx, "book1")
	require.NoError(t, err)
	require.False(t, book.IsBiddingOpen)

	// a second close loses the race
	_, _, err = repo.CloseAuction(ctx, "book1", "bid1")
	require.ErrorIs(t, err, marketerrors.ErrAuctionAlreadyClosed)
}

// Concurrent closers: exactly one wins, every other gets
// ErrAuctionAlreadyClosed, and only one bid ends WON
func TestMemoryRepo_CloseAuction_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))

	const bidders = 10
	for i := 0; i < bidders; i++ {
		id := fmt.Sprintf("bid%d", i)
		require.NoError(t, repo.CreateBid(ctx, newBid(id, "book1", fmt.Sprintf("user%d", i), float64(100+i), now)))
	}

	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = repo.CloseAuction(ctx, "book1", fmt.Sprintf("bid%d", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, marketerrors.ErrAuctionAlreadyClosed)
		}
	}
	require.Equal(t, 1, succeeded)

	won := 0
	bids, err := repo.BidsForBook(ctx, "book1")
	require.NoError(t, err)
	for _, b := range bids {
		if b.Status == model.BidWon {
			won++
		}
	}
	require.Equal(t, 1, won)
}

// Test MarkSold: a sold book is closed for bidding
func TestMemoryRepo_MarkSold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 50)))

	require.NoError(t, repo.MarkSold(ctx, "book1"))

	book, err := repo.GetBook(ctx, "book1")
	require.NoError(t, err)
	require.True(t, book.IsSold)
	require.False(t, book.IsBiddingOpen)

	open, err := repo.ListOpenBooks(ctx)
	require.NoError(t, err)
	require.Empty(t, open)
}

// Test conversation lifecycle: one per bid, deactivation stamps the end
func TestMemoryRepo_Conversations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	conv := model.Conversation{
		ConversationID: "conv1",
		BidID:          "bid1",
		BidderID:       "user1",
		OwnerID:        "owner1",
		IsActive:       true,
		StartDate:      time.Now().UTC(),
	}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	dup := conv
	dup.ConversationID = "conv2"
	err := repo.CreateConversation(ctx, dup)
	require.ErrorIs(t, err, marketerrors.ErrConversationExists)

	byBid, err := repo.ConversationByBid(ctx, "bid1")
	require.NoError(t, err)
	require.Equal(t, "conv1", byBid.ConversationID)

	require.NoError(t, repo.SetConversationActive(ctx, "conv1", false))
	got, err := repo.GetConversation(ctx, "conv1")
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.NotNil(t, got.EndDate)
}

// Test MarkMessagesRead: only the matching direction flips
func TestMemoryRepo_MarkMessagesRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	conv := model.Conversation{ConversationID: "conv1", BidID: "bid1", BidderID: "user1", OwnerID: "owner1", IsActive: true, StartDate: now}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	require.NoError(t, repo.AddMessage(ctx, model.Message{MessageID: "m1", ConversationID: "conv1", Content: "hi", FromBidder: true, CreatedAt: now}))
	require.NoError(t, repo.AddMessage(ctx, model.Message{MessageID: "m2", ConversationID: "conv1", Content: "hello", FromBidder: false, CreatedAt: now.Add(time.Second)}))

	// the owner reads: bidder-sent messages flip
	require.NoError(t, repo.MarkMessagesRead(ctx, "conv1", true))

	msgs, err := repo.Messages(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.True(t, msgs[0].IsRead)
	require.False(t, msgs[1].IsRead)
}

// Test transactions: one per bid, settle is final
func TestMemoryRepo_Transactions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	tx := model.Transaction{
		TransactionID: "tx1",
		BidID:         "bid1",
		Amount:        100,
		Currency:      "usd",
		Status:        model.TransactionPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	dup := tx
	dup.TransactionID = "tx2"
	err := repo.CreateTransaction(ctx, dup)
	require.ErrorIs(t, err, marketerrors.ErrTransactionExists)

	settled, err := repo.SettleTransaction(ctx, "tx1", model.TransactionSucceeded)
	require.NoError(t, err)
	require.Equal(t, model.TransactionSucceeded, settled.Status)
	require.NotNil(t, settled.CompletionDate)

	_, err = repo.SettleTransaction(ctx, "tx1", model.TransactionFailed)
	require.ErrorIs(t, err, marketerrors.ErrTransactionFinalized)
}

// A failed settlement records the status without a completion date
func TestMemoryRepo_SettleTransaction_FailedLeavesNoCompletionDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	tx := model.Transaction{
		TransactionID: "tx1",
		BidID:         "bid1",
		Amount:        100,
		Currency:      "usd",
		Status:        model.TransactionPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	settled, err := repo.SettleTransaction(ctx, "tx1", model.TransactionFailed)
	require.NoError(t, err)
	require.Equal(t, model.TransactionFailed, settled.Status)
	require.Nil(t, settled.CompletionDate)
}

// Test the unread-message query: direction and read flag both filter
func TestMemoryRepo_UnreadMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	conv := model.Conversation{ConversationID: "conv1", BidID: "bid1", BidderID: "user1", OwnerID: "owner1", IsActive: true, StartDate: now}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	require.NoError(t, repo.AddMessage(ctx, model.Message{MessageID: "m1", ConversationID: "conv1", Content: "hi", FromBidder: true, CreatedAt: now}))
	require.NoError(t, repo.AddMessage(ctx, model.Message{MessageID: "m2", ConversationID: "conv1", Content: "hello", FromBidder: false, CreatedAt: now.Add(time.Second)}))
	require.NoError(t, repo.AddMessage(ctx, model.Message{MessageID: "m3", ConversationID: "conv1", Content: "still there?", FromBidder: true, CreatedAt: now.Add(2 * time.Second)}))

	unread, err := repo.UnreadMessages(ctx, "conv1", true)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	require.Equal(t, "m1", unread[0].MessageID)
	require.Equal(t, "m3", unread[1].MessageID)

	require.NoError(t, repo.MarkMessagesRead(ctx, "conv1", true))

	unread, err = repo.UnreadMessages(ctx, "conv1", true)
	require.NoError(t, err)
	require.Empty(t, unread)

	unread, err = repo.UnreadMessages(ctx, "conv1", false)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	_, err = repo.UnreadMessages(ctx, "missing", true)
	require.ErrorIs(t, err, marketerrors.ErrConversationNotFound)
}

// A non-positive limit pages with the default size
func TestMemoryRepo_BidsByUser_DefaultLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateBook(ctx, newBook("book1", "owner1", 10)))

	now := time.Now().UTC()
	for i := 0; i < DefaultBidPageSize+5; i++ {
		bid := newBid(fmt.Sprintf("bid%d", i), "book1", "user1", float64(11+i), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.CreateBid(ctx, bid))
	}

	bids, err := repo.BidsByUser(ctx, "user1", 0, 0)
	require.NoError(t, err)
	require.Len(t, bids, DefaultBidPageSize)
	// newest first
	require.Equal(t, fmt.Sprintf("bid%d", DefaultBidPageSize+4), bids[0].BidID)
}

// Test notifications: newest first, read flag, delete
func TestMemoryRepo_Notifications(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateNotification(ctx, model.Notification{NotificationID: "n1", UserID: "user1", Type: model.NotificationBidPlaced, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.CreateNotification(ctx, model.Notification{NotificationID: "n2", UserID: "user1", Type: model.NotificationAuctionWon, CreatedAt: now}))

	notifs, err := repo.NotificationsForUser(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	require.Equal(t, "n2", notifs[0].NotificationID, "newest first")

	require.NoError(t, repo.MarkNotificationRead(ctx, "n1"))
	notifs, err = repo.NotificationsForUser(ctx, "user1")
	require.NoError(t, err)
	require.True(t, notifs[1].Read)

	require.NoError(t, repo.DeleteNotification(ctx, "n2"))
	notifs, err = repo.NotificationsForUser(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, notifs, 1)

	err = repo.DeleteNotification(ctx, "n2")
	require.ErrorIs(t, err, marketerrors.ErrNotificationNotFound)
}
