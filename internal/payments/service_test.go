package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"bidbook/internal/conversation"
	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/internal/repository"
	"bidbook/internal/stripe"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *repository.MemoryRepo
	gateway *stripe.MockGateway
	convs   *conversation.Service
	service *Service
	book    model.Book
	bid     model.Bid
}

func newFixture(t *testing.T, bidStatus model.BidStatus) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := repository.NewMemoryRepo()
	gateway := stripe.NewMockGateway(ctrl)
	registry := notifications.NewRegistry()
	dispatcher := notifications.NewDispatcher(repo, repo, registry, nil, nil)
	convs := conversation.NewService(repo, repo, nil)

	ctx := context.Background()
	book := model.Book{BookID: uuid.NewString(), OwnerID: "owner1", Title: "Snow Crash", Price: 20, IsBiddingOpen: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateBook(ctx, book))
	bid := model.Bid{BidID: uuid.NewString(), BookID: book.BookID, BidderID: "user1", Amount: 35, Status: bidStatus, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateBid(ctx, bid))

	return &fixture{
		repo:    repo,
		gateway: gateway,
		convs:   convs,
		service: NewService(repo, repo, repo, gateway, dispatcher, convs),
		book:    book,
		bid:     bid,
	}
}

// CreateForBid opens a pending transaction backed by a payment intent
func TestPaymentService_CreateForBid(t *testing.T) {
	f := newFixture(t, model.BidWon)
	ctx := context.Background()

	f.gateway.EXPECT().
		CreatePaymentIntent(gomock.Any(), 35.0, "usd").
		Return(&stripe.PaymentIntent{IntentID: "pi_123", ClientSecret: "pi_123_secret", Amount: 3500, Currency: "usd"}, nil).
		Times(2)

	created, err := f.service.CreateForBid(ctx, f.bid.BidID)
	require.NoError(t, err)
	require.Equal(t, "pi_123_secret", created.ClientSecret)
	require.Equal(t, model.TransactionPending, created.Transaction.Status)
	require.Equal(t, "pi_123", created.Transaction.PaymentIntentID)
	require.Equal(t, 35.0, created.Transaction.Amount)

	// one transaction per bid
	_, err = f.service.CreateForBid(ctx, f.bid.BidID)
	require.ErrorIs(t, err, marketerrors.ErrTransactionExists)
}

// Only a WON bid can be settled
func TestPaymentService_CreateForBid_RequiresWonBid(t *testing.T) {
	f := newFixture(t, model.BidPending)
	ctx := context.Background()

	_, err := f.service.CreateForBid(ctx, f.bid.BidID)
	require.ErrorIs(t, err, marketerrors.ErrBidNotWon)

	_, err = f.service.CreateForBid(ctx, "missing")
	require.ErrorIs(t, err, marketerrors.ErrBidNotFound)
}

// Without a configured gateway, transaction creation is disabled
func TestPaymentService_CreateForBid_GatewayUnconfigured(t *testing.T) {
	repo := repository.NewMemoryRepo()
	convs := conversation.NewService(repo, repo, nil)
	svc := NewService(repo, repo, repo, nil, nil, convs)
	ctx := context.Background()

	book := model.Book{BookID: uuid.NewString(), OwnerID: "owner1", Title: "Snow Crash", Price: 20, IsBiddingOpen: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateBook(ctx, book))
	bid := model.Bid{BidID: uuid.NewString(), BookID: book.BookID, BidderID: "user1", Amount: 35, Status: model.BidWon, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateBid(ctx, bid))

	_, err := svc.CreateForBid(ctx, bid.BidID)
	require.ErrorIs(t, err, marketerrors.ErrPaymentsDisabled)

	_, err = repo.TransactionByBid(ctx, bid.BidID)
	require.ErrorIs(t, err, marketerrors.ErrTransactionNotFound)
}

// A gateway outage fails the creation without storing anything
func TestPaymentService_CreateForBid_GatewayFailure(t *testing.T) {
	f := newFixture(t, model.BidWon)
	ctx := context.Background()

	f.gateway.EXPECT().
		CreatePaymentIntent(gomock.Any(), 35.0, "usd").
		Return(nil, errors.New("stripe unavailable"))

	_, err := f.service.CreateForBid(ctx, f.bid.BidID)
	require.Error(t, err)

	_, err = f.repo.TransactionByBid(ctx, f.bid.BidID)
	require.ErrorIs(t, err, marketerrors.ErrTransactionNotFound)
}

func (f *fixture) createTransaction(t *testing.T) model.Transaction {
	t.Helper()
	f.gateway.EXPECT().
		CreatePaymentIntent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&stripe.PaymentIntent{IntentID: "pi_123", ClientSecret: "s", Amount: 3500, Currency: "usd"}, nil)
	created, err := f.service.CreateForBid(context.Background(), f.bid.BidID)
	require.NoError(t, err)
	return created.Transaction
}

// A succeeded settlement marks the book sold, closes the conversation
// and notifies both parties
func TestPaymentService_Settle_Succeeded(t *testing.T) {
	f := newFixture(t, model.BidWon)
	ctx := context.Background()

	_, err := f.convs.CreateForBid(ctx, f.bid)
	require.NoError(t, err)
	tx := f.createTransaction(t)

	settled, err := f.service.Settle(ctx, tx.TransactionID, model.TransactionSucceeded)
	require.NoError(t, err)
	require.Equal(t, model.TransactionSucceeded, settled.Status)
	require.NotNil(t, settled.CompletionDate)

	book, err := f.repo.GetBook(ctx, f.book.BookID)
	require.NoError(t, err)
	require.True(t, book.IsSold)
	require.False(t, book.IsBiddingOpen)

	conv, err := f.convs.FindByBid(ctx, f.bid.BidID)
	require.NoError(t, err)
	require.False(t, conv.IsActive)

	buyerNotifs, err := f.repo.NotificationsForUser(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, buyerNotifs, 1)
	require.Equal(t, model.NotificationPaymentSucceeded, buyerNotifs[0].Type)

	sellerNotifs, err := f.repo.NotificationsForUser(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, sellerNotifs, 1)
	require.Equal(t, model.NotificationBookSold, sellerNotifs[0].Type)
}

// A failed settlement records the status and nothing else: the book
// stays unsold and the conversation stays open
func TestPaymentService_Settle_Failed(t *testing.T) {
	f := newFixture(t, model.BidWon)
	ctx := context.Background()

	_, err := f.convs.CreateForBid(ctx, f.bid)
	require.NoError(t, err)
	tx := f.createTransaction(t)

	settled, err := f.service.Settle(ctx, tx.TransactionID, model.TransactionFailed)
	require.NoError(t, err)
	require.Equal(t, model.TransactionFailed, settled.Status)
	require.Nil(t, settled.CompletionDate, "only success stamps the completion date")

	book, err := f.repo.GetBook(ctx, f.book.BookID)
	require.NoError(t, err)
	require.False(t, book.IsSold)

	conv, err := f.convs.FindByBid(ctx, f.bid.BidID)
	require.NoError(t, err)
	require.True(t, conv.IsActive)

	notifs, err := f.repo.NotificationsForUser(ctx, "user1")
	require.NoError(t, err)
	require.Empty(t, notifs)
}

// Settled transactions are immutable and only terminal statuses settle
func TestPaymentService_Settle_Guards(t *testing.T) {
	f := newFixture(t, model.BidWon)
	ctx := context.Background()

	tx := f.createTransaction(t)

	_, err := f.service.Settle(ctx, tx.TransactionID, model.TransactionPending)
	require.ErrorIs(t, err, marketerrors.ErrInvalidStatus)

	_, err = f.service.Settle(ctx, tx.TransactionID, model.TransactionSucceeded)
	require.NoError(t, err)

	_, err = f.service.Settle(ctx, tx.TransactionID, model.TransactionFailed)
	require.ErrorIs(t, err, marketerrors.ErrTransactionFinalized)

	_, err = f.service.Settle(ctx, "missing", model.TransactionFailed)
	require.ErrorIs(t, err, marketerrors.ErrTransactionNotFound)
}
