package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"bidbook/internal/auction"
	bidding "bidbook/internal/biddingService"
	"bidbook/internal/books"
	"bidbook/internal/chat"
	"bidbook/internal/conversation"
	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/internal/payments"
	"bidbook/internal/repository"
	"bidbook/internal/server"
	"bidbook/internal/stripe"
	handler "bidbook/services/marketplace/handler"
)

// stubGateway approves every payment intent without talking to Stripe
type stubGateway struct{}

func (stubGateway) CreatePaymentIntent(_ context.Context, amount float64, currency string) (*stripe.PaymentIntent, error) {
	if currency == "" {
		currency = "usd"
	}
	return &stripe.PaymentIntent{
		IntentID:     "pi_test",
		ClientSecret: "pi_test_secret",
		Amount:       int64(amount * 100),
		Currency:     currency,
	}, nil
}

// Env is the fully wired application under test, backed by the
// in-memory store
type Env struct {
	Router    *gin.Engine
	Repo      *repository.MemoryRepo
	Scheduler *auction.Scheduler
}

// SetupTestEnv wires the whole stack with an in-memory store and seeds
// it with the given books. Users owner1/user1/user2 always exist.
func SetupTestEnv(t *testing.T, seedBooks ...model.Book) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	repo := repository.NewMemoryRepo()

	for _, u := range []model.User{
		{UserID: "owner1", Username: "owner1", Email: "owner1@example.com"},
		{UserID: "user1", Username: "user1", Email: "user1@example.com"},
		{UserID: "user2", Username: "user2", Email: "user2@example.com"},
	} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}
	for _, b := range seedBooks {
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now().UTC()
		}
		if err := repo.CreateBook(ctx, b); err != nil {
			t.Fatalf("failed to seed book: %v", err)
		}
	}

	registry := notifications.NewRegistry()
	dispatcher := notifications.NewDispatcher(repo, repo, registry, nil, nil)
	convSvc := conversation.NewService(repo, repo, nil)
	hub := chat.NewHub(convSvc)
	convSvc.SetPusher(hub)

	biddingSvc := bidding.NewBiddingService(repo, repo, dispatcher, convSvc, 24*time.Hour)
	bookSvc := books.NewService(repo, repo, nil)
	paymentSvc := payments.NewService(repo, repo, repo, stubGateway{}, dispatcher, convSvc)
	scheduler := auction.NewScheduler(repo, repo, biddingSvc, 24*time.Hour, time.Minute)

	router := server.SetupRouter(server.Handlers{
		Books:         handler.NewBookHandler(bookSvc),
		Bids:          handler.NewBidHandler(biddingSvc),
		Notifications: handler.NewNotificationHandler(dispatcher),
		Conversations: handler.NewConversationHandler(convSvc, hub),
		Payments:      handler.NewPaymentHandler(paymentSvc),
	})

	return &Env{Router: router, Repo: repo, Scheduler: scheduler}
}

// openBook builds a seedable open listing
func openBook(bookID, ownerID string, price float64) model.Book {
	return model.Book{
		BookID:        bookID,
		OwnerID:       ownerID,
		Title:         bookID + " title",
		Price:         price,
		IsBiddingOpen: true,
		CreatedAt:     time.Now().UTC(),
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and
// parses the JSON envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// dataObject extracts the "data" object from the response envelope
func dataObject(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}
