package main

import (
	"context"
	"fmt"
	"os"

	"bidbook/config"
	"bidbook/internal/auction"
	bidding "bidbook/internal/biddingService"
	"bidbook/internal/books"
	"bidbook/internal/chat"
	"bidbook/internal/conversation"
	"bidbook/internal/mail"
	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/internal/payments"
	"bidbook/internal/pricing"
	"bidbook/internal/repository"
	"bidbook/internal/server"
	"bidbook/internal/stripe"
	handler "bidbook/services/marketplace/handler"
	"bidbook/utils"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	registry := notifications.NewRegistry()

	var publisher notifications.Publisher
	if cfg.RedisAddr != "" {
		fanout, err := notifications.NewRedisFanout(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
			os.Exit(1)
		}
		defer fanout.Close()
		go func() {
			if err := fanout.Listen(ctx, registry); err != nil && ctx.Err() == nil {
				utils.Error("redis fanout listener stopped", map[string]any{"error": err.Error()})
			}
		}()
		publisher = fanout
	}

	var mailer mail.Sender
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	var predictor pricing.Predictor
	if cfg.PredictorURL != "" {
		predictor = pricing.NewHTTP(cfg.PredictorURL)
	}

	dispatcher := notifications.NewDispatcher(store, store, registry, publisher, mailer)

	convSvc := conversation.NewService(store, store, nil)
	hub := chat.NewHub(convSvc)
	convSvc.SetPusher(hub)
	go hub.Run(ctx)

	var gateway stripe.Gateway
	if cfg.StripeKey != "" {
		gateway = stripe.NewHTTP(cfg.StripeKey)
	}

	biddingSvc := bidding.NewBiddingService(store, store, dispatcher, convSvc, cfg.BiddingWindow)
	bookSvc := books.NewService(store, store, predictor)
	paymentSvc := payments.NewService(store, store, store, gateway, dispatcher, convSvc)

	scheduler := auction.NewScheduler(store, store, biddingSvc, cfg.BiddingWindow, cfg.TickInterval)
	if err := scheduler.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	router := server.SetupRouter(server.Handlers{
		Books:         handler.NewBookHandler(bookSvc),
		Bids:          handler.NewBidHandler(biddingSvc),
		Notifications: handler.NewNotificationHandler(dispatcher),
		Conversations: handler.NewConversationHandler(convSvc, hub),
		Payments:      handler.NewPaymentHandler(paymentSvc),
	})

	addr := ":" + cfg.Port
	fmt.Printf("Starting marketplace server on %s...\n", addr)
	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// openStore picks the persistence backend: Postgres when DATABASE_URL
// is set, in-memory otherwise. The memory store is seeded with demo
// users so the API is usable out of the box.
func openStore(ctx context.Context, cfg config.App) (repository.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := repository.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		utils.Info("using postgres store", nil)
		return pg, pg.Close, nil
	}

	repo := repository.NewMemoryRepo()
	prepopulateUsers(ctx, repo)
	utils.Info("using in-memory store", nil)
	return repo, func() {}, nil
}

// prepopulateUsers adds sample users to the in-memory repo
func prepopulateUsers(ctx context.Context, repo *repository.MemoryRepo) {
	users := []model.User{
		{UserID: "user1", Username: "alice", Email: "alice@example.com"},
		{UserID: "user2", Username: "bob", Email: "bob@example.com"},
		{UserID: "user3", Username: "carol", Email: "carol@example.com"},
	}

	for _, user := range users {
		if err := repo.CreateUser(ctx, user); err != nil {
			utils.Warn("failed to seed user", map[string]any{"user_id": user.UserID, "error": err.Error()})
		}
	}
}
