package server

import (
	handler "bidbook/services/marketplace/handler"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers the router mounts
type Handlers struct {
	Books         *handler.BookHandler
	Bids          *handler.BidHandler
	Notifications *handler.NotificationHandler
	Conversations *handler.ConversationHandler
	Payments      *handler.PaymentHandler
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	books := router.Group("/books")
	{
		books.POST("", h.Books.CreateBookHandler)
		books.GET("", h.Books.ListOpenBooksHandler)
		books.GET("/:book_id", h.Books.GetBookHandler)
		books.GET("/:book_id/bids", h.Bids.GetBidsByBookHandler)
		books.GET("/:book_id/highest", h.Bids.GetHighestBidHandler)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", h.Bids.PlaceBidHandler)
		bids.POST("/:bid_id/accept", h.Bids.AcceptBidHandler)
		bids.POST("/:bid_id/reject", h.Bids.RejectBidHandler)
		bids.GET("/:bid_id/conversation", h.Conversations.GetConversationByBidHandler)
		bids.GET("/:bid_id/transaction", h.Payments.GetTransactionByBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/books", h.Books.GetBooksByOwnerHandler)
		users.GET("/:user_id/bids", h.Bids.GetBidsByUserHandler)
		users.GET("/:user_id/notifications", h.Notifications.ListNotificationsHandler)
		users.GET("/:user_id/conversations", h.Conversations.ListConversationsHandler)
	}

	notifications := router.Group("/notifications")
	{
		notifications.GET("/stream", h.Notifications.StreamNotificationsHandler)
		notifications.POST("/:notification_id/read", h.Notifications.MarkNotificationReadHandler)
		notifications.DELETE("/:notification_id", h.Notifications.DeleteNotificationHandler)
	}

	conversations := router.Group("/conversations")
	{
		conversations.GET("/:conversation_id/messages", h.Conversations.GetMessagesHandler)
		conversations.GET("/:conversation_id/unread", h.Conversations.GetUnreadMessagesHandler)
		conversations.POST("/:conversation_id/read", h.Conversations.MarkConversationReadHandler)
	}

	transactions := router.Group("/transactions")
	{
		transactions.POST("/bid/:bid_id", h.Payments.CreateTransactionHandler)
		transactions.GET("/:transaction_id", h.Payments.GetTransactionHandler)
		transactions.PATCH("/:transaction_id/status", h.Payments.SettleTransactionHandler)
	}

	router.GET("/ws/chat", h.Conversations.ChatSocketHandler)

	return router
}
