package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bidbook/internal/marketerrors"
	model "bidbook/internal/models"
)

// PostgresRepo is the relational implementation of Store backed by pgx.
// Bid-state mutation for a book is serialized with row-level locks so
// that at most one bid per book can ever reach WON.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo connects a pool to the given DSN
func NewPostgresRepo(ctx context.Context, dsn string) (*PostgresRepo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepo{pool: pool}, nil
}

// Close releases the underlying pool
func (r *PostgresRepo) Close() { r.pool.Close() }

// EnsureSchema creates the marketplace tables when they do not exist yet
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
	user_id  TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS books (
	book_id         TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL REFERENCES users(user_id),
	title           TEXT NOT NULL,
	author          TEXT NOT NULL DEFAULT '',
	editor          TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT 'OTHER',
	language        TEXT NOT NULL DEFAULT 'ENGLISH',
	edition         INT NOT NULL DEFAULT 1,
	total_pages     INT NOT NULL DEFAULT 0,
	damaged_pages   INT NOT NULL DEFAULT 0,
	age             INT NOT NULL DEFAULT 0,
	price           DOUBLE PRECISION NOT NULL DEFAULT 0,
	picture         TEXT NOT NULL DEFAULT '',
	is_bidding_open BOOLEAN NOT NULL DEFAULT TRUE,
	is_sold         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS bids (
	bid_id     TEXT PRIMARY KEY,
	book_id    TEXT NOT NULL REFERENCES books(book_id) ON DELETE CASCADE,
	bidder_id  TEXT NOT NULL REFERENCES users(user_id),
	amount     DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL UNIQUE REFERENCES bids(bid_id) ON DELETE CASCADE,
	bidder_id       TEXT NOT NULL,
	owner_id        TEXT NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	start_date      TIMESTAMPTZ NOT NULL DEFAULT now(),
	end_date        TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS messages (
	message_id      TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
	content         TEXT NOT NULL,
	from_bidder     BOOLEAN NOT NULL DEFAULT TRUE,
	is_read         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS notifications (
	notification_id TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	type            TEXT NOT NULL,
	message         TEXT NOT NULL,
	data            JSONB,
	read            BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id    TEXT PRIMARY KEY,
	bid_id            TEXT NOT NULL UNIQUE REFERENCES bids(bid_id) ON DELETE CASCADE,
	payment_intent_id TEXT NOT NULL DEFAULT '',
	amount            DOUBLE PRECISION NOT NULL,
	currency          TEXT NOT NULL DEFAULT 'usd',
	status            TEXT NOT NULL DEFAULT 'pending',
	completion_date   TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_bids_book_status ON bids (book_id, status);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC);
`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ----- BookStore -----

const bookColumns = `book_id, owner_id, title, author, editor, category, language, edition,
	total_pages, damaged_pages, age, price, picture, is_bidding_open, is_sold, created_at`

func scanBook(row pgx.Row) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.BookID, &b.OwnerID, &b.Title, &b.Author, &b.Editor, &b.Category,
		&b.Language, &b.Edition, &b.TotalPages, &b.DamagedPages, &b.Age, &b.Price,
		&b.Picture, &b.IsBiddingOpen, &b.IsSold, &b.CreatedAt)
	return b, err
}

func (r *PostgresRepo) CreateBook(ctx context.Context, book model.Book) error {
	const q = `
INSERT INTO books (` + bookColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.pool.Exec(ctx, q, book.BookID, book.OwnerID, book.Title, book.Author,
		book.Editor, book.Category, book.Language, book.Edition, book.TotalPages,
		book.DamagedPages, book.Age, book.Price, book.Picture, book.IsBiddingOpen,
		book.IsSold, book.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book %s: %w", book.BookID, err)
	}
	return nil
}

func (r *PostgresRepo) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE book_id = $1`
	book, err := scanBook(r.pool.QueryRow(ctx, q, bookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Book{}, fmt.Errorf("get book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("get book %s: %w", bookID, err)
	}
	return book, nil
}

func (r *PostgresRepo) queryBooks(ctx context.Context, q string, args ...any) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *PostgresRepo) ListOpenBooks(ctx context.Context) ([]model.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE is_bidding_open ORDER BY created_at`
	books, err := r.queryBooks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list open books: %w", err)
	}
	return books, nil
}

func (r *PostgresRepo) ListBooksByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE owner_id = $1 ORDER BY created_at`
	books, err := r.queryBooks(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books for owner %s: %w", ownerID, err)
	}
	return books, nil
}

func (r *PostgresRepo) SetBiddingOpen(ctx context.Context, bookID string, open bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE books SET is_bidding_open = $2 WHERE book_id = $1`, bookID, open)
	if err != nil {
		return fmt.Errorf("set bidding open for book %s: %w", bookID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set bidding open for book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	return nil
}

func (r *PostgresRepo) MarkSold(ctx context.Context, bookID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE books SET is_sold = TRUE, is_bidding_open = FALSE WHERE book_id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("mark book %s sold: %w", bookID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark book %s sold: %w", bookID, marketerrors.ErrBookNotFound)
	}
	return nil
}

// ----- BidStore -----

const bidColumns = `bid_id, book_id, bidder_id, amount, status, created_at`

func scanBid(row pgx.Row) (model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.BidID, &b.BookID, &b.BidderID, &b.Amount, &b.Status, &b.CreatedAt)
	return b, err
}

func (r *PostgresRepo) CreateBid(ctx context.Context, bid model.Bid) error {
	const q = `
INSERT INTO bids (` + bidColumns + `)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, q, bid.BidID, bid.BookID, bid.BidderID, bid.Amount, bid.Status, bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bid %s for book %s: %w", bid.BidID, bid.BookID, err)
	}
	return nil
}

func (r *PostgresRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	const q = `SELECT ` + bidColumns + ` FROM bids WHERE bid_id = $1`
	bid, err := scanBid(r.pool.QueryRow(ctx, q, bidID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, err)
	}
	return bid, nil
}

func (r *PostgresRepo) queryBids(ctx context.Context, q string, args ...any) ([]model.Bid, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *PostgresRepo) BidsForBook(ctx context.Context, bookID string) ([]model.Bid, error) {
	const q = `SELECT ` + bidColumns + ` FROM bids WHERE book_id = $1 ORDER BY created_at`
	bids, err := r.queryBids(ctx, q, bookID)
	if err != nil {
		return nil, fmt.Errorf("get bids for book %s: %w", bookID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	return bids, nil
}

func (r *PostgresRepo) HighestBid(ctx context.Context, bookID string) (model.Bid, error) {
	const q = `
SELECT ` + bidColumns + ` FROM bids
WHERE book_id = $1
ORDER BY amount DESC, created_at ASC
LIMIT 1`
	bid, err := scanBid(r.pool.QueryRow(ctx, q, bookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get highest bid for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get highest bid for book %s: %w", bookID, err)
	}
	return bid, nil
}

func (r *PostgresRepo) LatestPendingBid(ctx context.Context, bookID string) (model.Bid, error) {
	const q = `
SELECT ` + bidColumns + ` FROM bids
WHERE book_id = $1 AND status = 'PENDING'
ORDER BY created_at DESC
LIMIT 1`
	bid, err := scanBid(r.pool.QueryRow(ctx, q, bookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get latest pending bid for book %s: %w", bookID, marketerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get latest pending bid for book %s: %w", bookID, err)
	}
	return bid, nil
}

func (r *PostgresRepo) BidsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Bid, error) {
	if limit <= 0 {
		limit = DefaultBidPageSize
	}
	const q = `
SELECT ` + bidColumns + ` FROM bids
WHERE bidder_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	bids, err := r.queryBids(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get bids for user %s: %w", userID, err)
	}
	return bids, nil
}

func (r *PostgresRepo) UpdateBidStatus(ctx context.Context, bidID string, status model.BidStatus) error {
	// the status = 'PENDING' guard keeps terminal states immutable
	tag, err := r.pool.Exec(ctx,
		`UPDATE bids SET status = $2 WHERE bid_id = $1 AND status = 'PENDING'`, bidID, status)
	if err != nil {
		return fmt.Errorf("update status of bid %s: %w", bidID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bids WHERE bid_id = $1)`, bidID).Scan(&exists); err != nil {
			return fmt.Errorf("update status of bid %s: %w", bidID, err)
		}
		if !exists {
			return fmt.Errorf("update status of bid %s: %w", bidID, marketerrors.ErrBidNotFound)
		}
		return fmt.Errorf("update status of bid %s: %w", bidID, marketerrors.ErrBidFinalized)
	}
	return nil
}

func (r *PostgresRepo) CloseAuction(ctx context.Context, bookID, winningBidID string) (model.Bid, []model.Bid, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}
	defer tx.Rollback(ctx)

	// lock the book row; concurrent closers serialize here
	var open bool
	err = tx.QueryRow(ctx,
		`SELECT is_bidding_open FROM books WHERE book_id = $1 FOR UPDATE`, bookID).Scan(&open)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrBookNotFound)
	}
	if err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}
	if !open {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrAuctionAlreadyClosed)
	}

	winner, err := scanBid(tx.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE bid_id = $1 AND book_id = $2 FOR UPDATE`,
		winningBidID, bookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}
	if winner.Status != model.BidPending {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, marketerrors.ErrAuctionAlreadyClosed)
	}

	if _, err = tx.Exec(ctx, `UPDATE bids SET status = 'WON' WHERE bid_id = $1`, winner.BidID); err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}
	if _, err = tx.Exec(ctx, `UPDATE books SET is_bidding_open = FALSE WHERE book_id = $1`, bookID); err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}

	rows, err := tx.Query(ctx, `
UPDATE bids SET status = 'REJECTED'
WHERE book_id = $1 AND bid_id <> $2 AND status = 'PENDING'
RETURNING `+bidColumns, bookID, winner.BidID)
	if err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}
	var rejected []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			rows.Close()
			return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
		}
		rejected = append(rejected, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Bid{}, nil, fmt.Errorf("close auction for book %s: %w", bookID, err)
	}

	winner.Status = model.BidWon
	return winner, rejected, nil
}

// ----- ConversationStore -----

const convColumns = `conversation_id, bid_id, bidder_id, owner_id, is_active, start_date, end_date`

func scanConversation(row pgx.Row) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ConversationID, &c.BidID, &c.BidderID, &c.OwnerID, &c.IsActive, &c.StartDate, &c.EndDate)
	return c, err
}

func (r *PostgresRepo) CreateConversation(ctx context.Context, conv model.Conversation) error {
	const q = `
INSERT INTO conversations (` + convColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (bid_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, conv.ConversationID, conv.BidID, conv.BidderID,
		conv.OwnerID, conv.IsActive, conv.StartDate, conv.EndDate)
	if err != nil {
		return fmt.Errorf("create conversation for bid %s: %w", conv.BidID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create conversation for bid %s: %w", conv.BidID, marketerrors.ErrConversationExists)
	}
	return nil
}

func (r *PostgresRepo) GetConversation(ctx context.Context, conversationID string) (model.Conversation, error) {
	const q = `SELECT ` + convColumns + ` FROM conversations WHERE conversation_id = $1`
	conv, err := scanConversation(r.pool.QueryRow(ctx, q, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Conversation{}, fmt.Errorf("get conversation %s: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	return conv, nil
}

func (r *PostgresRepo) ConversationByBid(ctx context.Context, bidID string) (model.Conversation, error) {
	const q = `SELECT ` + convColumns + ` FROM conversations WHERE bid_id = $1`
	conv, err := scanConversation(r.pool.QueryRow(ctx, q, bidID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Conversation{}, fmt.Errorf("get conversation for bid %s: %w", bidID, marketerrors.ErrConversationNotFound)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("get conversation for bid %s: %w", bidID, err)
	}
	return conv, nil
}

func (r *PostgresRepo) ConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	const q = `
SELECT ` + convColumns + ` FROM conversations
WHERE bidder_id = $1 OR owner_id = $1
ORDER BY start_date`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("get conversations for user %s: %w", userID, err)
	}
	defer rows.Close()
	var convs []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("get conversations for user %s: %w", userID, err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *PostgresRepo) SetConversationActive(ctx context.Context, conversationID string, active bool) error {
	const q = `
UPDATE conversations
SET is_active = $2,
    end_date = CASE WHEN $2 THEN end_date ELSE COALESCE(end_date, now()) END
WHERE conversation_id = $1`
	tag, err := r.pool.Exec(ctx, q, conversationID, active)
	if err != nil {
		return fmt.Errorf("set conversation %s active: %w", conversationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set conversation %s active: %w", conversationID, marketerrors.ErrConversationNotFound)
	}
	return nil
}

func (r *PostgresRepo) AddMessage(ctx context.Context, msg model.Message) error {
	const q = `
INSERT INTO messages (message_id, conversation_id, content, from_bidder, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, q, msg.MessageID, msg.ConversationID, msg.Content,
		msg.FromBidder, msg.IsRead, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("add message to conversation %s: %w", msg.ConversationID, err)
	}
	return nil
}

func (r *PostgresRepo) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	const q = `
SELECT message_id, conversation_id, content, from_bidder, is_read, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get messages for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()
	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.Content, &m.FromBidder, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("get messages for conversation %s: %w", conversationID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PostgresRepo) UnreadMessages(ctx context.Context, conversationID string, sentByBidder bool) ([]model.Message, error) {
	const q = `
SELECT message_id, conversation_id, content, from_bidder, is_read, created_at
FROM messages
WHERE conversation_id = $1 AND from_bidder = $2 AND NOT is_read
ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, conversationID, sentByBidder)
	if err != nil {
		return nil, fmt.Errorf("get unread messages for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()
	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.Content, &m.FromBidder, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("get unread messages for conversation %s: %w", conversationID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PostgresRepo) MarkMessagesRead(ctx context.Context, conversationID string, sentByBidder bool) error {
	const q = `
UPDATE messages SET is_read = TRUE
WHERE conversation_id = $1 AND from_bidder = $2 AND NOT is_read`
	if _, err := r.pool.Exec(ctx, q, conversationID, sentByBidder); err != nil {
		return fmt.Errorf("mark messages read for conversation %s: %w", conversationID, err)
	}
	return nil
}

// ----- NotificationStore -----

func (r *PostgresRepo) CreateNotification(ctx context.Context, n model.Notification) error {
	var data []byte
	if n.Data != nil {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("insert notification for user %s: %w", n.UserID, err)
		}
	}
	const q = `
INSERT INTO notifications (notification_id, user_id, type, message, data, read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, q, n.NotificationID, n.UserID, n.Type, n.Message, data, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification for user %s: %w", n.UserID, err)
	}
	return nil
}

func (r *PostgresRepo) NotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	const q = `
SELECT notification_id, user_id, type, message, data, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("get notifications for user %s: %w", userID, err)
	}
	defer rows.Close()
	var notifs []model.Notification
	for rows.Next() {
		var n model.Notification
		var data []byte
		if err := rows.Scan(&n.NotificationID, &n.UserID, &n.Type, &n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("get notifications for user %s: %w", userID, err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, fmt.Errorf("get notifications for user %s: %w", userID, err)
			}
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (r *PostgresRepo) MarkNotificationRead(ctx context.Context, notificationID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE notification_id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %s read: %w", notificationID, marketerrors.ErrNotificationNotFound)
	}
	return nil
}

func (r *PostgresRepo) DeleteNotification(ctx context.Context, notificationID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE notification_id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", notificationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete notification %s: %w", notificationID, marketerrors.ErrNotificationNotFound)
	}
	return nil
}

// ----- TransactionStore -----

const txColumns = `transaction_id, bid_id, payment_intent_id, amount, currency, status, completion_date, created_at`

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.TransactionID, &t.BidID, &t.PaymentIntentID, &t.Amount,
		&t.Currency, &t.Status, &t.CompletionDate, &t.CreatedAt)
	return t, err
}

func (r *PostgresRepo) CreateTransaction(ctx context.Context, t model.Transaction) error {
	const q = `
INSERT INTO transactions (` + txColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (bid_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, t.TransactionID, t.BidID, t.PaymentIntentID,
		t.Amount, t.Currency, t.Status, t.CompletionDate, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction for bid %s: %w", t.BidID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create transaction for bid %s: %w", t.BidID, marketerrors.ErrTransactionExists)
	}
	return nil
}

func (r *PostgresRepo) GetTransaction(ctx context.Context, transactionID string) (model.Transaction, error) {
	const q = `SELECT ` + txColumns + ` FROM transactions WHERE transaction_id = $1`
	t, err := scanTransaction(r.pool.QueryRow(ctx, q, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("get transaction %s: %w", transactionID, marketerrors.ErrTransactionNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("get transaction %s: %w", transactionID, err)
	}
	return t, nil
}

func (r *PostgresRepo) TransactionByBid(ctx context.Context, bidID string) (model.Transaction, error) {
	const q = `SELECT ` + txColumns + ` FROM transactions WHERE bid_id = $1`
	t, err := scanTransaction(r.pool.QueryRow(ctx, q, bidID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("get transaction for bid %s: %w", bidID, marketerrors.ErrTransactionNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("get transaction for bid %s: %w", bidID, err)
	}
	return t, nil
}

func (r *PostgresRepo) SettleTransaction(ctx context.Context, transactionID string, status model.TransactionStatus) (model.Transaction, error) {
	// only a successful settlement stamps the completion date
	const q = `
UPDATE transactions
SET status = $2,
    completion_date = CASE WHEN $2::text = 'succeeded' THEN now() ELSE completion_date END
WHERE transaction_id = $1 AND status = 'pending'
RETURNING ` + txColumns
	t, err := scanTransaction(r.pool.QueryRow(ctx, q, transactionID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qerr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1)`, transactionID).Scan(&exists); qerr != nil {
			return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, qerr)
		}
		if !exists {
			return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, marketerrors.ErrTransactionNotFound)
		}
		return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, marketerrors.ErrTransactionFinalized)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("settle transaction %s: %w", transactionID, err)
	}
	return t, nil
}

// ----- UserStore -----

func (r *PostgresRepo) CreateUser(ctx context.Context, user model.User) error {
	const q = `
INSERT INTO users (user_id, username, email)
VALUES ($1,$2,$3)
ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, email = EXCLUDED.email`
	if _, err := r.pool.Exec(ctx, q, user.UserID, user.Username, user.Email); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.UserID, err)
	}
	return nil
}

func (r *PostgresRepo) GetUser(ctx context.Context, userID string) (model.User, error) {
	const q = `SELECT user_id, username, email FROM users WHERE user_id = $1`
	var u model.User
	err := r.pool.QueryRow(ctx, q, userID).Scan(&u.UserID, &u.Username, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, marketerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}
