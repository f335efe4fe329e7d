package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"plaza/internal/app/resident"
	"plaza/internal/pkg/errs"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
// Begin on a pgx.Tx opens a savepoint.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements the resident directory and the event store on top of a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries running against db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type txKey struct{}

// InTx runs fn inside a transaction. Queries called with the context passed to fn use that
// transaction; it commits only when fn returns nil.
func (q *Queries) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := q.conn(ctx).Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op returning pgx.ErrTxClosed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or the underlying pool.
func (q *Queries) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return q.db
}

const findActiveResidentByID = `
SELECT id, login, display_name, email
FROM residents
WHERE id = $1 AND is_active
`

// FindActiveResidentByID returns the active resident with the given id.
// Missing and inactive rows both yield resident.ErrInvalidResident.
func (q *Queries) FindActiveResidentByID(ctx context.Context, id int64) (resident.Resident, error) {
	var r resident.Resident

	err := q.conn(ctx).QueryRow(ctx, findActiveResidentByID, id).Scan(&r.ID, &r.Login, &r.DisplayName, &r.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return resident.Resident{}, resident.ErrInvalidResident
		}
		return resident.Resident{}, fmt.Errorf("find active resident: %w", err)
	}

	return r, nil
}

const insertMessage = `
INSERT INTO messages (sender_id, receiver_id, content)
VALUES ($1, $2, $3)
RETURNING id
`

// InsertMessage stores a chat message and returns its generated id.
// A nil receiverID stores a broadcast message.
func (q *Queries) InsertMessage(ctx context.Context, senderID int64, receiverID *int64, content string) (int64, error) {
	var id int64
	if err := q.conn(ctx).QueryRow(ctx, insertMessage, senderID, receiverID, content).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	return id, nil
}

const likeExists = `
SELECT EXISTS (SELECT 1 FROM post_likes WHERE post_id = $1 AND resident_id = $2)
`

// LikeExists reports whether residentID already liked postID.
func (q *Queries) LikeExists(ctx context.Context, postID, residentID int64) (bool, error) {
	var exists bool
	if err := q.conn(ctx).QueryRow(ctx, likeExists, postID, residentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return exists, nil
}

const insertLike = `
INSERT INTO post_likes (post_id, resident_id)
VALUES ($1, $2)
RETURNING id
`

// InsertLike stores a like and returns its generated id.
// A second like for the same pair returns an error wrapping errs.ErrConflict.
func (q *Queries) InsertLike(ctx context.Context, postID, residentID int64) (int64, error) {
	var id int64
	if err := q.conn(ctx).QueryRow(ctx, insertLike, postID, residentID).Scan(&id); err != nil {
		if IsUniqueViolation(err) {
			return 0, fmt.Errorf("insert like on post %d: %w", postID, errs.ErrConflict)
		}
		return 0, fmt.Errorf("insert like: %w", err)
	}
	return id, nil
}

const incrementLikeCount = `
UPDATE posts SET like_count = like_count + 1 WHERE id = $1
`

// IncrementLikeCount bumps the denormalized like counter of postID.
func (q *Queries) IncrementLikeCount(ctx context.Context, postID int64) error {
	return q.bumpCounter(ctx, incrementLikeCount, postID)
}

const countLikes = `
SELECT like_count FROM posts WHERE id = $1
`

// CountLikes returns the like counter of postID.
func (q *Queries) CountLikes(ctx context.Context, postID int64) (int64, error) {
	var count int64
	if err := q.conn(ctx).QueryRow(ctx, countLikes, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

const insertComment = `
INSERT INTO post_comments (post_id, resident_id, content)
VALUES ($1, $2, $3)
RETURNING id
`

// InsertComment stores a comment and returns its generated id.
func (q *Queries) InsertComment(ctx context.Context, postID, residentID int64, content string) (int64, error) {
	var id int64
	if err := q.conn(ctx).QueryRow(ctx, insertComment, postID, residentID, content).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

const incrementCommentCount = `
UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
`

// IncrementCommentCount bumps the denormalized comment counter of postID.
func (q *Queries) IncrementCommentCount(ctx context.Context, postID int64) error {
	return q.bumpCounter(ctx, incrementCommentCount, postID)
}

func (q *Queries) bumpCounter(ctx context.Context, query string, postID int64) error {
	tag, err := q.conn(ctx).Exec(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("update post %d counter: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update post %d counter: %w", postID, pgx.ErrNoRows)
	}
	return nil
}
