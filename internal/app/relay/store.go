//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package relay

import "context"

// Store persists the events that outlive their delivery.
// Implementations borrow a pooled connection per call; no call is made under a registry lock.
type Store interface {
	// InTx runs fn in one transaction. Store calls made with the context handed to fn join it,
	// and nothing is committed unless fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	// InsertMessage stores a chat message and returns its id. A nil receiverID means broadcast.
	InsertMessage(ctx context.Context, senderID int64, receiverID *int64, content string) (int64, error)

	// LikeExists reports whether residentID already liked postID.
	LikeExists(ctx context.Context, postID, residentID int64) (bool, error)

	// InsertLike stores a like and returns its id. A duplicate pair yields errs.ErrConflict.
	InsertLike(ctx context.Context, postID, residentID int64) (int64, error)

	// IncrementLikeCount bumps the like counter of postID.
	IncrementLikeCount(ctx context.Context, postID int64) error

	// CountLikes returns the like counter of postID.
	CountLikes(ctx context.Context, postID int64) (int64, error)

	// InsertComment stores a comment and returns its id.
	InsertComment(ctx context.Context, postID, residentID int64, content string) (int64, error)

	// IncrementCommentCount bumps the comment counter of postID.
	IncrementCommentCount(ctx context.Context, postID int64) error
}
