package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"plaza/internal/pkg/errs"
	"plaza/internal/pkg/logx"
)

// Router interprets inbound frames by type, persists what must be persisted and hands the
// resulting events to the Dispatcher. For persisted kinds nothing is delivered unless the
// store call succeeded.
type Router struct {
	registry   *Registry
	dispatcher *Dispatcher
	store      Store

	// storeTimeout bounds every store call made for one inbound event.
	storeTimeout time.Duration

	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRouter returns a Router persisting through store.
func NewRouter(registry *Registry, dispatcher *Dispatcher, store Store, storeTimeout time.Duration) *Router {
	return &Router{
		registry:     registry,
		dispatcher:   dispatcher,
		store:        store,
		storeTimeout: storeTimeout,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		now:          time.Now,
		logger:       logx.Component("router"),
	}
}

// Route handles one inbound frame from sender. Failures are reported to the sender only and
// never end the connection.
func (rt *Router) Route(ctx context.Context, sender Peer, frame []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Type == "" {
		rt.logger.Warn().
			Err(err).
			Int64("resident_id", sender.Resident().ID).
			Int("frame_bytes", len(frame)).
			Msg("Client sent a malformed event.")
		rt.replyError(sender, errs.NewError(errs.ErrInvalidJSONFormat), "")
		return
	}

	switch env.Type {
	case TypeChatMessage:
		rt.handleChatMessage(ctx, sender, env)

	case TypeTyping:
		rt.handleTyping(sender, env)

	case TypePostLike:
		rt.handlePostLike(ctx, sender, env)

	case TypePostComment:
		rt.handlePostComment(ctx, sender, env)

	case TypeGetOnlineResidents:
		rt.dispatcher.Reply(sender, onlineResidentsEvent(rt.registry))

	default:
		rt.logger.Warn().
			Str("event_type", string(env.Type)).
			Int64("resident_id", sender.Resident().ID).
			Msg("Client sent an unsupported event type.")
		rt.replyError(sender, errs.NewError(errs.ErrUnknownEventType, env.Type), env.TempID)
	}
}

// handleChatMessage persists a chat message, then delivers it to its receiver (direct) or to
// everyone but the sender (broadcast). The sender always gets the persisted copy as an echo.
func (rt *Router) handleChatMessage(ctx context.Context, sender Peer, env inboundEnvelope) {
	var req ChatMessageRequest
	if cerr := rt.decodePayload(env.Payload, &req); cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	content, cerr := normalizeContent(req.Content)
	if cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	from := sender.Resident()

	storeCtx, cancel := context.WithTimeout(ctx, rt.storeTimeout)
	defer cancel()

	messageID, err := rt.store.InsertMessage(storeCtx, from.ID, req.ReceiverID, content)
	if err != nil {
		rt.persistenceFailed(sender, env, err)
		return
	}

	payload := ChatMessagePayload{
		MessageID:  messageID,
		SenderID:   from.ID,
		ReceiverID: req.ReceiverID,
		Content:    content,
		Sender:     from,
		CreatedAt:  rt.now().UnixMilli(),
	}

	if req.ReceiverID != nil {
		if *req.ReceiverID != from.ID {
			rt.dispatcher.SendTo(*req.ReceiverID, NewEvent(TypeChatMessage, payload))
		}
	} else {
		rt.dispatcher.BroadcastAll(NewEvent(TypeChatMessage, payload), from.ID)
	}

	payload.TempID = env.TempID
	rt.dispatcher.Reply(sender, NewEvent(TypeChatMessage, payload))
}

// handleTyping forwards a typing indicator to its receiver. Indicators without a receiver are
// dropped.
func (rt *Router) handleTyping(sender Peer, env inboundEnvelope) {
	var req TypingRequest
	if cerr := rt.decodePayload(env.Payload, &req); cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	if req.ReceiverID == nil {
		return
	}

	from := sender.Resident()

	rt.dispatcher.SendTo(*req.ReceiverID, NewEvent(TypeResidentTyping, ResidentTypingPayload{
		ResidentID:  from.ID,
		DisplayName: from.DisplayName,
		IsTyping:    req.IsTyping,
	}))
}

// handlePostLike records a first-time like and broadcasts the new count to everyone.
// The like row and the counter change commit together. A repeated like for the same
// (post, resident) pair is ignored without a reply.
func (rt *Router) handlePostLike(ctx context.Context, sender Peer, env inboundEnvelope) {
	var req PostLikeRequest
	if cerr := rt.decodePayload(env.Payload, &req); cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	from := sender.Resident()

	storeCtx, cancel := context.WithTimeout(ctx, rt.storeTimeout)
	defer cancel()

	exists, err := rt.store.LikeExists(storeCtx, req.PostID, from.ID)
	if err != nil {
		rt.persistenceFailed(sender, env, err)
		return
	}
	if exists {
		rt.logDuplicateLike(from.ID, req.PostID)
		return
	}

	var count int64
	err = rt.store.InTx(storeCtx, func(ctx context.Context) error {
		if _, err := rt.store.InsertLike(ctx, req.PostID, from.ID); err != nil {
			return err
		}
		if err := rt.store.IncrementLikeCount(ctx, req.PostID); err != nil {
			return err
		}

		var err error
		count, err = rt.store.CountLikes(ctx, req.PostID)
		return err
	})
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			rt.logDuplicateLike(from.ID, req.PostID)
			return
		}
		rt.persistenceFailed(sender, env, err)
		return
	}

	rt.dispatcher.BroadcastAll(NewEvent(TypePostLiked, PostLikedPayload{
		PostID:     req.PostID,
		ResidentID: from.ID,
		LikeCount:  count,
	}), NoExclusion)
}

func (rt *Router) logDuplicateLike(residentID, postID int64) {
	rt.logger.Debug().
		Int64("resident_id", residentID).
		Int64("post_id", postID).
		Msg("Duplicate like ignored.")
}

// handlePostComment persists a comment, bumps the post counter and broadcasts the comment to
// everyone.
func (rt *Router) handlePostComment(ctx context.Context, sender Peer, env inboundEnvelope) {
	var req PostCommentRequest
	if cerr := rt.decodePayload(env.Payload, &req); cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	content, cerr := normalizeContent(req.Content)
	if cerr != nil {
		rt.replyError(sender, cerr, env.TempID)
		return
	}

	from := sender.Resident()

	storeCtx, cancel := context.WithTimeout(ctx, rt.storeTimeout)
	defer cancel()

	var commentID int64
	err := rt.store.InTx(storeCtx, func(ctx context.Context) error {
		var err error
		if commentID, err = rt.store.InsertComment(ctx, req.PostID, from.ID, content); err != nil {
			return err
		}
		return rt.store.IncrementCommentCount(ctx, req.PostID)
	})
	if err != nil {
		rt.persistenceFailed(sender, env, err)
		return
	}

	rt.dispatcher.BroadcastAll(NewEvent(TypePostCommented, PostCommentedPayload{
		CommentID:  commentID,
		PostID:     req.PostID,
		ResidentID: from.ID,
		Content:    content,
		Author:     from,
		CreatedAt:  rt.now().UnixMilli(),
	}), NoExclusion)
}

// decodePayload unmarshals and validates an event payload.
func (rt *Router) decodePayload(raw json.RawMessage, dst any) *errs.CustomError {
	if len(raw) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if err := rt.validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

func normalizeContent(content string) (string, *errs.CustomError) {
	content = strings.TrimSpace(content)

	if content == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	if len(content) > MaxContentBytes {
		return "", errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	return content, nil
}

func (rt *Router) persistenceFailed(sender Peer, env inboundEnvelope, err error) {
	rt.logger.Error().
		Err(err).
		Str("event_type", string(env.Type)).
		Int64("resident_id", sender.Resident().ID).
		Msg("Store call failed, event dropped.")

	rt.replyError(sender, errs.NewError(errs.ErrProcessingFailed), env.TempID)
}

func (rt *Router) replyError(sender Peer, cerr *errs.CustomError, tempID string) {
	rt.dispatcher.Reply(sender, NewEvent(TypeError, ErrorPayload{
		Code:    cerr.Code,
		Message: cerr.Message,
		TempID:  tempID,
	}))
}
