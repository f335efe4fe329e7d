package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"plaza/internal/app/relay/mocks"
	"plaza/internal/pkg/errs"
)

type routerFixture struct {
	router *Router
	store  *mocks.MockStore

	ana, ben, cat *fakePeer
}

// newRouterFixture returns a router with ana (1), ben (2) and cat (3) online.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	f := &routerFixture{
		store: store,
		ana:   newFakePeer(1, "ana"),
		ben:   newFakePeer(2, "ben"),
		cat:   newFakePeer(3, "cat"),
	}

	registry, dispatcher := newTestDispatcher(f.ana, f.ben, f.cat)
	f.router = NewRouter(registry, dispatcher, store, time.Second)
	f.router.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	return f
}

// expectTx makes the mock store run transactional work inline, returning whatever fn returns.
func (f *routerFixture) expectTx() *gomock.Call {
	return f.store.EXPECT().
		InTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func (f *routerFixture) route(t *testing.T, from *fakePeer, frame string) {
	t.Helper()
	f.router.Route(t.Context(), from, []byte(frame))
}

func requireErrorEvent(t *testing.T, evt wireEvent, code int, tempID string) ErrorPayload {
	t.Helper()

	require.Equal(t, TypeError, evt.Type)
	payload := decodePayload[ErrorPayload](t, evt)
	require.Equal(t, code, payload.Code)
	require.Equal(t, tempID, payload.TempID)
	return payload
}

func TestRouter_BroadcastChatMessage(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.store.EXPECT().
		InsertMessage(gomock.Any(), int64(1), gomock.Nil(), "hello everyone").
		Return(int64(10), nil).
		Times(1)

	f.route(t, f.ana, `{"type":"chat_message","payload":{"content":"  hello everyone "},"tempId":"t-1"}`)

	for _, peer := range []*fakePeer{f.ben, f.cat} {
		evt := peer.onlyEvent(t)
		req.Equal(TypeChatMessage, evt.Type)

		msg := decodePayload[ChatMessagePayload](t, evt)
		req.Equal(int64(10), msg.MessageID)
		req.Equal(int64(1), msg.SenderID)
		req.Nil(msg.ReceiverID)
		req.Equal("hello everyone", msg.Content)
		req.Equal("ana", msg.Sender.DisplayName)
		req.Equal(int64(1_700_000_000_000), msg.CreatedAt)
		req.Empty(msg.TempID)
	}

	echo := decodePayload[ChatMessagePayload](t, f.ana.onlyEvent(t))
	req.Equal(int64(10), echo.MessageID)
	req.Equal("t-1", echo.TempID)
}

func TestRouter_DirectChatMessage(t *testing.T) {
	t.Run("delivered to the receiver only, echoed to the sender", func(t *testing.T) {
		req := require.New(t)
		f := newRouterFixture(t)

		f.store.EXPECT().
			InsertMessage(gomock.Any(), int64(1), gomock.Cond(func(x any) bool {
				id, ok := x.(*int64)
				return ok && id != nil && *id == 2
			}), "psst").
			Return(int64(11), nil).
			Times(1)

		f.route(t, f.ana, `{"type":"chat_message","payload":{"content":"psst","receiverId":2}}`)

		msg := decodePayload[ChatMessagePayload](t, f.ben.onlyEvent(t))
		req.Equal(int64(11), msg.MessageID)
		req.NotNil(msg.ReceiverID)
		req.Equal(int64(2), *msg.ReceiverID)

		req.Empty(f.cat.events(t))
		req.Equal(TypeChatMessage, f.ana.onlyEvent(t).Type)
	})

	t.Run("offline receiver still gets the message persisted", func(t *testing.T) {
		req := require.New(t)
		f := newRouterFixture(t)

		f.store.EXPECT().InsertMessage(gomock.Any(), int64(1), gomock.Any(), "later").Return(int64(12), nil).Times(1)

		f.route(t, f.ana, `{"type":"chat_message","payload":{"content":"later","receiverId":99}}`)

		req.Empty(f.ben.events(t))
		req.Empty(f.cat.events(t))
		req.Equal(TypeChatMessage, f.ana.onlyEvent(t).Type)
	})

	t.Run("message to self is only echoed once", func(t *testing.T) {
		f := newRouterFixture(t)

		f.store.EXPECT().InsertMessage(gomock.Any(), int64(1), gomock.Any(), "note").Return(int64(13), nil).Times(1)

		f.route(t, f.ana, `{"type":"chat_message","payload":{"content":"note","receiverId":1}}`)

		require.Len(t, f.ana.events(t), 1)
	})
}

func TestRouter_ChatMessagePersistenceFailure(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.store.EXPECT().
		InsertMessage(gomock.Any(), int64(1), gomock.Any(), "hello").
		Return(int64(0), errors.New("connection reset")).
		Times(1)

	f.route(t, f.ana, `{"type":"chat_message","payload":{"content":"hello"},"tempId":"t-2"}`)

	requireErrorEvent(t, f.ana.onlyEvent(t), errs.ErrProcessingFailed, "t-2")
	req.Empty(f.ben.events(t))
	req.Empty(f.cat.events(t))
}

func TestRouter_ChatMessageValidation(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		code  int
	}{
		{
			name:  "blank content",
			frame: `{"type":"chat_message","payload":{"content":"   "},"tempId":"x"}`,
			code:  errs.ErrInvalidParams,
		},
		{
			name:  "missing payload",
			frame: `{"type":"chat_message","tempId":"x"}`,
			code:  errs.ErrInvalidParams,
		},
		{
			name:  "non positive receiver",
			frame: `{"type":"chat_message","payload":{"content":"hi","receiverId":0},"tempId":"x"}`,
			code:  errs.ErrInvalidParams,
		},
		{
			name:  "wrong payload shape",
			frame: `{"type":"chat_message","payload":{"content":42},"tempId":"x"}`,
			code:  errs.ErrInvalidParams,
		},
		{
			name:  "content too long",
			frame: fmt.Sprintf(`{"type":"chat_message","payload":{"content":"%s"},"tempId":"x"}`, strings.Repeat("a", MaxContentBytes+1)),
			code:  errs.ErrMessageContentTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)

			f.route(t, f.ana, tt.frame)

			requireErrorEvent(t, f.ana.onlyEvent(t), tt.code, "x")
			require.Empty(t, f.ben.events(t))
		})
	}

	t.Run("content at the limit is accepted", func(t *testing.T) {
		f := newRouterFixture(t)
		content := strings.Repeat("a", MaxContentBytes)

		f.store.EXPECT().InsertMessage(gomock.Any(), int64(1), gomock.Nil(), content).Return(int64(1), nil).Times(1)

		f.route(t, f.ana, fmt.Sprintf(`{"type":"chat_message","payload":{"content":"%s"}}`, content))

		require.Equal(t, TypeChatMessage, f.ana.onlyEvent(t).Type)
	})
}

func TestRouter_PostLike(t *testing.T) {
	t.Run("first like is stored and broadcast to everyone", func(t *testing.T) {
		req := require.New(t)
		f := newRouterFixture(t)

		gomock.InOrder(
			f.store.EXPECT().LikeExists(gomock.Any(), int64(5), int64(2)).Return(false, nil),
			f.expectTx(),
			f.store.EXPECT().InsertLike(gomock.Any(), int64(5), int64(2)).Return(int64(100), nil),
			f.store.EXPECT().IncrementLikeCount(gomock.Any(), int64(5)).Return(nil),
			f.store.EXPECT().CountLikes(gomock.Any(), int64(5)).Return(int64(1), nil),
		)

		f.route(t, f.ben, `{"type":"post_like","payload":{"postId":5}}`)

		for _, peer := range []*fakePeer{f.ana, f.ben, f.cat} {
			evt := peer.onlyEvent(t)
			req.Equal(TypePostLiked, evt.Type)
			req.Equal(PostLikedPayload{PostID: 5, ResidentID: 2, LikeCount: 1}, decodePayload[PostLikedPayload](t, evt))
		}
	})

	t.Run("repeated like is silently ignored", func(t *testing.T) {
		f := newRouterFixture(t)

		f.store.EXPECT().LikeExists(gomock.Any(), int64(5), int64(2)).Return(true, nil).Times(1)
		f.store.EXPECT().InTx(gomock.Any(), gomock.Any()).Times(0)
		f.store.EXPECT().InsertLike(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		f.store.EXPECT().IncrementLikeCount(gomock.Any(), gomock.Any()).Times(0)

		f.route(t, f.ben, `{"type":"post_like","payload":{"postId":5}}`)

		for _, peer := range []*fakePeer{f.ana, f.ben, f.cat} {
			require.Empty(t, peer.events(t))
		}
	})

	t.Run("unique violation on a racing insert counts as a duplicate", func(t *testing.T) {
		f := newRouterFixture(t)

		f.store.EXPECT().LikeExists(gomock.Any(), int64(5), int64(2)).Return(false, nil).Times(1)
		f.expectTx().Times(1)
		f.store.EXPECT().
			InsertLike(gomock.Any(), int64(5), int64(2)).
			Return(int64(0), fmt.Errorf("insert like: %w", errs.ErrConflict)).
			Times(1)
		f.store.EXPECT().IncrementLikeCount(gomock.Any(), gomock.Any()).Times(0)

		f.route(t, f.ben, `{"type":"post_like","payload":{"postId":5}}`)

		for _, peer := range []*fakePeer{f.ana, f.ben, f.cat} {
			require.Empty(t, peer.events(t))
		}
	})

	t.Run("store failure reaches the sender only", func(t *testing.T) {
		f := newRouterFixture(t)
		boom := errors.New("timeout")

		f.store.EXPECT().LikeExists(gomock.Any(), int64(5), int64(2)).Return(false, nil).Times(1)
		f.expectTx().Times(1)
		f.store.EXPECT().InsertLike(gomock.Any(), int64(5), int64(2)).Return(int64(100), nil).Times(1)
		f.store.EXPECT().IncrementLikeCount(gomock.Any(), int64(5)).Return(boom).Times(1)
		f.store.EXPECT().CountLikes(gomock.Any(), gomock.Any()).Times(0)

		f.route(t, f.ben, `{"type":"post_like","payload":{"postId":5},"tempId":"l-1"}`)

		requireErrorEvent(t, f.ben.onlyEvent(t), errs.ErrProcessingFailed, "l-1")
		require.Empty(t, f.ana.events(t))
		require.Empty(t, f.cat.events(t))
	})

	t.Run("missing post id is invalid", func(t *testing.T) {
		f := newRouterFixture(t)

		f.route(t, f.ben, `{"type":"post_like","payload":{}}`)

		requireErrorEvent(t, f.ben.onlyEvent(t), errs.ErrInvalidParams, "")
	})
}

func TestRouter_PostComment(t *testing.T) {
	t.Run("stored comment is broadcast to everyone", func(t *testing.T) {
		req := require.New(t)
		f := newRouterFixture(t)

		gomock.InOrder(
			f.expectTx(),
			f.store.EXPECT().InsertComment(gomock.Any(), int64(8), int64(3), "nice post").Return(int64(40), nil),
			f.store.EXPECT().IncrementCommentCount(gomock.Any(), int64(8)).Return(nil),
		)

		f.route(t, f.cat, `{"type":"post_comment","payload":{"postId":8,"content":"nice post"}}`)

		for _, peer := range []*fakePeer{f.ana, f.ben, f.cat} {
			evt := peer.onlyEvent(t)
			req.Equal(TypePostCommented, evt.Type)

			comment := decodePayload[PostCommentedPayload](t, evt)
			req.Equal(int64(40), comment.CommentID)
			req.Equal(int64(8), comment.PostID)
			req.Equal(int64(3), comment.ResidentID)
			req.Equal("nice post", comment.Content)
			req.Equal("cat", comment.Author.Login)
		}
	})

	t.Run("insert failure delivers nothing to others", func(t *testing.T) {
		f := newRouterFixture(t)

		f.expectTx().Times(1)
		f.store.EXPECT().InsertComment(gomock.Any(), int64(8), int64(3), "nice").Return(int64(0), errors.New("fk violation")).Times(1)
		f.store.EXPECT().IncrementCommentCount(gomock.Any(), gomock.Any()).Times(0)

		f.route(t, f.cat, `{"type":"post_comment","payload":{"postId":8,"content":"nice"},"tempId":"c-1"}`)

		requireErrorEvent(t, f.cat.onlyEvent(t), errs.ErrProcessingFailed, "c-1")
		require.Empty(t, f.ana.events(t))
		require.Empty(t, f.ben.events(t))
	})
}

func TestRouter_Typing(t *testing.T) {
	t.Run("forwarded to the receiver only", func(t *testing.T) {
		req := require.New(t)
		f := newRouterFixture(t)

		f.route(t, f.ana, `{"type":"typing","payload":{"receiverId":3,"isTyping":true}}`)

		evt := f.cat.onlyEvent(t)
		req.Equal(TypeResidentTyping, evt.Type)
		req.Equal(ResidentTypingPayload{ResidentID: 1, DisplayName: "ana", IsTyping: true}, decodePayload[ResidentTypingPayload](t, evt))

		req.Empty(f.ana.events(t))
		req.Empty(f.ben.events(t))
	})

	t.Run("without receiver nothing is sent", func(t *testing.T) {
		f := newRouterFixture(t)

		f.route(t, f.ana, `{"type":"typing","payload":{"isTyping":true}}`)

		for _, peer := range []*fakePeer{f.ana, f.ben, f.cat} {
			require.Empty(t, peer.events(t))
		}
	})
}

func TestRouter_GetOnlineResidents(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	f.route(t, f.ben, `{"type":"get_online_residents"}`)

	evt := f.ben.onlyEvent(t)
	req.Equal(TypeOnlineResidents, evt.Type)

	payload := decodePayload[OnlineResidentsPayload](t, evt)
	req.Equal(3, payload.Count)
	req.Equal([]int64{1, 2, 3}, []int64{payload.Residents[0].ID, payload.Residents[1].ID, payload.Residents[2].ID})

	req.Empty(f.ana.events(t))
	req.Empty(f.cat.events(t))
}

func TestRouter_UnknownAndMalformedEvents(t *testing.T) {
	t.Run("unknown type is reported to the sender", func(t *testing.T) {
		f := newRouterFixture(t)

		f.route(t, f.ana, `{"type":"dance","payload":{},"tempId":"d-1"}`)

		payload := requireErrorEvent(t, f.ana.onlyEvent(t), errs.ErrUnknownEventType, "d-1")
		require.Equal(t, "Unknown event type: dance.", payload.Message)
		require.Empty(t, f.ben.events(t))
	})

	for name, frame := range map[string]string{
		"not json":     `hello`,
		"missing type": `{"payload":{"content":"hi"}}`,
		"array":        `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newRouterFixture(t)

			f.route(t, f.ana, frame)

			requireErrorEvent(t, f.ana.onlyEvent(t), errs.ErrInvalidJSONFormat, "")
			require.Empty(t, f.ben.events(t))
		})
	}
}
