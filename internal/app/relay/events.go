/*
Package relay is the presence and messaging core of Plaza.

It keeps the registry of online residents, fans events out to their connections, drives each
connection through its lifecycle (authenticate, register, relay, deregister) and routes inbound
events to the store and back out to recipients.

This file defines the wire format: event types, the outbound envelope and the payloads.
*/
package relay

import (
	"encoding/json"
	"time"

	"plaza/internal/app/resident"
	"plaza/internal/pkg/randx"
)

// EventType is the discriminator of every frame exchanged with a client.
type EventType string

// Inbound event types.
const (
	TypeChatMessage        EventType = "chat_message"
	TypeTyping             EventType = "typing"
	TypePostLike           EventType = "post_like"
	TypePostComment        EventType = "post_comment"
	TypeGetOnlineResidents EventType = "get_online_residents"
)

// Outbound event types. chat_message is shared with the inbound set.
const (
	TypeOnlineResidents EventType = "online_residents"
	TypeResidentOnline  EventType = "resident_online"
	TypeResidentOffline EventType = "resident_offline"
	TypeResidentTyping  EventType = "resident_typing"
	TypePostLiked       EventType = "post_liked"
	TypePostCommented   EventType = "post_commented"
	TypeSystemMessage   EventType = "system_message"
	TypeError           EventType = "error"
)

// MaxContentBytes is the largest chat or comment body accepted, in bytes.
const MaxContentBytes = 5000

// Event is the outbound envelope.
type Event struct {
	// ID identifies this delivery, not the persisted record.
	ID string `json:"id"`

	Type EventType `json:"type"`

	Payload any `json:"payload,omitempty"`

	// Timestamp is the server time the event was built, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewEvent builds an outbound event stamped with the current time.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		ID:        randx.EventID(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// inboundEnvelope is the shape of every frame a client sends.
type inboundEnvelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// TempID is an optional client-side correlation id echoed back to the sender.
	TempID string `json:"tempId,omitempty"`
}

// ChatMessageRequest is the payload of an inbound chat_message.
// A nil ReceiverID addresses everyone online.
type ChatMessageRequest struct {
	Content    string `json:"content" validate:"required"`
	ReceiverID *int64 `json:"receiverId,omitempty" validate:"omitempty,gt=0"`
}

// TypingRequest is the payload of an inbound typing indicator.
type TypingRequest struct {
	ReceiverID *int64 `json:"receiverId,omitempty" validate:"omitempty,gt=0"`
	IsTyping   bool   `json:"isTyping"`
}

// PostLikeRequest is the payload of an inbound post_like.
type PostLikeRequest struct {
	PostID int64 `json:"postId" validate:"required,gt=0"`
}

// PostCommentRequest is the payload of an inbound post_comment.
type PostCommentRequest struct {
	PostID  int64  `json:"postId" validate:"required,gt=0"`
	Content string `json:"content" validate:"required"`
}

// OnlineResidentsPayload lists the residents online at the time it was built, ordered by id.
type OnlineResidentsPayload struct {
	Residents []resident.Resident `json:"residents"`
	Count     int                 `json:"count"`
}

// PresencePayload announces a resident coming online or going offline.
type PresencePayload struct {
	Resident resident.Resident `json:"resident"`
}

// ResidentTypingPayload tells a receiver that a resident is (or stopped) typing to them.
type ResidentTypingPayload struct {
	ResidentID  int64  `json:"residentId"`
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

// ChatMessagePayload is a persisted chat message as delivered to recipients.
type ChatMessagePayload struct {
	MessageID  int64             `json:"messageId"`
	SenderID   int64             `json:"senderId"`
	ReceiverID *int64            `json:"receiverId"`
	Content    string            `json:"content"`
	Sender     resident.Resident `json:"sender"`
	CreatedAt  int64             `json:"createdAt"`

	// TempID is only set on the copy echoed to the sender.
	TempID string `json:"tempId,omitempty"`
}

// PostLikedPayload carries the like counter of a post after a new like.
type PostLikedPayload struct {
	PostID     int64 `json:"postId"`
	ResidentID int64 `json:"residentId"`
	LikeCount  int64 `json:"likeCount"`
}

// PostCommentedPayload is a persisted comment as delivered to everyone.
type PostCommentedPayload struct {
	CommentID  int64             `json:"commentId"`
	PostID     int64             `json:"postId"`
	ResidentID int64             `json:"residentId"`
	Content    string            `json:"content"`
	Author     resident.Resident `json:"author"`
	CreatedAt  int64             `json:"createdAt"`
}

// SystemMessagePayload is a server notice.
type SystemMessagePayload struct {
	Content string `json:"content"`
}

// ErrorPayload reports a failed inbound event to its sender.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
