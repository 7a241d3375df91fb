package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Kind notification record kind
type Kind string

const (
	// KindNewPhoto a new photo was shared in a group
	KindNewPhoto Kind = "new_photo"
	// KindNewMessage a new chat message was sent
	KindNewMessage Kind = "new_message"
	// KindGroupInvite the recipient was invited to a group
	KindGroupInvite Kind = "group_invite"
	// KindLike someone liked the recipient's entry
	KindLike Kind = "like"
	// KindComment someone commented on the recipient's entry
	KindComment Kind = "comment"
	// KindMemberJoined someone joined the recipient's group
	KindMemberJoined Kind = "member_joined"
)

// NotificationRecord one persisted notification row, one per recipient per event
type NotificationRecord struct {
	ID          string                 `bson:"_id,omitempty" json:"id"`
	RecipientID string                 `bson:"recipient_id" json:"recipient_id"`
	Kind        Kind                   `bson:"kind" json:"kind"`
	Title       string                 `bson:"title" json:"title"`
	Body        string                 `bson:"body" json:"body"`
	Payload     map[string]interface{} `bson:"payload,omitempty" json:"payload,omitempty"`
	GroupID     string                 `bson:"group_id,omitempty" json:"group_id,omitempty"`
	SenderID    string                 `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	SenderName  string                 `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	IsRead      bool                   `bson:"is_read" json:"is_read"`
	CreatedAt   int64                  `bson:"created_at" json:"created_at"` // unix milliseconds
}

// ItemID feed item identity
func (n NotificationRecord) ItemID() string { return n.ID }

// ItemCreatedAt feed sort key
func (n NotificationRecord) ItemCreatedAt() int64 { return n.CreatedAt }

// NewRecordID server-side id for a notification row
func NewRecordID() string { return uuid.New().String() }

// DedupeKey deterministic identity of the underlying event, derivable by any
// consumer from the event's own identifiers. The realtime handler and the
// push payload must agree on it.
func DedupeKey(kind Kind, eventID string) string {
	return string(kind) + ":" + eventID
}

// Event one user action that fans out into notifications
type Event struct {
	Kind      Kind
	Title     string
	Body      string
	Content   string // raw user content, may carry a legacy reply prefix
	Payload   map[string]interface{}
	GroupID   string
	ActorID   string
	ActorName string
	MessageID string
	PhotoID   string
}

// EventID the identifier the dedupe key is derived from
func (e Event) EventID() string {
	switch {
	case e.MessageID != "":
		return e.MessageID
	case e.PhotoID != "":
		return e.PhotoID
	}
	return ""
}

// EventID the identifier the record's dedupe key is derived from: the
// triggering message or photo when present, else the record itself. Stable
// across the realtime and push delivery channels.
func (n NotificationRecord) EventID() string {
	if n.Payload != nil {
		if v, ok := n.Payload["message_id"].(string); ok && v != "" {
			return v
		}
		if v, ok := n.Payload["photo_id"].(string); ok && v != "" {
			return v
		}
	}
	return n.ID
}

// Scope fan-out target: a whole group minus the actor, or one recipient
type Scope struct {
	GroupID     string
	RecipientID string
}

// replyMarker legacy wire format packing reply metadata into the content
// field: @@REPLY@@<parentID>@@<parentAuthor>@@<text>
const replyMarker = "@@REPLY@@"

// ReplyMeta structured reply metadata
type ReplyMeta struct {
	ParentID     string
	ParentAuthor string
}

// ParseReplyPrefix extract reply metadata from a legacy-encoded content
// string. Returns the metadata, the remaining text, and whether the prefix
// was present and well formed.
func ParseReplyPrefix(content string) (ReplyMeta, string, bool) {
	if !strings.HasPrefix(content, replyMarker) {
		return ReplyMeta{}, content, false
	}
	rest := content[len(replyMarker):]
	parts := strings.SplitN(rest, "@@", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return ReplyMeta{}, content, false
	}
	return ReplyMeta{ParentID: parts[0], ParentAuthor: parts[1]}, parts[2], true
}

// EncodeReplyPrefix produce the legacy wire form, kept for compatibility with
// clients that still read the packed content field
func EncodeReplyPrefix(meta ReplyMeta, text string) string {
	return replyMarker + meta.ParentID + "@@" + meta.ParentAuthor + "@@" + text
}
