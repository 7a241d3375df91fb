package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DeliveryState tracks the optimistic lifecycle of a locally created item
type DeliveryState string

const (
	// DeliveryPending local entry waiting for the server row
	DeliveryPending DeliveryState = "pending"
	// DeliveryConfirmed server row received
	DeliveryConfirmed DeliveryState = "confirmed"
)

// PendingIDPrefix marks locally synthesized ids, server ids never carry it
const PendingIDPrefix = "pending-"

// Message one chat message inside a thread
type Message struct {
	ID               string        `bson:"_id,omitempty" json:"id"`
	ThreadID         string        `bson:"thread_id" json:"thread_id"`
	SenderID         string        `bson:"sender_id" json:"sender_id"`
	Content          string        `bson:"content" json:"content"`
	ImageURL         string        `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ReplyToMessageID string        `bson:"reply_to_message_id,omitempty" json:"reply_to_message_id,omitempty"`
	LikedBy          []string      `bson:"liked_by,omitempty" json:"liked_by,omitempty"`
	CreatedAt        int64         `bson:"created_at" json:"created_at"` // unix milliseconds
	Delivery         DeliveryState `bson:"-" json:"delivery,omitempty"`
}

// ItemID feed item identity
func (m Message) ItemID() string { return m.ID }

// ItemCreatedAt feed sort key
func (m Message) ItemCreatedAt() int64 { return m.CreatedAt }

// NewPendingID make a temp id for an optimistic send
func NewPendingID() string {
	return PendingIDPrefix + uuid.New().String()
}

// IsPendingID report whether id was locally synthesized
func IsPendingID(id string) bool {
	return strings.HasPrefix(id, PendingIDPrefix)
}
