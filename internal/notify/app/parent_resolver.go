package app

import (
	"context"

	feedrepo "gratitude_chat_service/internal/feed/repository"
)

type messageAuthorResolver struct {
	messages feedrepo.MessageRepository
}

// NewMessageAuthorResolver resolve reply parents against the message store
func NewMessageAuthorResolver(messages feedrepo.MessageRepository) ParentAuthorResolver {
	return &messageAuthorResolver{messages: messages}
}

func (r *messageAuthorResolver) AuthorOf(ctx context.Context, recordID string) (string, error) {
	msg, err := r.messages.FindByID(ctx, recordID)
	if err != nil {
		return "", err
	}
	return msg.SenderID, nil
}
