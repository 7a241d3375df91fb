package app

import (
	"context"
	"fmt"
	"strings"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/pkg"
)

// GroupUseCase membership actions. Each mutation fans out its notification
// after the primary write; notification failure never rolls the write back.
type GroupUseCase struct {
	groups   repository.GroupRepository
	members  repository.MemberRepository
	notifier Notifier
}

// NewGroupUseCase create GroupUseCase
func NewGroupUseCase(
	groups repository.GroupRepository,
	members repository.MemberRepository,
	notifier Notifier,
) *GroupUseCase {
	return &GroupUseCase{
		groups:   groups,
		members:  members,
		notifier: notifier,
	}
}

// CreateGroup create a group with the creator as owner and first member
func (uc *GroupUseCase) CreateGroup(ctx context.Context, name, creatorID string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is empty", domain.ErrValidation)
	}
	group := &domain.Group{
		Name:    name,
		OwnerID: creatorID,
		Members: []string{creatorID},
	}
	if err := uc.groups.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	return group, nil
}

// InviteMember notify one user that a member invited them to the group.
// Joining stays a separate action by the invitee.
func (uc *GroupUseCase) InviteMember(ctx context.Context, groupID, actorID, recipientID string) error {
	group, err := uc.groups.FindByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if !pkg.Contains(group.Members, actorID) {
		return fmt.Errorf("%w: user %s is not a member of group %s", domain.ErrPermission, actorID, groupID)
	}
	if recipientID == actorID || pkg.Contains(group.Members, recipientID) {
		return fmt.Errorf("%w: user %s is already in group %s", domain.ErrValidation, recipientID, groupID)
	}

	if uc.notifier != nil {
		actorName := uc.displayName(ctx, actorID)
		uc.notifier.NotifyAudience(ctx,
			notifydomain.Scope{RecipientID: recipientID},
			notifydomain.Event{
				Kind:      notifydomain.KindGroupInvite,
				Title:     group.Name,
				Body:      actorName + " invited you to " + group.Name,
				Payload:   map[string]interface{}{"group_id": group.ID},
				GroupID:   group.ID,
				ActorID:   actorID,
				ActorName: actorName,
			})
	}
	return nil
}

// JoinGroup add the user to the roster and notify the existing members.
// The fan-out reads the roster after the write, so the joiner is the
// excluded actor.
func (uc *GroupUseCase) JoinGroup(ctx context.Context, groupID, userID string) error {
	group, err := uc.groups.FindByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if pkg.Contains(group.Members, userID) {
		return nil
	}
	if err := uc.groups.AddMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	if uc.notifier != nil {
		actorName := uc.displayName(ctx, userID)
		uc.notifier.NotifyAudience(ctx,
			notifydomain.Scope{GroupID: group.ID},
			notifydomain.Event{
				Kind:      notifydomain.KindMemberJoined,
				Title:     group.Name,
				Body:      actorName + " joined " + group.Name,
				Payload:   map[string]interface{}{"group_id": group.ID},
				GroupID:   group.ID,
				ActorID:   userID,
				ActorName: actorName,
			})
	}
	return nil
}

func (uc *GroupUseCase) displayName(ctx context.Context, userID string) string {
	if uc.members == nil {
		return userID
	}
	member, err := uc.members.FindByID(ctx, userID)
	if err != nil {
		return userID
	}
	return member.DisplayName
}
