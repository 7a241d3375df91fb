package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/pkg/database"
	errprocess "gratitude_chat_service/pkg/err"
	"gratitude_chat_service/pkg/logger"
)

// MemberRepository definition get member profile info
type MemberRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.Member, error)
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, userID string) (*domain.Member, error) {
	var member domain.Member
	err := r.db.QueryRow(ctx,
		"SELECT user_id, display_name, COALESCE(avatar_url, '') FROM members WHERE user_id = $1",
		userID,
	).Scan(&member.ID, &member.DisplayName, &member.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errprocess.Set("member not found: " + userID)
		}
		return nil, err
	}
	return &member, nil
}

// memberCacheTTL profile rows change rarely, a short cache takes the
// display-name lookup off the send path
const memberCacheTTL = 10 * time.Minute

type cachedMemberRepository struct {
	inner MemberRepository
	cache database.RedisRepository[domain.Member]
}

// NewCachedMemberRepository wrap a MemberRepository with a redis read cache
func NewCachedMemberRepository(inner MemberRepository, cache database.RedisRepository[domain.Member]) MemberRepository {
	return &cachedMemberRepository{inner: inner, cache: cache}
}

func (r *cachedMemberRepository) FindByID(ctx context.Context, userID string) (*domain.Member, error) {
	key := "member:profile:" + userID
	if member, err := r.cache.Get(ctx, key); err == nil {
		return &member, nil
	}

	member, err := r.inner.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, *member, memberCacheTTL); err != nil {
		logger.Log.Warn("member cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
	return member, nil
}
