package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix   = "refresh_token:"
	blacklistKeyPrefix = "blacklist:"
)

// TokenRepository is the Redis-backed revocation overlay for otherwise
// stateless tokens. It holds one rotating refresh token per user and a
// blacklist entry per revoked access token. All writes are plain SETs, so
// concurrent logout/refresh races resolve last-write-wins.
type TokenRepository struct {
	client *redis.Client
}

// NewTokenRepository constructs a token repository.
func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

// PutRefresh stores the user's refresh token, overwriting any prior value.
// The previous token becomes unusable immediately.
func (r *TokenRepository) PutRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, refreshKeyPrefix+userID, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

// GetRefresh returns the stored refresh token, or "" when none exists.
func (r *TokenRepository) GetRefresh(ctx context.Context, userID string) (string, error) {
	val, err := r.client.Get(ctx, refreshKeyPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis get refresh token: %w", err)
	}
	return val, nil
}

// DeleteRefresh removes the user's refresh token. Deleting a missing key is a no-op.
func (r *TokenRepository) DeleteRefresh(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, refreshKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis delete refresh token: %w", err)
	}
	return nil
}

// Blacklist records an access token as revoked for its remaining lifetime.
// The TTL bound keeps the blacklist self-pruning.
func (r *TokenRepository) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, blacklistKeyPrefix+token, "true", ttl).Err(); err != nil {
		return fmt.Errorf("redis blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the access token has been revoked.
func (r *TokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("redis check blacklist: %w", err)
	}
	return n > 0, nil
}
