// Package claim holds short-lived reminder claims.
//
// A claim narrows the window in which two overlapping pipeline runs can both
// send the same reminder: the first run to claim (requirement, type, day)
// sends, the other skips. Claims expire on their own; a failed delivery
// releases its claim so the next run retries.
package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
)

const claimKeyPrefix = "dossier:reminder:claim:"

// Key builds the claim key for one reminder on one civil day.
func Key(requirementID id.RequirementID, reminderType models.ReminderType, day time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", claimKeyPrefix, requirementID, reminderType, day.Format(time.DateOnly))
}

// RedisStore takes claims with SET NX so concurrent processes agree.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Claim reports whether the caller now holds key. A false result with a nil
// error means someone else holds it.
func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release reminder claim: %w", err)
	}
	return nil
}
