//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/compliance/models"
	"dossier/internal/compliance/store/claim"
	id "dossier/pkg/domain"
	"dossier/pkg/testutil/containers"
)

func TestRedisClaims(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := claim.NewRedis(rc.Client)
	key := claim.Key(id.NewRequirementID(), models.ReminderUrgent, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))

	ok, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claimant loses")

	ttl, err := rc.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Release(ctx, key))
	ok, err = store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released claim can be retaken")
}
