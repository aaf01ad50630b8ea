//go:build integration
// +build integration

package presence_test

import (
	"context"
	"testing"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
	"github.com/KirkDiggler/sheet-sync/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIntegration_WatchTrack(t *testing.T) {
	client := testutils.NewRedisContainer(t)
	repo := presence.NewRedis(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := repo.Watch(ctx, "table-1")
	require.NoError(t, err)

	require.NoError(t, repo.Track(ctx, "table-1", &session.Presence{
		Identity:  "Aria",
		Character: session.CharacterSnapshot{Name: "Aria", Defense: 12},
	}))

	event := nextEvent(t, w)
	assert.Equal(t, "Aria", event.Identity)
	require.NotNil(t, event.Presence)
	assert.Equal(t, 12, event.Presence.Character.Defense)

	list, err := repo.List(ctx, "table-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Untrack(ctx, "table-1", "Aria"))
	assert.True(t, nextEvent(t, w).Left())

	w.Close()
}
