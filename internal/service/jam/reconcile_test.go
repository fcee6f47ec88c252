package jam

import (
	"context"
	"testing"
	"time"

	"github.com/sharetube/jam/pkg/spotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBus(t *testing.T, messages <-chan string) BusMessage {
	t.Helper()
	select {
	case payload := <-messages:
		msg, err := DecodeBusMessage(payload)
		require.NoError(t, err)
		return msg
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}

	return BusMessage{}
}

func TestReconcileStartsPlaybackWithoutCurrentSong(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	sub, err := env.service.Subscribe(ctx, env.host.JamId)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, env.service.Reconcile(ctx, env.host))

	assert.Equal(t, AllChanged(), receiveBus(t, sub.Messages()).Changed)
	msg := receiveBus(t, sub.Messages())
	assert.True(t, msg.Changed.CurrentSong)
	assert.Equal(t, []string{defaultTrackId}, env.provider.enqueued)
}

func TestReconcileReplaysOnDrift(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	_, err := env.service.NextSong(ctx, env.host)
	require.NoError(t, err)

	elsewhere := testTrack("elsewhere")
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 1000, Item: &elsewhere}

	require.NoError(t, env.service.Reconcile(ctx, env.host))
	assert.Equal(t, []string{defaultTrackId}, env.provider.played)

	// device switched off
	env.provider.playback = nil
	require.NoError(t, env.service.Reconcile(ctx, env.host))
	assert.Equal(t, []string{defaultTrackId, defaultTrackId}, env.provider.played)
}

func TestReconcileAdvancesWhenSongEnded(t *testing.T) {
	env := newTestEnv(t, 3, "next")
	ctx := context.Background()
	ann := env.join(t, "ann")
	_, err := env.service.NextSong(ctx, env.host)
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, ann, "next")
	require.NoError(t, err)

	current := testTrack(defaultTrackId)
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 199000, Item: &current}
	require.NoError(t, env.service.Reconcile(ctx, env.host))

	update := env.service.Materialize(ctx, Changed{Position: true}, env.host)
	assert.InDelta(t, 0.995, *update.Position, 0.0001)

	// the device moved past the song on its own
	elsewhere := testTrack("elsewhere")
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 0, Item: &elsewhere}
	require.NoError(t, env.service.Reconcile(ctx, env.host))

	update = env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
	assert.Equal(t, "next", update.CurrentSong.TrackId)
	assert.Empty(t, env.provider.played)
}

func TestReconcileErrorsAreNotBroadcast(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	_, err := env.service.NextSong(ctx, env.host)
	require.NoError(t, err)

	elsewhere := testTrack("elsewhere")
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 1000, Item: &elsewhere}
	env.provider.failPlay = true

	sub, err := env.service.Subscribe(ctx, env.host.JamId)
	require.NoError(t, err)
	defer sub.Close()

	err = env.service.Reconcile(ctx, env.host)
	assert.ErrorIs(t, err, ErrProvider)

	msg := receiveBus(t, sub.Messages())
	assert.Equal(t, AllChanged(), msg.Changed)
	assert.Empty(t, msg.Errors)

	select {
	case payload := <-sub.Messages():
		t.Fatalf("unexpected bus message %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconcileTracksPosition(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	_, err := env.service.NextSong(ctx, env.host)
	require.NoError(t, err)

	current := testTrack(defaultTrackId)
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 50000, Item: &current}

	sub, err := env.service.Subscribe(ctx, env.host.JamId)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, env.service.Reconcile(ctx, env.host))
	receiveBus(t, sub.Messages())
	assert.Equal(t, Changed{Position: true}, receiveBus(t, sub.Messages()).Changed)

	update := env.service.Materialize(ctx, Changed{Position: true}, env.host)
	assert.Equal(t, 0.25, *update.Position)
}

func TestReconcileStopsWhenJamIsGone(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	require.NoError(t, env.service.DeleteJam(ctx, env.host.Id))

	assert.ErrorIs(t, env.service.Reconcile(ctx, env.host), ErrNotFound)
}
