package jam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/pkg/spotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJamIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	res, err := env.service.CreateJam(ctx, &CreateJamParams{AccountId: "account", Name: "again"})
	require.NoError(t, err)
	assert.Equal(t, env.host.JamId, res.JamId)
	assert.Equal(t, env.host.Id, res.HostId)
	assert.Len(t, res.JamId, jamIdLength)
}

func TestResolveIdentity(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	assert.Equal(t, RoleHost, env.host.Role)
	assert.True(t, env.host.IsHost())

	user := env.join(t, "ann")
	assert.Equal(t, RoleUser, user.Role)
	assert.Equal(t, env.host.JamId, user.JamId)

	_, err := env.service.ResolveIdentity(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinMissingJam(t *testing.T) {
	env := newTestEnv(t, 3)
	_, err := env.service.JoinJam(context.Background(), &JoinJamParams{JamId: "NOPE00", Name: "ann"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVotes(t *testing.T) {
	env := newTestEnv(t, 3, "t1")
	ctx := context.Background()
	user := env.join(t, "ann")

	_, err := env.service.AddSong(ctx, user, "t1")
	require.NoError(t, err)
	songId := env.queuedSongId(t, "t1")

	changed, err := env.service.AddVote(ctx, user, songId)
	require.NoError(t, err)
	assert.Equal(t, Changed{Votes: true}, changed)

	_, err = env.service.AddVote(ctx, user, songId)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.service.RemoveVote(ctx, user, songId)
	require.NoError(t, err)
	_, err = env.service.AddVote(ctx, user, songId)
	require.NoError(t, err)

	other := env.join(t, "bob")
	_, err = env.service.RemoveVote(ctx, other, songId)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	_, err = env.service.AddVote(ctx, user, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentVotesHaveSingleWinner(t *testing.T) {
	env := newTestEnv(t, 3, "t1")
	ctx := context.Background()
	user := env.join(t, "ann")
	_, err := env.service.AddSong(ctx, user, "t1")
	require.NoError(t, err)
	songId := env.queuedSongId(t, "t1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		forbidden int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.AddVote(ctx, user, songId)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else if assert.ErrorIs(t, err, ErrForbidden) {
				forbidden++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, forbidden)
}

func TestQuota(t *testing.T) {
	env := newTestEnv(t, 2, "t1", "t2", "t3")
	ctx := context.Background()
	user := env.join(t, "ann")

	changed, err := env.service.AddSong(ctx, user, "t1")
	require.NoError(t, err)
	assert.True(t, changed.Songs)
	_, err = env.service.AddSong(ctx, user, "t2")
	require.NoError(t, err)

	lookups := env.provider.getTrackCalls
	_, err = env.service.AddSong(ctx, user, "t3")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, lookups, env.provider.getTrackCalls, "no external lookup past the quota")

	update := env.service.Materialize(ctx, Changed{Songs: true}, user)
	require.NotNil(t, update.Songs)
	require.Len(t, *update.Songs, 2)
	assert.Equal(t, "t1", (*update.Songs)[0].TrackId)
	assert.Equal(t, "t2", (*update.Songs)[1].TrackId)
}

func TestDuplicateTrack(t *testing.T) {
	env := newTestEnv(t, 3, "t1")
	ctx := context.Background()
	ann := env.join(t, "ann")
	bob := env.join(t, "bob")

	_, err := env.service.AddSong(ctx, ann, "t1")
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, bob, "t1")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = env.service.AddSong(ctx, bob, "unknown-track")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestRemoveSongOwnership(t *testing.T) {
	env := newTestEnv(t, 3, "t1", "t2")
	ctx := context.Background()
	ann := env.join(t, "ann")
	bob := env.join(t, "bob")

	_, err := env.service.AddSong(ctx, ann, "t1")
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, ann, "t2")
	require.NoError(t, err)
	first := env.queuedSongId(t, "t1")
	second := env.queuedSongId(t, "t2")

	_, err = env.service.RemoveSong(ctx, bob, first)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.service.RemoveSong(ctx, ann, first)
	require.NoError(t, err)

	changed, err := env.service.RemoveSong(ctx, env.host, second)
	require.NoError(t, err)
	assert.Equal(t, Changed{Songs: true, Votes: true}, changed)

	_, err = env.service.RemoveSong(ctx, env.host, second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKickUser(t *testing.T) {
	env := newTestEnv(t, 3, "t1")
	ctx := context.Background()
	ann := env.join(t, "ann")
	_, err := env.service.AddSong(ctx, ann, "t1")
	require.NoError(t, err)

	changed, err := env.service.KickUser(ctx, env.host, ann.Id)
	require.NoError(t, err)
	assert.Equal(t, Changed{Users: true, Songs: true, Votes: true}, changed)

	_, err = env.service.ResolveIdentity(ctx, ann.Id)
	assert.ErrorIs(t, err, ErrNotFound)

	update := env.service.Materialize(ctx, Changed{Users: true, Songs: true}, env.host)
	assert.Empty(t, *update.Users)
	assert.Empty(t, *update.Songs)

	_, err = env.service.KickUser(ctx, env.host, ann.Id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKickUserOfOtherJam(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	other, err := env.service.CreateJam(ctx, &CreateJamParams{AccountId: "other", Name: "other"})
	require.NoError(t, err)
	stranger, err := env.service.JoinJam(ctx, &JoinJamParams{JamId: other.JamId, Name: "eve"})
	require.NoError(t, err)

	_, err = env.service.KickUser(ctx, env.host, stranger.UserId)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.service.ResolveIdentity(ctx, stranger.UserId)
	assert.NoError(t, err)
}

func TestNextSongPicksMostVoted(t *testing.T) {
	env := newTestEnv(t, 3, "popular", "niche")
	ctx := context.Background()
	users := []Identity{env.join(t, "ann"), env.join(t, "bob"), env.join(t, "cid")}

	_, err := env.service.AddSong(ctx, users[0], "popular")
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, users[1], "niche")
	require.NoError(t, err)
	popular := env.queuedSongId(t, "popular")
	niche := env.queuedSongId(t, "niche")

	for _, user := range users {
		_, err := env.service.AddVote(ctx, user, popular)
		require.NoError(t, err)
	}
	_, err = env.service.AddVote(ctx, users[0], niche)
	require.NoError(t, err)

	changed, err := env.service.NextSong(ctx, env.host)
	require.NoError(t, err)
	assert.True(t, changed.Position)
	assert.True(t, changed.CurrentSong)
	assert.True(t, changed.Votes)

	update := env.service.Materialize(ctx, AllChanged(), env.host)
	require.NotNil(t, update.CurrentSong)
	assert.Equal(t, "popular", update.CurrentSong.TrackId)
	assert.Nil(t, update.CurrentSong.Id)
	assert.Equal(t, map[string]Vote{niche: {Count: 0}}, *update.Votes)
	assert.Equal(t, 0.0, *update.Position)
	require.Len(t, *update.Songs, 1)
	assert.Equal(t, "niche", (*update.Songs)[0].TrackId)

	assert.Equal(t, []string{"popular"}, env.provider.enqueued)
	assert.Equal(t, 1, env.provider.skips)

	// the playing track cannot be queued again
	_, err = env.service.AddSong(ctx, users[0], "popular")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestNextSongTieIsBrokenAmongBest(t *testing.T) {
	env := newTestEnv(t, 3, "t1", "t2", "t3")
	ctx := context.Background()
	ann := env.join(t, "ann")
	for _, trackId := range []string{"t1", "t2", "t3"} {
		_, err := env.service.AddSong(ctx, ann, trackId)
		require.NoError(t, err)
	}
	_, err := env.service.AddVote(ctx, ann, env.queuedSongId(t, "t1"))
	require.NoError(t, err)
	_, err = env.service.AddVote(ctx, ann, env.queuedSongId(t, "t3"))
	require.NoError(t, err)

	_, err = env.service.NextSong(ctx, env.host)
	require.NoError(t, err)

	update := env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
	assert.Contains(t, []string{"t1", "t3"}, update.CurrentSong.TrackId)
}

func TestSelectionChainFallsThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("device queue", func(t *testing.T) {
		env := newTestEnv(t, 3)
		env.provider.queue = []spotify.Track{testTrack("upcoming")}

		_, err := env.service.NextSong(ctx, env.host)
		require.NoError(t, err)

		update := env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
		assert.Equal(t, "upcoming", update.CurrentSong.TrackId)
		assert.Empty(t, env.provider.enqueued, "already queued on the device")
		assert.Equal(t, 1, env.provider.skips)
	})

	t.Run("recommendation", func(t *testing.T) {
		env := newTestEnv(t, 3)
		env.provider.failQueue = true
		env.provider.recent = []spotify.Track{testTrack("old")}
		env.provider.recommended = []spotify.Track{testTrack("fresh")}

		_, err := env.service.NextSong(ctx, env.host)
		require.NoError(t, err)

		update := env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
		assert.Equal(t, "fresh", update.CurrentSong.TrackId)
		assert.Equal(t, []string{"fresh"}, env.provider.enqueued)
	})

	t.Run("default", func(t *testing.T) {
		env := newTestEnv(t, 3)
		env.provider.recent = []spotify.Track{testTrack("old")}

		for range 3 {
			_, err := env.service.NextSong(ctx, env.host)
			require.NoError(t, err)

			update := env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
			assert.Equal(t, defaultTrackId, update.CurrentSong.TrackId)
		}
	})
}

func TestSetPosition(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	changed, err := env.service.SetPosition(ctx, env.host, 0.4)
	require.NoError(t, err)
	assert.Equal(t, Changed{Position: true}, changed)
	update := env.service.Materialize(ctx, changed, env.host)
	assert.Equal(t, 0.4, *update.Position)

	changed, err = env.service.SetPosition(ctx, env.host, 0.995)
	require.NoError(t, err)
	assert.True(t, changed.CurrentSong)
	update = env.service.Materialize(ctx, changed, env.host)
	assert.Equal(t, defaultTrackId, update.CurrentSong.TrackId)
	assert.Equal(t, 0.0, *update.Position)

	_, err = env.service.SetPosition(ctx, env.host, 1.5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLateEndOfSongReportDoesNotSkip(t *testing.T) {
	env := newTestEnv(t, 3, "t1", "t2")
	ctx := context.Background()
	ann := env.join(t, "ann")

	_, err := env.service.AddSong(ctx, ann, "t1")
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, ann, "t2")
	require.NoError(t, err)
	_, err = env.service.AddVote(ctx, ann, env.queuedSongId(t, "t1"))
	require.NoError(t, err)

	_, err = env.service.NextSong(ctx, env.host)
	require.NoError(t, err)
	_, err = env.service.SetPosition(ctx, env.host, 0.5)
	require.NoError(t, err)

	changed, err := env.service.SetPosition(ctx, env.host, 0.995)
	require.NoError(t, err)
	assert.True(t, changed.CurrentSong)
	assert.Equal(t, 2, env.provider.skips)

	// a second report about t1 arrives after the advance
	changed, err = env.service.SetPosition(ctx, env.host, 0.996)
	require.NoError(t, err)
	assert.False(t, changed.Any())
	assert.Equal(t, 2, env.provider.skips)

	update := env.service.Materialize(ctx, AllChanged(), env.host)
	assert.Equal(t, "t2", update.CurrentSong.TrackId)
	assert.Equal(t, 0.0, *update.Position)

	// the device is early into t2, so the report is about the previous song
	_, err = env.service.SetPosition(ctx, env.host, 0.3)
	require.NoError(t, err)
	current := testTrack("t2")
	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 1000, Item: &current}
	changed, err = env.service.SetPosition(ctx, env.host, 0.997)
	require.NoError(t, err)
	assert.False(t, changed.Any())
	assert.Equal(t, 2, env.provider.skips)

	env.provider.playback = &spotify.Playback{IsPlaying: true, ProgressMs: 199000, Item: &current}
	changed, err = env.service.SetPosition(ctx, env.host, 0.997)
	require.NoError(t, err)
	assert.True(t, changed.CurrentSong)
	assert.Equal(t, 3, env.provider.skips)

	update = env.service.Materialize(ctx, Changed{CurrentSong: true}, env.host)
	assert.Equal(t, defaultTrackId, update.CurrentSong.TrackId)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, 3, "needle")
	user := env.join(t, "ann")

	search, err := env.service.Search(context.Background(), user, "needle", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", search.SearchId)
	require.Len(t, search.Songs, 1)
	assert.Equal(t, "needle", search.Songs[0].TrackId)
	assert.Equal(t, "a, b", search.Songs[0].Artists)
	assert.Nil(t, search.Songs[0].Id)
	assert.Nil(t, search.Songs[0].UserId)
}

func TestMaterializeVisibility(t *testing.T) {
	env := newTestEnv(t, 3, "t1", "t2")
	ctx := context.Background()
	ann := env.join(t, "ann")
	bob := env.join(t, "bob")

	_, err := env.service.AddSong(ctx, ann, "t1")
	require.NoError(t, err)
	_, err = env.service.AddSong(ctx, bob, "t2")
	require.NoError(t, err)
	first := env.queuedSongId(t, "t1")
	_, err = env.service.AddVote(ctx, bob, first)
	require.NoError(t, err)

	hostView := env.service.Materialize(ctx, Changed{Songs: true, Votes: true}, env.host)
	for _, song := range *hostView.Songs {
		assert.NotNil(t, song.UserId, "host sees every owner")
	}
	assert.Nil(t, (*hostView.Votes)[first].HaveVoted)
	assert.Equal(t, 1, (*hostView.Votes)[first].Count)

	annView := env.service.Materialize(ctx, Changed{Songs: true, Votes: true}, ann)
	songs := *annView.Songs
	require.Len(t, songs, 2)
	require.NotNil(t, songs[0].UserId)
	assert.Equal(t, ann.Id, *songs[0].UserId)
	assert.Nil(t, songs[1].UserId, "other users' ownership is hidden")
	assert.False(t, *(*annView.Votes)[first].HaveVoted)

	bobView := env.service.Materialize(ctx, Changed{Votes: true}, bob)
	assert.True(t, *(*bobView.Votes)[first].HaveVoted)
	assert.Nil(t, bobView.Songs, "unflagged fields stay unset")
	assert.Empty(t, bobView.Errors)
}

type failingSongsRepo struct {
	iJamRepo
}

func (failingSongsRepo) GetSongs(context.Context, string) ([]repository.Song, error) {
	return nil, errors.New("connection reset")
}

func TestMaterializePartialFailure(t *testing.T) {
	env := newTestEnv(t, 3)
	env.join(t, "ann")
	env.service.repo = failingSongsRepo{iJamRepo: env.service.repo}

	update := env.service.Materialize(context.Background(), Changed{Users: true, Songs: true}, env.host)
	require.NotNil(t, update.Users)
	assert.Len(t, *update.Users, 1)
	assert.Nil(t, update.Songs)
	require.Len(t, update.Errors, 1)
	assert.Contains(t, update.Errors[0], ErrStore.Error())
}

func TestMaterializeEnded(t *testing.T) {
	env := newTestEnv(t, 3)
	update := env.service.Materialize(context.Background(), Changed{Ended: true, Users: true}, env.host)
	assert.True(t, update.Ended)
	assert.Nil(t, update.Users)
}

func TestDeleteJamPublishesEnded(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	ann := env.join(t, "ann")

	sub, err := env.service.Subscribe(ctx, env.host.JamId)
	require.NoError(t, err)
	defer sub.Close()

	assert.ErrorIs(t, env.service.DeleteJam(ctx, ann.Id), ErrPermissionDenied)
	require.NoError(t, env.service.DeleteJam(ctx, env.host.Id))

	select {
	case payload := <-sub.Messages():
		msg, err := DecodeBusMessage(payload)
		require.NoError(t, err)
		assert.Equal(t, Changed{Ended: true}, msg.Changed)
		assert.Empty(t, msg.Errors)
	case <-time.After(time.Second):
		t.Fatal("ended was not published")
	}

	_, err = env.service.ResolveIdentity(ctx, ann.Id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.service.ResolveIdentity(ctx, env.host.Id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransferPlayback(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	require.NoError(t, env.service.TransferPlayback(ctx, env.host.Id, "device-1"))
	assert.Equal(t, []string{"device-1"}, env.provider.transferred)

	ann := env.join(t, "ann")
	assert.ErrorIs(t, env.service.TransferPlayback(ctx, ann.Id, "device-1"), ErrPermissionDenied)
}

func TestDecodeBusMessage(t *testing.T) {
	_, err := DecodeBusMessage("{not json")
	assert.ErrorIs(t, err, ErrDecode)
}
