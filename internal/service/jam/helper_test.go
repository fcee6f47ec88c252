package jam

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	jamRedis "github.com/sharetube/jam/internal/repository/jam/redis"
	"github.com/sharetube/jam/pkg/spotify"
	"github.com/stretchr/testify/require"
)

const defaultTrackId = "default-track"

type fakeProvider struct {
	mu sync.Mutex

	tracks      map[string]spotify.Track
	queue       []spotify.Track
	recent      []spotify.Track
	recommended []spotify.Track
	playback    *spotify.Playback
	failQueue   bool
	failPlay    bool

	getTrackCalls int
	enqueued      []string
	skips         int
	played        []string
	transferred   []string
}

func newFakeProvider(trackIds ...string) *fakeProvider {
	p := &fakeProvider{tracks: make(map[string]spotify.Track)}
	for _, id := range append(trackIds, defaultTrackId) {
		p.tracks[id] = testTrack(id)
	}

	return p
}

func testTrack(id string) spotify.Track {
	return spotify.Track{
		Id:         id,
		Name:       "song " + id,
		URI:        spotify.TrackURI(id),
		DurationMs: 200000,
		Album:      spotify.Album{Name: "album", Images: []spotify.Image{{URL: "https://img/" + id, Width: 640, Height: 640}}},
		Artists:    []spotify.Artist{{Name: "a"}, {Name: "b"}},
	}
}

func (p *fakeProvider) Search(_ context.Context, _, query string, limit int) ([]spotify.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []spotify.Track
	for id, track := range p.tracks {
		if id == query && len(out) < limit {
			out = append(out, track)
		}
	}

	return out, nil
}

func (p *fakeProvider) GetTrack(_ context.Context, _, trackId string) (spotify.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getTrackCalls++
	track, ok := p.tracks[trackId]
	if !ok {
		return spotify.Track{}, spotify.ErrNotFound
	}

	return track, nil
}

func (p *fakeProvider) AddToQueue(_ context.Context, _, trackId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enqueued = append(p.enqueued, trackId)
	return nil
}

func (p *fakeProvider) SkipToNext(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skips++
	return nil
}

func (p *fakeProvider) Play(_ context.Context, _, trackId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPlay {
		return &spotify.StatusError{StatusCode: 404}
	}

	p.played = append(p.played, trackId)
	return nil
}

func (p *fakeProvider) TransferPlayback(_ context.Context, _, deviceId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transferred = append(p.transferred, deviceId)
	return nil
}

func (p *fakeProvider) CurrentlyPlaying(context.Context, string) (*spotify.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playback, nil
}

func (p *fakeProvider) Queue(context.Context, string) ([]spotify.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQueue {
		return nil, &spotify.StatusError{StatusCode: 502}
	}

	return p.queue, nil
}

func (p *fakeProvider) RecentlyPlayed(context.Context, string, int) ([]spotify.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recent, nil
}

func (p *fakeProvider) Recommendations(context.Context, string, []string, int) ([]spotify.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.recommended == nil {
		return nil, &spotify.StatusError{StatusCode: 404}
	}

	return p.recommended, nil
}

type testEnv struct {
	service  *service
	provider *fakeProvider
	host     Identity
}

func newTestEnv(t *testing.T, maxSongCount int, trackIds ...string) *testEnv {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	provider := newFakeProvider(trackIds...)
	repo := jamRedis.NewRepo(rc, slog.Default(), time.Hour)
	svc := NewService(repo, provider, slog.Default(), &Config{
		DefaultTrackId:      defaultTrackId,
		DefaultMaxSongCount: 5,
		SearchLimit:         10,
	})

	ctx := context.Background()
	res, err := svc.CreateJam(ctx, &CreateJamParams{
		AccountId:    "account",
		Name:         "friday",
		MaxSongCount: maxSongCount,
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenExpiry:  time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	host, err := svc.ResolveIdentity(ctx, res.HostId)
	require.NoError(t, err)

	return &testEnv{
		service:  svc,
		provider: provider,
		host:     host,
	}
}

func (e *testEnv) join(t *testing.T, name string) Identity {
	t.Helper()
	ctx := context.Background()
	res, err := e.service.JoinJam(ctx, &JoinJamParams{JamId: e.host.JamId, Name: name})
	require.NoError(t, err)

	user, err := e.service.ResolveIdentity(ctx, res.UserId)
	require.NoError(t, err)

	return user
}

// queuedSongId returns the queue id of the song holding trackId.
func (e *testEnv) queuedSongId(t *testing.T, trackId string) string {
	t.Helper()
	update := e.service.Materialize(context.Background(), Changed{Songs: true}, e.host)
	require.NotNil(t, update.Songs)
	for _, song := range *update.Songs {
		if song.TrackId == trackId {
			require.NotNil(t, song.Id)
			return *song.Id
		}
	}

	t.Fatalf("track %s is not queued", trackId)
	return ""
}
