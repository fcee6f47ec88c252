package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func TrackURI(trackId string) string {
	return "spotify:track:" + trackId
}

func (c *Client) Search(ctx context.Context, hostId, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var resp searchResponse
	if err := c.do(ctx, hostId, http.MethodGet, "/search", url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Tracks.Items, nil
}

func (c *Client) GetTrack(ctx context.Context, hostId, trackId string) (Track, error) {
	var track Track
	if err := c.do(ctx, hostId, http.MethodGet, "/tracks/"+url.PathEscape(trackId), nil, nil, &track); err != nil {
		return Track{}, err
	}

	return track, nil
}

func (c *Client) AddToQueue(ctx context.Context, hostId, trackId string) error {
	return c.do(ctx, hostId, http.MethodPost, "/me/player/queue", url.Values{
		"uri": {TrackURI(trackId)},
	}, nil, nil)
}

func (c *Client) SkipToNext(ctx context.Context, hostId string) error {
	return c.do(ctx, hostId, http.MethodPost, "/me/player/next", nil, nil, nil)
}

// Play starts the track on the active device, replacing whatever is playing.
func (c *Client) Play(ctx context.Context, hostId, trackId string) error {
	return c.do(ctx, hostId, http.MethodPut, "/me/player/play", nil, map[string]any{
		"uris": []string{TrackURI(trackId)},
	}, nil)
}

func (c *Client) TransferPlayback(ctx context.Context, hostId, deviceId string) error {
	return c.do(ctx, hostId, http.MethodPut, "/me/player", nil, map[string]any{
		"device_ids": []string{deviceId},
		"play":       true,
	}, nil)
}

// CurrentlyPlaying returns nil when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, hostId string) (*Playback, error) {
	var playback Playback
	if err := c.do(ctx, hostId, http.MethodGet, "/me/player/currently-playing", nil, nil, &playback); err != nil {
		return nil, err
	}

	if playback.Item == nil {
		return nil, nil
	}

	return &playback, nil
}

func (c *Client) Queue(ctx context.Context, hostId string) ([]Track, error) {
	var resp queueResponse
	if err := c.do(ctx, hostId, http.MethodGet, "/me/player/queue", nil, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Queue, nil
}

func (c *Client) RecentlyPlayed(ctx context.Context, hostId string, limit int) ([]Track, error) {
	var resp recentlyPlayedResponse
	if err := c.do(ctx, hostId, http.MethodGet, "/me/player/recently-played", url.Values{
		"limit": {strconv.Itoa(limit)},
	}, nil, &resp); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		tracks = append(tracks, item.Track)
	}

	return tracks, nil
}

func (c *Client) Recommendations(ctx context.Context, hostId string, seedTrackIds []string, limit int) ([]Track, error) {
	// the api accepts at most five seeds
	if len(seedTrackIds) > 5 {
		seedTrackIds = seedTrackIds[:5]
	}

	var resp recommendationsResponse
	if err := c.do(ctx, hostId, http.MethodGet, "/recommendations", url.Values{
		"seed_tracks": {strings.Join(seedTrackIds, ",")},
		"limit":       {strconv.Itoa(limit)},
	}, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Tracks, nil
}
