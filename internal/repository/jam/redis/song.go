package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/repository/jam"
)

func (r repo) GetUserSongCount(ctx context.Context, jamId, userId string) (int, error) {
	count, err := r.rc.SCard(ctx, r.getUserSongsKey(jamId, userId)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count user songs: %w", err)
	}

	return int(count), nil
}

// IsTrackInJam reports whether the track is queued or currently playing.
func (r repo) IsTrackInJam(ctx context.Context, jamId, trackId string) (bool, error) {
	pipe := r.rc.Pipeline()
	queued := pipe.HExists(ctx, r.getTracksKey(jamId), trackId)
	current := pipe.HGet(ctx, r.getCurrentSongKey(jamId), "track_id")
	if err := r.executePipe(ctx, pipe); err != nil {
		return false, fmt.Errorf("failed to check track: %w", err)
	}

	return queued.Val() || current.Val() == trackId, nil
}

func (r repo) AddSong(ctx context.Context, params *jam.AddSongParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	song := params.Song
	args := []any{params.MaxSongCount, song.TrackId, song.Id, r.ttlSeconds()}
	args = append(args, r.structToArgs(song)...)

	res, err := r.addSongScript.Run(ctx, r.rc,
		[]string{
			r.getJamKey(params.JamId),
			r.getUserSongsKey(params.JamId, song.UserId),
			r.getTracksKey(params.JamId),
			r.getSongsKey(params.JamId),
			r.getSongKey(params.JamId, song.Id),
			r.getCurrentSongKey(params.JamId),
		},
		args...,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	var resErr error
	switch res {
	case -1:
		resErr = jam.ErrSongLimitReached
	case -2:
		resErr = jam.ErrSongAlreadyExists
	case -3:
		resErr = jam.ErrJamNotFound
	}
	if resErr != nil {
		r.logger.DebugContext(ctx, "returned", "error", resErr)
		return resErr
	}

	return nil
}

// RemoveSong deletes a queued song and returns the id of the user who added it.
func (r repo) RemoveSong(ctx context.Context, params *jam.RemoveSongParams) (string, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	userId, err := r.removeSongScript.Run(ctx, r.rc,
		[]string{r.getSongsKey(params.JamId)},
		r.getJamPrefix(params.JamId),
		params.SongId,
	).Text()
	if err != nil {
		if r.isNil(err) {
			r.logger.DebugContext(ctx, "returned", "error", jam.ErrSongNotFound)
			return "", jam.ErrSongNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", err
	}

	return userId, nil
}

func (r repo) GetSong(ctx context.Context, jamId, songId string) (jam.Song, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId, "song_id", songId)
	var song jam.Song
	if err := r.rc.HGetAll(ctx, r.getSongKey(jamId, songId)).Scan(&song); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.Song{}, err
	}

	if song.TrackId == "" {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrSongNotFound)
		return jam.Song{}, jam.ErrSongNotFound
	}

	song.Id = songId
	return song, nil
}

func (r repo) GetSongIds(ctx context.Context, jamId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	songIds, err := r.rc.ZRange(ctx, r.getSongsKey(jamId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return songIds, nil
}

// GetSongs returns the queued songs in the order they were added.
func (r repo) GetSongs(ctx context.Context, jamId string) ([]jam.Song, error) {
	songIds, err := r.GetSongIds(ctx, jamId)
	if err != nil {
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(songIds))
	for i, songId := range songIds {
		cmds[i] = pipe.HGetAll(ctx, r.getSongKey(jamId, songId))
	}
	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	songs := make([]jam.Song, 0, len(songIds))
	for i, cmd := range cmds {
		var song jam.Song
		if err := cmd.Scan(&song); err != nil {
			return nil, err
		}

		// removed between ZRANGE and HGETALL
		if song.TrackId == "" {
			continue
		}

		song.Id = songIds[i]
		songs = append(songs, song)
	}

	return songs, nil
}
