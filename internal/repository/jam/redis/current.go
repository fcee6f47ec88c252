package redis

import (
	"context"

	"github.com/sharetube/jam/internal/repository/jam"
)

// SetCurrentSong replaces the current song, resets every vote in the jam and
// the playback position. A song taken from the queue is removed from it in the
// same step.
func (r repo) SetCurrentSong(ctx context.Context, params *jam.SetCurrentSongParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	args := []any{r.getJamPrefix(params.JamId), params.QueuedSongId, r.ttlSeconds()}
	args = append(args, r.structToArgs(params.Song)...)

	ok, err := r.setCurrentSongScript.Run(ctx, r.rc,
		[]string{r.getJamKey(params.JamId), r.getCurrentSongKey(params.JamId), r.getSongsKey(params.JamId)},
		args...,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if ok == 0 {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrJamNotFound)
		return jam.ErrJamNotFound
	}

	return nil
}

func (r repo) GetCurrentSong(ctx context.Context, jamId string) (jam.Song, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	var song jam.Song
	if err := r.rc.HGetAll(ctx, r.getCurrentSongKey(jamId)).Scan(&song); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.Song{}, err
	}

	if song.TrackId == "" {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrCurrentSongNotFound)
		return jam.Song{}, jam.ErrCurrentSongNotFound
	}

	return song, nil
}
