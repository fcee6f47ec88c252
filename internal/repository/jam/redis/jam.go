package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/repository/jam"
)

// CreateJam stores a jam with its host. When the account already hosts a
// jam the existing ids are returned together with ErrJamAlreadyExists.
func (r repo) CreateJam(ctx context.Context, params *jam.CreateJamParams) (jam.CreateJamResult, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", params.JamId, "host_id", params.HostId)
	res, err := r.createJamScript.Run(ctx, r.rc,
		[]string{r.getAccountKey(params.AccountId), r.getHostKey(params.HostId), r.getJamKey(params.JamId)},
		params.HostId,
		params.JamId,
		r.ttlSeconds(),
		params.AccountId,
		params.Name,
		params.MaxSongCount,
		params.AccessToken,
		params.RefreshToken,
		params.TokenExpiry,
	).Slice()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.CreateJamResult{}, err
	}

	switch r.fieldToInt(res[0]) {
	case 1:
		existing := jam.CreateJamResult{HostId: res[1].(string), JamId: res[2].(string)}
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrJamAlreadyExists, "existing_jam_id", existing.JamId)
		return existing, jam.ErrJamAlreadyExists
	case 2:
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrJamIdTaken)
		return jam.CreateJamResult{}, jam.ErrJamIdTaken
	}

	return jam.CreateJamResult{JamId: params.JamId, HostId: params.HostId}, nil
}

func (r repo) GetJam(ctx context.Context, jamId string) (jam.Jam, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	var j jam.Jam
	if err := r.rc.HGetAll(ctx, r.getJamKey(jamId)).Scan(&j); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.Jam{}, err
	}

	if j.HostId == "" {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrJamNotFound)
		return jam.Jam{}, jam.ErrJamNotFound
	}

	return j, nil
}

func (r repo) IsJamExists(ctx context.Context, jamId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getJamKey(jamId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if jam exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) UpdatePosition(ctx context.Context, jamId string, position float64) error {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId, "position", position)
	ok, err := r.hSetIfExists(ctx, r.getJamKey(jamId), "position", position)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrJamNotFound)
		return jam.ErrJamNotFound
	}

	return nil
}

// DeleteJam removes every key of the jam, its host and its users.
func (r repo) DeleteJam(ctx context.Context, jamId string) error {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	j, err := r.GetJam(ctx, jamId)
	if err != nil {
		return err
	}

	host, err := r.GetHost(ctx, j.HostId)
	if err != nil && !errors.Is(err, jam.ErrHostNotFound) {
		return err
	}

	userIds, err := r.rc.ZRange(ctx, r.getUsersKey(jamId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	songIds, err := r.rc.ZRange(ctx, r.getSongsKey(jamId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	keys := []string{
		r.getJamKey(jamId),
		r.getUsersKey(jamId),
		r.getSongsKey(jamId),
		r.getTracksKey(jamId),
		r.getCurrentSongKey(jamId),
		r.getHostKey(j.HostId),
		r.getUserSongsKey(jamId, j.HostId),
	}
	if host.AccountId != "" {
		keys = append(keys, r.getAccountKey(host.AccountId))
	}
	for _, userId := range userIds {
		keys = append(keys, r.getUserKey(userId), r.getUserSongsKey(jamId, userId))
	}
	for _, songId := range songIds {
		keys = append(keys, r.getSongKey(jamId, songId), r.getVotesKey(jamId, songId))
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, keys...)
	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) hSetIfExists(ctx context.Context, key string, values ...any) (bool, error) {
	res, err := r.hSetIfExistsScript.Run(ctx, r.rc, []string{key}, values...).Int()
	if err != nil {
		return false, err
	}

	return res == 1, nil
}

func (r repo) isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
