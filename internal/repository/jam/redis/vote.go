package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/repository/jam"
)

func (r repo) AddVote(ctx context.Context, params *jam.VoteParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.addVoteScript.Run(ctx, r.rc,
		[]string{r.getSongKey(params.JamId, params.SongId), r.getVotesKey(params.JamId, params.SongId)},
		params.UserId,
		r.ttlSeconds(),
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return r.voteResult(ctx, res, jam.ErrVoteAlreadyExists)
}

func (r repo) RemoveVote(ctx context.Context, params *jam.VoteParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.removeVoteScript.Run(ctx, r.rc,
		[]string{r.getSongKey(params.JamId, params.SongId), r.getVotesKey(params.JamId, params.SongId)},
		params.UserId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return r.voteResult(ctx, res, jam.ErrVoteNotFound)
}

func (r repo) voteResult(ctx context.Context, res int, unchanged error) error {
	var err error
	switch res {
	case -1:
		err = jam.ErrSongNotFound
	case 0:
		err = unchanged
	}
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
	}

	return err
}

// GetVoteCounts returns the number of votes of every queued song.
func (r repo) GetVoteCounts(ctx context.Context, jamId string) (map[string]int, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	songIds, err := r.GetSongIds(ctx, jamId)
	if err != nil {
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(songIds))
	for i, songId := range songIds {
		cmds[i] = pipe.SCard(ctx, r.getVotesKey(jamId, songId))
	}
	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	counts := make(map[string]int, len(songIds))
	for i, cmd := range cmds {
		counts[songIds[i]] = int(cmd.Val())
	}

	return counts, nil
}

// GetVotedSongIds returns the ids of the queued songs the user voted for.
func (r repo) GetVotedSongIds(ctx context.Context, jamId, userId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId, "user_id", userId)
	songIds, err := r.GetSongIds(ctx, jamId)
	if err != nil {
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.BoolCmd, len(songIds))
	for i, songId := range songIds {
		cmds[i] = pipe.SIsMember(ctx, r.getVotesKey(jamId, songId), userId)
	}
	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	voted := make([]string, 0)
	for i, cmd := range cmds {
		if cmd.Val() {
			voted = append(voted, songIds[i])
		}
	}

	return voted, nil
}
