package redis

import (
	"context"

	"github.com/sharetube/jam/internal/repository/jam"
)

func (r repo) AddUser(ctx context.Context, params *jam.AddUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	ok, err := r.addUserScript.Run(ctx, r.rc,
		[]string{r.getJamKey(params.JamId), r.getUsersKey(params.JamId), r.getUserKey(params.UserId)},
		params.UserId,
		params.JamId,
		params.Name,
		r.ttlSeconds(),
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

func (r repo) GetUser(ctx context.Context, userId string) (jam.User, error) {
	r.logger.DebugContext(ctx, "called", "user_id", userId)
	var user jam.User
	if err := r.rc.HGetAll(ctx, r.getUserKey(userId)).Scan(&user); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.User{}, err
	}

	if user.JamId == "" {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrUserNotFound)
		return jam.User{}, jam.ErrUserNotFound
	}

	return user, nil
}

func (r repo) GetUserIds(ctx context.Context, jamId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	userIds, err := r.rc.ZRange(ctx, r.getUsersKey(jamId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return userIds, nil
}

// RemoveUser deletes the user with its queued songs and its votes.
func (r repo) RemoveUser(ctx context.Context, params *jam.RemoveUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	ok, err := r.removeUserScript.Run(ctx, r.rc,
		[]string{r.getUsersKey(params.JamId), r.getUserKey(params.UserId)},
		r.getJamPrefix(params.JamId),
		params.UserId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if ok == 0 {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrUserNotFound)
		return jam.ErrUserNotFound
	}

	return nil
}
