package redis

import (
	"context"
	"errors"
	"reflect"
	"strconv"

	"github.com/redis/go-redis/v9"
)

func (r repo) getAccountKey(accountId string) string {
	return "account:" + accountId
}

func (r repo) getHostKey(hostId string) string {
	return "host:" + hostId
}

func (r repo) getUserKey(userId string) string {
	return "user:" + userId
}

func (r repo) getJamKey(jamId string) string {
	return "jam:" + jamId
}

// getJamPrefix is the prefix shared by every key of a jam; scripts derive
// per-song and per-user keys from it.
func (r repo) getJamPrefix(jamId string) string {
	return "jam:" + jamId + ":"
}

func (r repo) getUsersKey(jamId string) string {
	return r.getJamPrefix(jamId) + "users"
}

func (r repo) getSongsKey(jamId string) string {
	return r.getJamPrefix(jamId) + "songs"
}

func (r repo) getTracksKey(jamId string) string {
	return r.getJamPrefix(jamId) + "tracks"
}

func (r repo) getSongKey(jamId, songId string) string {
	return r.getJamPrefix(jamId) + "song:" + songId
}

func (r repo) getVotesKey(jamId, songId string) string {
	return r.getSongKey(jamId, songId) + ":votes"
}

func (r repo) getUserSongsKey(jamId, userId string) string {
	return r.getJamPrefix(jamId) + "user:" + userId + ":songs"
}

func (r repo) getCurrentSongKey(jamId string) string {
	return r.getJamPrefix(jamId) + "current"
}

func (r repo) getChannel(jamId string) string {
	return "jam:" + jamId
}

func (r repo) ttlSeconds() int64 {
	return int64(r.expireDuration.Seconds())
}

// structToArgs flattens a struct with redis tags into HSET field/value pairs.
func (r repo) structToArgs(value any) []any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	t := v.Type()
	args := make([]any, 0, v.NumField()*2)
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" || tag == "-" {
			continue
		}

		args = append(args, tag, v.Field(i).Interface())
	}

	return args
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}

		if !errors.Is(err, redis.Nil) {
			return err
		}
	}

	return nil
}

func (r repo) fieldToInt(field any) int64 {
	switch v := field.(type) {
	case int64:
		return v
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	}

	return 0
}
