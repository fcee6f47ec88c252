package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// dropSongLua removes a queued song together with its votes, its track
// reservation and its owner's quota slot.
const dropSongLua = `
local function dropSong(prefix, songId)
	local songKey = prefix .. 'song:' .. songId
	local trackId = redis.call('HGET', songKey, 'track_id')
	local userId = redis.call('HGET', songKey, 'user_id')
	redis.call('ZREM', prefix .. 'songs', songId)
	redis.call('DEL', songKey, songKey .. ':votes')
	if trackId then
		redis.call('HDEL', prefix .. 'tracks', trackId)
	end
	if userId then
		redis.call('SREM', prefix .. 'user:' .. userId .. ':songs', songId)
	end
end
`

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	expireDuration time.Duration

	createJamScript      *redis.Script
	hSetIfExistsScript   *redis.Script
	addUserScript        *redis.Script
	removeUserScript     *redis.Script
	addSongScript        *redis.Script
	removeSongScript     *redis.Script
	addVoteScript        *redis.Script
	removeVoteScript     *redis.Script
	setCurrentSongScript *redis.Script
}

func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	if expireDuration < time.Second {
		expireDuration = 14 * 24 * time.Hour
	}

	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
		createJamScript: redis.NewScript(`
			local existing = redis.call('GET', KEYS[1])
			if existing then
				return {1, existing, redis.call('HGET', 'host:' .. existing, 'jam_id') or ''}
			end
			if redis.call('EXISTS', KEYS[3]) == 1 then
				return {2}
			end
			redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[3])
			redis.call('HSET', KEYS[2],
				'jam_id', ARGV[2], 'account_id', ARGV[4],
				'access_token', ARGV[7], 'refresh_token', ARGV[8], 'token_expiry', ARGV[9])
			redis.call('HSET', KEYS[3],
				'name', ARGV[5], 'max_song_count', ARGV[6], 'host_id', ARGV[1], 'position', 0)
			redis.call('EXPIRE', KEYS[2], ARGV[3])
			redis.call('EXPIRE', KEYS[3], ARGV[3])
			return {0}
		`),
		hSetIfExistsScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return 0
			end
			redis.call('HSET', KEYS[1], unpack(ARGV))
			return 1
		`),
		addUserScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return 0
			end
			redis.call('HSET', KEYS[3], 'jam_id', ARGV[2], 'name', ARGV[3])
			local top = redis.call('ZREVRANGE', KEYS[2], 0, 0, 'WITHSCORES')
			local score = 1
			if #top > 0 then
				score = tonumber(top[2]) + 1
			end
			redis.call('ZADD', KEYS[2], score, ARGV[1])
			redis.call('EXPIRE', KEYS[2], ARGV[4])
			redis.call('EXPIRE', KEYS[3], ARGV[4])
			return 1
		`),
		removeUserScript: redis.NewScript(dropSongLua + `
			local prefix = ARGV[1]
			local userId = ARGV[2]
			if redis.call('ZREM', KEYS[1], userId) == 0 then
				return 0
			end
			redis.call('DEL', KEYS[2])
			local userSongsKey = prefix .. 'user:' .. userId .. ':songs'
			for _, songId in ipairs(redis.call('SMEMBERS', userSongsKey)) do
				dropSong(prefix, songId)
			end
			redis.call('DEL', userSongsKey)
			for _, songId in ipairs(redis.call('ZRANGE', prefix .. 'songs', 0, -1)) do
				redis.call('SREM', prefix .. 'song:' .. songId .. ':votes', userId)
			end
			return 1
		`),
		addSongScript: redis.NewScript(`
			-- KEYS: jam, user songs, tracks, songs, song, current
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return -3
			end
			if redis.call('SCARD', KEYS[2]) >= tonumber(ARGV[1]) then
				return -1
			end
			if redis.call('HEXISTS', KEYS[3], ARGV[2]) == 1 or redis.call('HGET', KEYS[6], 'track_id') == ARGV[2] then
				return -2
			end
			local fields = {}
			for i = 5, #ARGV do
				fields[#fields + 1] = ARGV[i]
			end
			redis.call('HSET', KEYS[5], unpack(fields))
			redis.call('HSET', KEYS[3], ARGV[2], ARGV[3])
			redis.call('SADD', KEYS[2], ARGV[3])
			local top = redis.call('ZREVRANGE', KEYS[4], 0, 0, 'WITHSCORES')
			local score = 1
			if #top > 0 then
				score = tonumber(top[2]) + 1
			end
			redis.call('ZADD', KEYS[4], score, ARGV[3])
			for i = 2, 5 do
				redis.call('EXPIRE', KEYS[i], ARGV[4])
			end
			return score
		`),
		removeSongScript: redis.NewScript(dropSongLua + `
			if redis.call('ZSCORE', KEYS[1], ARGV[2]) == false then
				return nil
			end
			local userId = redis.call('HGET', ARGV[1] .. 'song:' .. ARGV[2], 'user_id') or ''
			dropSong(ARGV[1], ARGV[2])
			return userId
		`),
		addVoteScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return -1
			end
			local added = redis.call('SADD', KEYS[2], ARGV[1])
			redis.call('EXPIRE', KEYS[2], ARGV[2])
			return added
		`),
		removeVoteScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return -1
			end
			return redis.call('SREM', KEYS[2], ARGV[1])
		`),
		setCurrentSongScript: redis.NewScript(dropSongLua + `
			-- KEYS: jam, current, songs
			local prefix = ARGV[1]
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return 0
			end
			if ARGV[2] ~= '' then
				dropSong(prefix, ARGV[2])
			end
			for _, songId in ipairs(redis.call('ZRANGE', KEYS[3], 0, -1)) do
				redis.call('DEL', prefix .. 'song:' .. songId .. ':votes')
			end
			local fields = {}
			for i = 4, #ARGV do
				fields[#fields + 1] = ARGV[i]
			end
			redis.call('DEL', KEYS[2])
			redis.call('HSET', KEYS[2], unpack(fields))
			redis.call('HSET', KEYS[1], 'position', 0)
			redis.call('EXPIRE', KEYS[2], ARGV[3])
			redis.call('EXPIRE', KEYS[1], ARGV[3])
			return 1
		`),
	}
}
