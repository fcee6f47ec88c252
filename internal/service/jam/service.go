package jam

import (
	"context"
	"log/slog"

	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/pkg/randstr"
	"github.com/sharetube/jam/pkg/spotify"
)

type iJamRepo interface {
	// jam
	CreateJam(context.Context, *repository.CreateJamParams) (repository.CreateJamResult, error)
	GetJam(context.Context, string) (repository.Jam, error)
	IsJamExists(context.Context, string) (bool, error)
	UpdatePosition(ctx context.Context, jamId string, position float64) error
	DeleteJam(context.Context, string) error
	GetHost(context.Context, string) (repository.Host, error)
	// user
	AddUser(context.Context, *repository.AddUserParams) error
	GetUser(context.Context, string) (repository.User, error)
	GetUserIds(context.Context, string) ([]string, error)
	RemoveUser(context.Context, *repository.RemoveUserParams) error
	// song
	GetUserSongCount(ctx context.Context, jamId, userId string) (int, error)
	IsTrackInJam(ctx context.Context, jamId, trackId string) (bool, error)
	AddSong(context.Context, *repository.AddSongParams) error
	RemoveSong(context.Context, *repository.RemoveSongParams) (string, error)
	GetSong(ctx context.Context, jamId, songId string) (repository.Song, error)
	GetSongs(context.Context, string) ([]repository.Song, error)
	// vote
	AddVote(context.Context, *repository.VoteParams) error
	RemoveVote(context.Context, *repository.VoteParams) error
	GetVoteCounts(context.Context, string) (map[string]int, error)
	GetVotedSongIds(ctx context.Context, jamId, userId string) ([]string, error)
	// current song
	SetCurrentSong(context.Context, *repository.SetCurrentSongParams) error
	GetCurrentSong(context.Context, string) (repository.Song, error)
	// bus
	Publish(ctx context.Context, jamId string, payload []byte) error
	Subscribe(ctx context.Context, jamId string) (repository.Subscription, error)
}

type iProvider interface {
	Search(ctx context.Context, hostId, query string, limit int) ([]spotify.Track, error)
	GetTrack(ctx context.Context, hostId, trackId string) (spotify.Track, error)
	AddToQueue(ctx context.Context, hostId, trackId string) error
	SkipToNext(ctx context.Context, hostId string) error
	Play(ctx context.Context, hostId, trackId string) error
	TransferPlayback(ctx context.Context, hostId, deviceId string) error
	CurrentlyPlaying(ctx context.Context, hostId string) (*spotify.Playback, error)
	Queue(ctx context.Context, hostId string) ([]spotify.Track, error)
	RecentlyPlayed(ctx context.Context, hostId string, limit int) ([]spotify.Track, error)
	Recommendations(ctx context.Context, hostId string, seedTrackIds []string, limit int) ([]spotify.Track, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	DefaultTrackId      string
	DefaultMaxSongCount int
	SearchLimit         int
}

type service struct {
	repo                iJamRepo
	provider            iProvider
	generator           iGenerator
	logger              *slog.Logger
	defaultTrackId      string
	defaultMaxSongCount int
	searchLimit         int
}

func NewService(repo iJamRepo, provider iProvider, logger *slog.Logger, cfg *Config) *service {
	s := service{
		repo:                repo,
		provider:            provider,
		logger:              logger,
		defaultTrackId:      cfg.DefaultTrackId,
		defaultMaxSongCount: cfg.DefaultMaxSongCount,
		searchLimit:         cfg.SearchLimit,
	}

	if s.defaultMaxSongCount < 1 {
		s.defaultMaxSongCount = 5
	}
	if s.searchLimit < 1 {
		s.searchLimit = 10
	}

	// no look-alike characters, the code is read aloud and typed by hand
	letterBytes := []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
