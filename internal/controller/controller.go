package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/internal/service/jam"
	"github.com/sharetube/jam/pkg/validator"
	"golang.org/x/time/rate"
)

type iJamService interface {
	ResolveIdentity(ctx context.Context, id string) (jam.Identity, error)
	// lifecycle
	CreateJam(context.Context, *jam.CreateJamParams) (jam.CreateJamResponse, error)
	JoinJam(context.Context, *jam.JoinJamParams) (jam.JoinJamResponse, error)
	DeleteJam(ctx context.Context, hostId string) error
	TransferPlayback(ctx context.Context, hostId, deviceId string) error
	// queue
	AddSong(ctx context.Context, id jam.Identity, trackId string) (jam.Changed, error)
	RemoveSong(ctx context.Context, id jam.Identity, songId string) (jam.Changed, error)
	AddVote(ctx context.Context, id jam.Identity, songId string) (jam.Changed, error)
	RemoveVote(ctx context.Context, id jam.Identity, songId string) (jam.Changed, error)
	KickUser(ctx context.Context, id jam.Identity, userId string) (jam.Changed, error)
	Search(ctx context.Context, id jam.Identity, query, searchId string) (jam.Search, error)
	SetPosition(ctx context.Context, id jam.Identity, position float64) (jam.Changed, error)
	NextSong(ctx context.Context, id jam.Identity) (jam.Changed, error)
	// fanout
	Materialize(ctx context.Context, changed jam.Changed, viewer jam.Identity) jam.Update
	Publish(ctx context.Context, jamId string, changed jam.Changed, errs ...error) error
	Subscribe(ctx context.Context, jamId string) (repository.Subscription, error)
	Reconcile(ctx context.Context, host jam.Identity) error
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	Remove(*websocket.Conn) error
	CloseAll(code int, reason string)
}

type Config struct {
	ReconcileInterval time.Duration
	RequestsPerSecond float64
	RequestsBurst     int
}

type controller struct {
	jamService        iJamService
	connRepo          iConnRepo
	upgrader          websocket.Upgrader
	validate          *validator.Validator
	logger            *slog.Logger
	reconcileInterval time.Duration
	requestsLimit     rate.Limit
	requestsBurst     int
}

func NewController(jamService iJamService, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		jamService:        jamService,
		connRepo:          connRepo,
		validate:          validator.NewValidator(),
		logger:            logger,
		reconcileInterval: cfg.ReconcileInterval,
		requestsLimit:     rate.Limit(cfg.RequestsPerSecond),
		requestsBurst:     cfg.RequestsBurst,
	}

	if c.reconcileInterval <= 0 {
		c.reconcileInterval = 5 * time.Second
	}
	if c.requestsLimit <= 0 {
		c.requestsLimit = rate.Inf
	}
	if c.requestsBurst < 1 {
		c.requestsBurst = 1
	}

	return c
}

// CloseConnections says goodbye to every live socket of this process.
func (c controller) CloseConnections() {
	c.connRepo.CloseAll(websocket.CloseGoingAway, "server shutting down")
}
