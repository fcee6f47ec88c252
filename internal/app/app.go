package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/jam/internal/controller"
	"github.com/sharetube/jam/internal/repository/connection/inmemory"
	jamRedis "github.com/sharetube/jam/internal/repository/jam/redis"
	"github.com/sharetube/jam/internal/service/jam"
	"github.com/sharetube/jam/pkg/ctxlogger"
	"github.com/sharetube/jam/pkg/redisclient"
	"github.com/sharetube/jam/pkg/spotify"
	"github.com/sharetube/jam/pkg/validator"
)

type AppConfig struct {
	Host                string        `json:"host"`
	Port                int           `json:"port" validate:"min=1,max=65535"`
	LogLevel            string        `json:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	RedisHost           string        `json:"redis_host" validate:"required"`
	RedisPort           int           `json:"redis_port" validate:"min=1,max=65535"`
	RedisPassword       string        `json:"-"`
	SpotifyClientId     string        `json:"spotify_client_id" validate:"required"`
	SpotifyClientSecret string        `json:"-" validate:"required"`
	SpotifyAPIURL       string        `json:"spotify_api_url" validate:"omitempty,url"`
	SpotifyAccountsURL  string        `json:"spotify_accounts_url" validate:"omitempty,url"`
	DefaultTrackId      string        `json:"default_track_id" validate:"required"`
	DefaultMaxSongCount int           `json:"default_max_song_count" validate:"min=1"`
	SearchLimit         int           `json:"search_limit" validate:"min=1,max=50"`
	ReconcileInterval   time.Duration `json:"reconcile_interval" validate:"min=100ms"`
	RequestsPerSecond   float64       `json:"requests_per_second" validate:"gte=0"`
	RequestsBurst       int           `json:"requests_burst" validate:"min=1"`
	JamTTL              time.Duration `json:"jam_ttl" validate:"min=1m"`
}

func (cfg *AppConfig) Validate() error {
	return validator.NewValidator().Check(cfg)
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       logLevel,
			AddSource:   true,
			ReplaceAttr: ctxlogger.ReplaceAttr,
		}),
	}

	return slog.New(&h), nil
}

type handler interface {
	GetMux() http.Handler
	CloseConnections()
}

// newHandler wires repository, provider, service and controller around rc.
func newHandler(rc *redis.Client, logger *slog.Logger, cfg *AppConfig) handler {
	jamRepo := jamRedis.NewRepo(rc, logger, cfg.JamTTL)
	provider := spotify.New(&spotify.Config{
		ClientId:     cfg.SpotifyClientId,
		ClientSecret: cfg.SpotifyClientSecret,
		APIURL:       cfg.SpotifyAPIURL,
		AccountsURL:  cfg.SpotifyAccountsURL,
	}, jamRepo)
	jamService := jam.NewService(jamRepo, provider, logger, &jam.Config{
		DefaultTrackId:      cfg.DefaultTrackId,
		DefaultMaxSongCount: cfg.DefaultMaxSongCount,
		SearchLimit:         cfg.SearchLimit,
	})
	connRepo := inmemory.NewRepo(logger)

	return controller.NewController(jamService, connRepo, logger, &controller.Config{
		ReconcileInterval: cfg.ReconcileInterval,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RequestsBurst:     cfg.RequestsBurst,
	})
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	h := newHandler(rc, logger, cfg)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: h.GetMux()}
	// hijacked sockets are not tracked by Shutdown
	server.RegisterOnShutdown(h.CloseConnections)

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
