package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/jam/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	host = configVar[string]{
		envKey:       "JAM_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "JAM_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "JAM_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	spotifyClientId = configVar[string]{
		envKey:       "SPOTIFY_CLIENT_ID",
		flagKey:      "spotify-client-id",
		defaultValue: "",
		usage:        "Spotify application client id",
	}
	spotifyClientSecret = configVar[string]{
		envKey:       "SPOTIFY_CLIENT_SECRET",
		flagKey:      "spotify-client-secret",
		defaultValue: "",
		usage:        "Spotify application client secret",
	}
	spotifyAPIURL = configVar[string]{
		envKey:       "SPOTIFY_API_URL",
		flagKey:      "spotify-api-url",
		defaultValue: "",
		usage:        "Override of the Spotify Web API base url",
	}
	spotifyAccountsURL = configVar[string]{
		envKey:       "SPOTIFY_ACCOUNTS_URL",
		flagKey:      "spotify-accounts-url",
		defaultValue: "",
		usage:        "Override of the Spotify token endpoint",
	}
	defaultTrackId = configVar[string]{
		envKey:       "JAM_DEFAULT_TRACK_ID",
		flagKey:      "default-track-id",
		defaultValue: "4uLU6hMCjMI75M1A2tKUQC",
		usage:        "Track played when nothing else can be selected",
	}
	defaultMaxSongCount = configVar[int]{
		envKey:       "JAM_DEFAULT_MAX_SONG_COUNT",
		flagKey:      "default-max-song-count",
		defaultValue: 5,
		usage:        "Songs a user may have queued when the jam does not set a limit",
	}
	searchLimit = configVar[int]{
		envKey:       "JAM_SEARCH_LIMIT",
		flagKey:      "search-limit",
		defaultValue: 10,
		usage:        "Tracks returned per search",
	}
	reconcileInterval = configVar[time.Duration]{
		envKey:       "JAM_RECONCILE_INTERVAL",
		flagKey:      "reconcile-interval",
		defaultValue: 5 * time.Second,
		usage:        "How often a host session reconciles the device",
	}
	requestsPerSecond = configVar[float64]{
		envKey:       "JAM_REQUESTS_PER_SECOND",
		flagKey:      "requests-per-second",
		defaultValue: 10,
		usage:        "Websocket requests allowed per second per connection, 0 disables the limit",
	}
	requestsBurst = configVar[int]{
		envKey:       "JAM_REQUESTS_BURST",
		flagKey:      "requests-burst",
		defaultValue: 20,
		usage:        "Websocket request burst per connection",
	}
	jamTTL = configVar[time.Duration]{
		envKey:       "JAM_TTL",
		flagKey:      "jam-ttl",
		defaultValue: 14 * 24 * time.Hour,
		usage:        "Lifetime of jam state in redis",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.String(spotifyClientId.flagKey, spotifyClientId.defaultValue, spotifyClientId.usage)
	pflag.String(spotifyClientSecret.flagKey, spotifyClientSecret.defaultValue, spotifyClientSecret.usage)
	pflag.String(spotifyAPIURL.flagKey, spotifyAPIURL.defaultValue, spotifyAPIURL.usage)
	pflag.String(spotifyAccountsURL.flagKey, spotifyAccountsURL.defaultValue, spotifyAccountsURL.usage)
	pflag.String(defaultTrackId.flagKey, defaultTrackId.defaultValue, defaultTrackId.usage)
	pflag.Int(defaultMaxSongCount.flagKey, defaultMaxSongCount.defaultValue, defaultMaxSongCount.usage)
	pflag.Int(searchLimit.flagKey, searchLimit.defaultValue, searchLimit.usage)
	pflag.Duration(reconcileInterval.flagKey, reconcileInterval.defaultValue, reconcileInterval.usage)
	pflag.Float64(requestsPerSecond.flagKey, requestsPerSecond.defaultValue, requestsPerSecond.usage)
	pflag.Int(requestsBurst.flagKey, requestsBurst.defaultValue, requestsBurst.usage)
	pflag.Duration(jamTTL.flagKey, jamTTL.defaultValue, jamTTL.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	host.bind()
	port.bind()
	logLevel.bind()
	redisHost.bind()
	redisPort.bind()
	redisPassword.bind()
	spotifyClientId.bind()
	spotifyClientSecret.bind()
	spotifyAPIURL.bind()
	spotifyAccountsURL.bind()
	defaultTrackId.bind()
	defaultMaxSongCount.bind()
	searchLimit.bind()
	reconcileInterval.bind()
	requestsPerSecond.bind()
	requestsBurst.bind()
	jamTTL.bind()

	return &app.AppConfig{
		Host:                viper.GetString(host.flagKey),
		Port:                viper.GetInt(port.flagKey),
		LogLevel:            viper.GetString(logLevel.flagKey),
		RedisHost:           viper.GetString(redisHost.flagKey),
		RedisPort:           viper.GetInt(redisPort.flagKey),
		RedisPassword:       viper.GetString(redisPassword.flagKey),
		SpotifyClientId:     viper.GetString(spotifyClientId.flagKey),
		SpotifyClientSecret: viper.GetString(spotifyClientSecret.flagKey),
		SpotifyAPIURL:       viper.GetString(spotifyAPIURL.flagKey),
		SpotifyAccountsURL:  viper.GetString(spotifyAccountsURL.flagKey),
		DefaultTrackId:      viper.GetString(defaultTrackId.flagKey),
		DefaultMaxSongCount: viper.GetInt(defaultMaxSongCount.flagKey),
		SearchLimit:         viper.GetInt(searchLimit.flagKey),
		ReconcileInterval:   viper.GetDuration(reconcileInterval.flagKey),
		RequestsPerSecond:   viper.GetFloat64(requestsPerSecond.flagKey),
		RequestsBurst:       viper.GetInt(requestsBurst.flagKey),
		JamTTL:              viper.GetDuration(jamTTL.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
