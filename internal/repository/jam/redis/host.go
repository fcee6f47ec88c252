package redis

import (
	"context"
	"time"

	"github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/pkg/spotify"
)

func (r repo) GetHost(ctx context.Context, hostId string) (jam.Host, error) {
	r.logger.DebugContext(ctx, "called", "host_id", hostId)
	var host jam.Host
	if err := r.rc.HGetAll(ctx, r.getHostKey(hostId)).Scan(&host); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return jam.Host{}, err
	}

	if host.JamId == "" {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrHostNotFound)
		return jam.Host{}, jam.ErrHostNotFound
	}

	return host, nil
}

// GetToken and SetToken make the repo the provider's token store.
func (r repo) GetToken(ctx context.Context, hostId string) (spotify.Token, error) {
	host, err := r.GetHost(ctx, hostId)
	if err != nil {
		return spotify.Token{}, err
	}

	return spotify.Token{
		AccessToken:  host.AccessToken,
		RefreshToken: host.RefreshToken,
		Expiry:       time.Unix(host.TokenExpiry, 0),
	}, nil
}

func (r repo) SetToken(ctx context.Context, hostId string, token spotify.Token) error {
	r.logger.DebugContext(ctx, "called", "host_id", hostId)
	ok, err := r.hSetIfExists(ctx, r.getHostKey(hostId),
		"access_token", token.AccessToken,
		"refresh_token", token.RefreshToken,
		"token_expiry", token.Expiry.Unix(),
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", jam.ErrHostNotFound)
		return jam.ErrHostNotFound
	}

	return nil
}
