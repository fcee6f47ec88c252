package jam

import (
	"context"
	"errors"

	repository "github.com/sharetube/jam/internal/repository/jam"
)

// Reconcile is one pass of the host session's background loop. It forces a
// resync of every client and corrects the device when it drifted from the
// jam. Correction errors are returned to the caller, not published.
// ErrNotFound means the jam is gone and the loop should stop.
func (s service) Reconcile(ctx context.Context, host Identity) error {
	exists, err := s.repo.IsJamExists(ctx, host.JamId)
	if err != nil {
		return storeError(err)
	}

	if !exists {
		return ErrNotFound
	}

	if err := s.Publish(ctx, host.JamId, AllChanged()); err != nil {
		return err
	}

	changed, err := s.correctDevice(ctx, host)
	if changed.Any() {
		if pubErr := s.Publish(ctx, host.JamId, changed); pubErr != nil && err == nil {
			err = pubErr
		}
	}

	return err
}

func (s service) correctDevice(ctx context.Context, host Identity) (Changed, error) {
	j, err := s.repo.GetJam(ctx, host.JamId)
	if err != nil {
		return Changed{}, storeError(err)
	}

	current, err := s.repo.GetCurrentSong(ctx, host.JamId)
	if errors.Is(err, repository.ErrCurrentSongNotFound) {
		return s.Advance(ctx, host.JamId)
	}
	if err != nil {
		return Changed{}, storeError(err)
	}

	playback, err := s.provider.CurrentlyPlaying(ctx, j.HostId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get playback", "error", err)
		return Changed{}, providerError(err)
	}

	if playback == nil || playback.Item == nil || playback.Item.Id != current.TrackId {
		// the device moved on by itself after the song ended
		if j.Position >= EndThreshold {
			return s.Advance(ctx, host.JamId)
		}

		s.logger.InfoContext(ctx, "device drifted, replaying current song", "track_id", current.TrackId)
		if err := s.provider.Play(ctx, j.HostId, current.TrackId); err != nil {
			return Changed{}, providerError(err)
		}

		return Changed{}, nil
	}

	if playback.Item.DurationMs <= 0 {
		return Changed{}, nil
	}

	position := float64(playback.ProgressMs) / float64(playback.Item.DurationMs)
	position = min(max(position, 0), 1)
	if position == j.Position {
		return Changed{}, nil
	}

	if err := s.repo.UpdatePosition(ctx, host.JamId, position); err != nil {
		return Changed{}, storeError(err)
	}

	return Changed{Position: true}, nil
}
