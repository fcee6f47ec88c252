package jam

import (
	"context"
	"errors"
	"math/rand/v2"

	repository "github.com/sharetube/jam/internal/repository/jam"
)

// EndThreshold is the fraction of a song after which it counts as played.
const EndThreshold = 0.99

const historySeedCount = 5

type selection struct {
	song repository.Song
	// queuedSongId is set when the song comes from the jam queue.
	queuedSongId string
	// fromDevice is set when the song is already next in the device queue.
	fromDevice bool
}

// SetPosition records the host's reported playback position and advances
// the jam once the song is over.
func (s service) SetPosition(ctx context.Context, id Identity, position float64) (Changed, error) {
	if position < 0 || position > 1 {
		return Changed{}, ErrInvalidRequest
	}

	if position >= EndThreshold {
		ended, err := s.songEnded(ctx, id.JamId)
		if err != nil {
			return Changed{}, err
		}

		if !ended {
			s.logger.InfoContext(ctx, "ignored late end of song report", "jam_id", id.JamId, "position", position)
			return Changed{}, nil
		}

		return s.Advance(ctx, id.JamId)
	}

	if err := s.repo.UpdatePosition(ctx, id.JamId, position); err != nil {
		return Changed{}, storeError(err)
	}

	return Changed{Position: true}, nil
}

// songEnded tells the end of the current song apart from a late report about
// the song before it. The device decides when it plays the current track;
// otherwise a current song with no recorded progress has only just started.
func (s service) songEnded(ctx context.Context, jamId string) (bool, error) {
	j, err := s.repo.GetJam(ctx, jamId)
	if err != nil {
		return false, storeError(err)
	}

	current, err := s.repo.GetCurrentSong(ctx, jamId)
	if errors.Is(err, repository.ErrCurrentSongNotFound) {
		return true, nil
	}
	if err != nil {
		return false, storeError(err)
	}

	playback, err := s.provider.CurrentlyPlaying(ctx, j.HostId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get playback", "error", err)
	} else if playback != nil && playback.Item != nil && playback.Item.Id == current.TrackId && playback.Item.DurationMs > 0 {
		return float64(playback.ProgressMs)/float64(playback.Item.DurationMs) >= EndThreshold, nil
	}

	return j.Position > 0, nil
}

func (s service) NextSong(ctx context.Context, id Identity) (Changed, error) {
	return s.Advance(ctx, id.JamId)
}

// Advance picks the next song, makes it the current one, resets all votes
// and tells the device to play it. The returned Changed is non-empty whenever
// the store was updated, even if the device call failed afterwards.
func (s service) Advance(ctx context.Context, jamId string) (Changed, error) {
	j, err := s.repo.GetJam(ctx, jamId)
	if err != nil {
		return Changed{}, storeError(err)
	}

	next, err := s.selectNext(ctx, jamId, j.HostId)
	if err != nil {
		return Changed{}, err
	}

	if err := s.repo.SetCurrentSong(ctx, &repository.SetCurrentSongParams{
		Song:         next.song,
		QueuedSongId: next.queuedSongId,
		JamId:        jamId,
	}); err != nil {
		return Changed{}, storeError(err)
	}

	changed := Changed{Position: true, CurrentSong: true, Votes: true}
	if next.queuedSongId != "" {
		changed.Songs = true
	}

	s.logger.InfoContext(ctx, "advanced", "jam_id", jamId, "track_id", next.song.TrackId, "from_queue", next.queuedSongId != "")

	if !next.fromDevice {
		if err := s.provider.AddToQueue(ctx, j.HostId, next.song.TrackId); err != nil {
			s.logger.InfoContext(ctx, "failed to enqueue next song", "error", err)
			return changed, providerError(err)
		}
	}

	if err := s.provider.SkipToNext(ctx, j.HostId); err != nil {
		s.logger.InfoContext(ctx, "failed to skip to next song", "error", err)
		return changed, providerError(err)
	}

	return changed, nil
}

// selectNext runs the selection chain. Each stage is tried only when the
// previous one yields nothing; the last one always yields.
func (s service) selectNext(ctx context.Context, jamId, hostId string) (selection, error) {
	next, ok, err := s.selectMostVoted(ctx, jamId)
	if err != nil {
		return selection{}, err
	}
	if ok {
		return next, nil
	}

	if next, ok := s.selectFromDeviceQueue(ctx, jamId, hostId); ok {
		return next, nil
	}

	if next, ok := s.selectRecommendation(ctx, hostId); ok {
		return next, nil
	}

	return s.selectDefault(ctx, hostId), nil
}

// selectMostVoted picks uniformly among the queued songs with the most votes.
func (s service) selectMostVoted(ctx context.Context, jamId string) (selection, bool, error) {
	counts, err := s.repo.GetVoteCounts(ctx, jamId)
	if err != nil {
		return selection{}, false, storeError(err)
	}

	if len(counts) == 0 {
		return selection{}, false, nil
	}

	best := -1
	var candidates []string
	for songId, count := range counts {
		switch {
		case count > best:
			best = count
			candidates = []string{songId}
		case count == best:
			candidates = append(candidates, songId)
		}
	}

	songId := candidates[rand.IntN(len(candidates))]
	song, err := s.repo.GetSong(ctx, jamId, songId)
	if err != nil {
		return selection{}, false, storeError(err)
	}

	return selection{song: song, queuedSongId: songId}, true, nil
}

func (s service) selectFromDeviceQueue(ctx context.Context, jamId, hostId string) (selection, bool) {
	tracks, err := s.provider.Queue(ctx, hostId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get device queue", "error", err)
		return selection{}, false
	}

	if len(tracks) == 0 {
		return selection{}, false
	}

	current, err := s.repo.GetCurrentSong(ctx, jamId)
	if err == nil && current.TrackId == tracks[0].Id {
		return selection{}, false
	}

	return selection{song: songFromTrack(tracks[0]), fromDevice: true}, true
}

func (s service) selectRecommendation(ctx context.Context, hostId string) (selection, bool) {
	recent, err := s.provider.RecentlyPlayed(ctx, hostId, historySeedCount)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get recently played", "error", err)
		return selection{}, false
	}

	if len(recent) == 0 {
		return selection{}, false
	}

	seeds := make([]string, 0, len(recent))
	for _, track := range recent {
		seeds = append(seeds, track.Id)
	}

	tracks, err := s.provider.Recommendations(ctx, hostId, seeds, 1)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get recommendations", "error", err)
		return selection{}, false
	}

	if len(tracks) == 0 {
		return selection{}, false
	}

	return selection{song: songFromTrack(tracks[0])}, true
}

// selectDefault never fails. Without metadata the track still plays.
func (s service) selectDefault(ctx context.Context, hostId string) selection {
	track, err := s.provider.GetTrack(ctx, hostId, s.defaultTrackId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get default track", "error", err)
		return selection{song: repository.Song{TrackId: s.defaultTrackId}}
	}

	return selection{song: songFromTrack(track)}
}
