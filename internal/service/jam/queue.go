package jam

import (
	"context"
	"errors"

	"github.com/google/uuid"
	repository "github.com/sharetube/jam/internal/repository/jam"
)

// AddSong queues a track for the user. Quota and duplicates are checked
// before the provider is asked for the track metadata.
func (s service) AddSong(ctx context.Context, id Identity, trackId string) (Changed, error) {
	j, err := s.repo.GetJam(ctx, id.JamId)
	if err != nil {
		return Changed{}, storeError(err)
	}

	count, err := s.repo.GetUserSongCount(ctx, id.JamId, id.Id)
	if err != nil {
		return Changed{}, storeError(err)
	}

	if count >= j.MaxSongCount {
		return Changed{}, ErrQuotaExceeded
	}

	inJam, err := s.repo.IsTrackInJam(ctx, id.JamId, trackId)
	if err != nil {
		return Changed{}, storeError(err)
	}

	if inJam {
		return Changed{}, ErrDuplicate
	}

	track, err := s.provider.GetTrack(ctx, j.HostId, trackId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get track", "error", err)
		return Changed{}, providerError(err)
	}

	song := songFromTrack(track)
	song.Id = uuid.NewString()
	song.UserId = id.Id
	err = s.repo.AddSong(ctx, &repository.AddSongParams{
		Song:         song,
		MaxSongCount: j.MaxSongCount,
		JamId:        id.JamId,
	})
	switch {
	case errors.Is(err, repository.ErrSongLimitReached):
		return Changed{}, ErrQuotaExceeded
	case errors.Is(err, repository.ErrSongAlreadyExists):
		return Changed{}, ErrDuplicate
	case err != nil:
		return Changed{}, storeError(err)
	}

	return Changed{Songs: true, Votes: true}, nil
}

// RemoveSong lets the host remove any song and a user only their own.
func (s service) RemoveSong(ctx context.Context, id Identity, songId string) (Changed, error) {
	if !id.IsHost() {
		song, err := s.repo.GetSong(ctx, id.JamId, songId)
		if err != nil {
			return Changed{}, storeError(err)
		}

		if song.UserId != id.Id {
			return Changed{}, ErrPermissionDenied
		}
	}

	if _, err := s.repo.RemoveSong(ctx, &repository.RemoveSongParams{
		SongId: songId,
		JamId:  id.JamId,
	}); err != nil {
		return Changed{}, storeError(err)
	}

	return Changed{Songs: true, Votes: true}, nil
}

func (s service) AddVote(ctx context.Context, id Identity, songId string) (Changed, error) {
	err := s.repo.AddVote(ctx, &repository.VoteParams{
		SongId: songId,
		UserId: id.Id,
		JamId:  id.JamId,
	})
	if errors.Is(err, repository.ErrVoteAlreadyExists) {
		return Changed{}, ErrAlreadyVoted
	}
	if err != nil {
		return Changed{}, storeError(err)
	}

	return Changed{Votes: true}, nil
}

func (s service) RemoveVote(ctx context.Context, id Identity, songId string) (Changed, error) {
	err := s.repo.RemoveVote(ctx, &repository.VoteParams{
		SongId: songId,
		UserId: id.Id,
		JamId:  id.JamId,
	})
	if errors.Is(err, repository.ErrVoteNotFound) {
		return Changed{}, ErrNotVoted
	}
	if err != nil {
		return Changed{}, storeError(err)
	}

	return Changed{Votes: true}, nil
}

// KickUser removes a user of the host's jam with everything they queued and
// every vote they cast.
func (s service) KickUser(ctx context.Context, id Identity, userId string) (Changed, error) {
	user, err := s.repo.GetUser(ctx, userId)
	if err != nil {
		return Changed{}, storeError(err)
	}

	if user.JamId != id.JamId {
		return Changed{}, ErrNotFound
	}

	if err := s.repo.RemoveUser(ctx, &repository.RemoveUserParams{
		UserId: userId,
		JamId:  id.JamId,
	}); err != nil {
		return Changed{}, storeError(err)
	}

	s.logger.InfoContext(ctx, "user kicked", "user_id", userId)
	return Changed{Users: true, Songs: true, Votes: true}, nil
}

// Search looks tracks up with the jam host's provider account. Results are
// not queued and carry no id.
func (s service) Search(ctx context.Context, id Identity, query, searchId string) (Search, error) {
	j, err := s.repo.GetJam(ctx, id.JamId)
	if err != nil {
		return Search{}, storeError(err)
	}

	tracks, err := s.provider.Search(ctx, j.HostId, query, s.searchLimit)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to search", "error", err)
		return Search{}, providerError(err)
	}

	songs := make([]Song, 0, len(tracks))
	for _, track := range tracks {
		songs = append(songs, searchSong(track))
	}

	return Search{Songs: songs, SearchId: searchId}, nil
}
