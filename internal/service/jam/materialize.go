package jam

import (
	"context"
	"errors"
	"sync"

	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sourcegraph/conc"
)

// Materialize re-fetches the aggregates flagged in changed, shaped for the
// viewer. Fetches run concurrently and a failed one only adds an error.
func (s service) Materialize(ctx context.Context, changed Changed, viewer Identity) Update {
	update := Update{Errors: []string{}}
	if changed.Ended {
		update.Ended = true
		return update
	}

	var (
		wg conc.WaitGroup
		mu sync.Mutex
	)
	fail := func(err error) {
		s.logger.InfoContext(ctx, "failed to materialize", "error", err)
		mu.Lock()
		update.Errors = append(update.Errors, err.Error())
		mu.Unlock()
	}

	if changed.Users {
		wg.Go(func() {
			users, err := s.getUsers(ctx, viewer.JamId)
			if err != nil {
				fail(err)
				return
			}
			update.Users = &users
		})
	}

	if changed.Songs {
		wg.Go(func() {
			songs, err := s.getSongs(ctx, viewer)
			if err != nil {
				fail(err)
				return
			}
			update.Songs = &songs
		})
	}

	if changed.Votes {
		wg.Go(func() {
			votes, err := s.getVotes(ctx, viewer)
			if err != nil {
				fail(err)
				return
			}
			update.Votes = &votes
		})
	}

	if changed.Position {
		wg.Go(func() {
			j, err := s.repo.GetJam(ctx, viewer.JamId)
			if err != nil {
				fail(storeError(err))
				return
			}
			update.Position = &j.Position
		})
	}

	if changed.CurrentSong {
		wg.Go(func() {
			current, err := s.repo.GetCurrentSong(ctx, viewer.JamId)
			if errors.Is(err, repository.ErrCurrentSongNotFound) {
				return
			}
			if err != nil {
				fail(storeError(err))
				return
			}
			song := viewSong(current, viewer)
			update.CurrentSong = &song
		})
	}

	wg.Wait()

	return update
}

func (s service) getUsers(ctx context.Context, jamId string) ([]User, error) {
	userIds, err := s.repo.GetUserIds(ctx, jamId)
	if err != nil {
		return nil, storeError(err)
	}

	users := make([]User, 0, len(userIds))
	for _, userId := range userIds {
		user, err := s.repo.GetUser(ctx, userId)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, storeError(err)
		}

		users = append(users, User{Id: userId, Name: user.Name})
	}

	return users, nil
}

func (s service) getSongs(ctx context.Context, viewer Identity) ([]Song, error) {
	stored, err := s.repo.GetSongs(ctx, viewer.JamId)
	if err != nil {
		return nil, storeError(err)
	}

	songs := make([]Song, 0, len(stored))
	for _, song := range stored {
		songs = append(songs, viewSong(song, viewer))
	}

	return songs, nil
}

// getVotes returns the vote count per queued song. Users additionally learn
// which songs they voted for.
func (s service) getVotes(ctx context.Context, viewer Identity) (map[string]Vote, error) {
	counts, err := s.repo.GetVoteCounts(ctx, viewer.JamId)
	if err != nil {
		return nil, storeError(err)
	}

	votes := make(map[string]Vote, len(counts))
	if viewer.IsHost() {
		for songId, count := range counts {
			votes[songId] = Vote{Count: count}
		}
		return votes, nil
	}

	votedIds, err := s.repo.GetVotedSongIds(ctx, viewer.JamId, viewer.Id)
	if err != nil {
		return nil, storeError(err)
	}

	voted := make(map[string]bool, len(votedIds))
	for _, songId := range votedIds {
		voted[songId] = true
	}

	for songId, count := range counts {
		haveVoted := voted[songId]
		votes[songId] = Vote{Count: count, HaveVoted: &haveVoted}
	}

	return votes, nil
}
