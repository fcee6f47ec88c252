package controller

import (
	"context"

	"github.com/sharetube/jam/internal/service/jam"
)

type EmptyInput struct{}

type SongInput struct {
	SongId string `cbor:"song_id" validate:"required,max=64"`
}

type KickUserInput struct {
	UserId string `cbor:"user_id" validate:"required,uuid"`
}

type SearchInput struct {
	Query    string `cbor:"query" validate:"required,max=128"`
	SearchId string `cbor:"search_id" validate:"max=64"`
}

type PositionInput struct {
	Percentage float64 `cbor:"percentage" validate:"gte=0,lte=1"`
}

// commit publishes what a mutation touched and hands its error back to the
// reader, which decides whether the connection survives it.
func (c controller) commit(ctx context.Context, changed jam.Changed, err error) error {
	if changed.Any() {
		identity := c.getIdentityFromCtx(ctx)
		if pubErr := c.jamService.Publish(ctx, identity.JamId, changed); pubErr != nil {
			c.logger.WarnContext(ctx, "failed to publish", "error", pubErr)
			if err == nil {
				err = pubErr
			}
		}
	}

	return err
}

func (c controller) handleAddSong(ctx context.Context, input SongInput) error {
	changed, err := c.jamService.AddSong(ctx, c.getIdentityFromCtx(ctx), input.SongId)
	return c.commit(ctx, changed, err)
}

func (c controller) handleRemoveSong(ctx context.Context, input SongInput) error {
	changed, err := c.jamService.RemoveSong(ctx, c.getIdentityFromCtx(ctx), input.SongId)
	return c.commit(ctx, changed, err)
}

func (c controller) handleAddVote(ctx context.Context, input SongInput) error {
	changed, err := c.jamService.AddVote(ctx, c.getIdentityFromCtx(ctx), input.SongId)
	return c.commit(ctx, changed, err)
}

func (c controller) handleRemoveVote(ctx context.Context, input SongInput) error {
	changed, err := c.jamService.RemoveVote(ctx, c.getIdentityFromCtx(ctx), input.SongId)
	return c.commit(ctx, changed, err)
}

func (c controller) handleKickUser(ctx context.Context, input KickUserInput) error {
	changed, err := c.jamService.KickUser(ctx, c.getIdentityFromCtx(ctx), input.UserId)
	return c.commit(ctx, changed, err)
}

func (c controller) handlePosition(ctx context.Context, input PositionInput) error {
	changed, err := c.jamService.SetPosition(ctx, c.getIdentityFromCtx(ctx), input.Percentage)
	return c.commit(ctx, changed, err)
}

func (c controller) handleNextSong(ctx context.Context, _ EmptyInput) error {
	changed, err := c.jamService.NextSong(ctx, c.getIdentityFromCtx(ctx))
	return c.commit(ctx, changed, err)
}

// handleSearch answers off the reader so a slow provider never holds up the
// mutations queued behind it.
func (c controller) handleSearch(ctx context.Context, input SearchInput) error {
	s := c.getSessionFromCtx(ctx)
	identity := c.getIdentityFromCtx(ctx)
	s.spawn(ctx, func(ctx context.Context) {
		search, err := c.jamService.Search(ctx, identity, input.Query, input.SearchId)
		if err != nil {
			s.send(ctx, jam.ErrorUpdate(err))
			return
		}

		update := jam.ErrorUpdate()
		update.Search = &search
		s.send(ctx, update)
	})

	return nil
}

// handleUpdate resends the full view to the requester only.
func (c controller) handleUpdate(ctx context.Context, _ EmptyInput) error {
	s := c.getSessionFromCtx(ctx)
	s.send(ctx, c.jamService.Materialize(ctx, jam.AllChanged(), c.getIdentityFromCtx(ctx)))
	return nil
}
