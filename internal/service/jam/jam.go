package jam

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	repository "github.com/sharetube/jam/internal/repository/jam"
)

const (
	jamIdLength      = 6
	createJamRetries = 5
)

type CreateJamParams struct {
	AccountId    string
	Name         string
	MaxSongCount int
	AccessToken  string
	RefreshToken string
	TokenExpiry  int64
}

type CreateJamResponse struct {
	JamId  string
	HostId string
}

// CreateJam is idempotent per provider account: an account that already hosts
// a jam gets that jam back.
func (s service) CreateJam(ctx context.Context, params *CreateJamParams) (CreateJamResponse, error) {
	maxSongCount := params.MaxSongCount
	if maxSongCount < 1 {
		maxSongCount = s.defaultMaxSongCount
	}

	for range createJamRetries {
		res, err := s.repo.CreateJam(ctx, &repository.CreateJamParams{
			JamId:        s.generator.GenerateRandomString(jamIdLength),
			HostId:       uuid.NewString(),
			AccountId:    params.AccountId,
			Name:         params.Name,
			MaxSongCount: maxSongCount,
			AccessToken:  params.AccessToken,
			RefreshToken: params.RefreshToken,
			TokenExpiry:  params.TokenExpiry,
		})
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "jam created", "jam_id", res.JamId)
			return CreateJamResponse{JamId: res.JamId, HostId: res.HostId}, nil
		case errors.Is(err, repository.ErrJamAlreadyExists):
			s.logger.InfoContext(ctx, "account already hosts a jam", "jam_id", res.JamId)
			return CreateJamResponse{JamId: res.JamId, HostId: res.HostId}, nil
		case errors.Is(err, repository.ErrJamIdTaken):
			continue
		default:
			s.logger.InfoContext(ctx, "failed to create jam", "error", err)
			return CreateJamResponse{}, storeError(err)
		}
	}

	return CreateJamResponse{}, xerrors.WithStackTrace(fmt.Errorf("%w: no free jam id after %d attempts", ErrStore, createJamRetries), 0)
}

type JoinJamParams struct {
	JamId string
	Name  string
}

type JoinJamResponse struct {
	UserId string
}

func (s service) JoinJam(ctx context.Context, params *JoinJamParams) (JoinJamResponse, error) {
	userId := uuid.NewString()
	if err := s.repo.AddUser(ctx, &repository.AddUserParams{
		UserId: userId,
		Name:   params.Name,
		JamId:  params.JamId,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to add user", "error", err)
		return JoinJamResponse{}, storeError(err)
	}

	if err := s.Publish(ctx, params.JamId, Changed{Users: true}); err != nil {
		s.logger.InfoContext(ctx, "failed to publish user joined", "error", err)
	}

	return JoinJamResponse{UserId: userId}, nil
}

// DeleteJam ends the jam of the given host session. Every connected session
// is told through the bus.
func (s service) DeleteJam(ctx context.Context, hostId string) error {
	id, err := s.ResolveIdentity(ctx, hostId)
	if err != nil {
		return err
	}

	if !id.IsHost() {
		return ErrPermissionDenied
	}

	if err := s.repo.DeleteJam(ctx, id.JamId); err != nil {
		s.logger.InfoContext(ctx, "failed to delete jam", "error", err)
		return storeError(err)
	}

	if err := s.Publish(ctx, id.JamId, Changed{Ended: true}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "jam ended", "jam_id", id.JamId)
	return nil
}

func (s service) TransferPlayback(ctx context.Context, hostId, deviceId string) error {
	id, err := s.ResolveIdentity(ctx, hostId)
	if err != nil {
		return err
	}

	if !id.IsHost() {
		return ErrPermissionDenied
	}

	if err := s.provider.TransferPlayback(ctx, id.Id, deviceId); err != nil {
		s.logger.InfoContext(ctx, "failed to transfer playback", "error", err)
		return providerError(err)
	}

	return nil
}
