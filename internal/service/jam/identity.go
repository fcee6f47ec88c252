package jam

import (
	"context"
	"errors"

	repository "github.com/sharetube/jam/internal/repository/jam"
)

type Role int

const (
	RoleHost Role = iota + 1
	RoleUser
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleUser:
		return "user"
	}

	return "unknown"
}

type Identity struct {
	Role  Role
	Id    string
	JamId string
}

func (i Identity) IsHost() bool {
	return i.Role == RoleHost
}

// ResolveIdentity looks the session id up among hosts, then users.
func (s service) ResolveIdentity(ctx context.Context, id string) (Identity, error) {
	host, err := s.repo.GetHost(ctx, id)
	if err == nil {
		return Identity{Role: RoleHost, Id: id, JamId: host.JamId}, nil
	}
	if !errors.Is(err, repository.ErrHostNotFound) {
		return Identity{}, storeError(err)
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return Identity{}, storeError(err)
	}

	return Identity{Role: RoleUser, Id: id, JamId: user.JamId}, nil
}
