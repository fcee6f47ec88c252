package jam

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
	repository "github.com/sharetube/jam/internal/repository/jam"
)

var (
	ErrStore          = errors.New("store failure")
	ErrProvider       = errors.New("external service failure")
	ErrDecode         = errors.New("decode failure")
	ErrEncode         = errors.New("encode failure")
	ErrForbidden      = errors.New("forbidden")
	ErrFileSystem     = errors.New("file system failure")
	ErrInvalidRequest = errors.New("invalid request")
	ErrAlreadyExists  = errors.New("already exists")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrDuplicate      = errors.New("duplicate entity")
	ErrNotFound       = errors.New("not found")
)

var (
	// ErrPermissionDenied is a capability violation. The connection that
	// caused it is closed.
	ErrPermissionDenied = fmt.Errorf("%w: permission denied", ErrForbidden)
	ErrAlreadyVoted     = fmt.Errorf("%w: already voted", ErrForbidden)
	ErrNotVoted         = fmt.Errorf("%w: not voted", ErrForbidden)
)

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProvider, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

func providerError(err error) error {
	if err == nil {
		return nil
	}

	return &ProviderError{Provider: "spotify", Err: err}
}

// storeError classifies a repository error. Missing rows become ErrNotFound,
// everything else ErrStore with a stack trace attached.
func storeError(err error) error {
	if err == nil {
		return nil
	}

	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return xerrors.WithStackTrace(fmt.Errorf("%w: %w", ErrStore, err), 1)
}
