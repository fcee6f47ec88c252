package jam

import "errors"

var (
	ErrJamNotFound         = errors.New("jam not found")
	ErrJamAlreadyExists    = errors.New("host already owns a jam")
	ErrJamIdTaken          = errors.New("jam id taken")
	ErrHostNotFound        = errors.New("host not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSongNotFound        = errors.New("song not found")
	ErrSongAlreadyExists   = errors.New("song already in jam")
	ErrSongLimitReached    = errors.New("song limit reached")
	ErrVoteAlreadyExists   = errors.New("vote already exists")
	ErrVoteNotFound        = errors.New("vote not found")
	ErrCurrentSongNotFound = errors.New("current song not found")
)

// IsNotFound reports whether err is one of the "row not found" errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJamNotFound) ||
		errors.Is(err, ErrHostNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrSongNotFound) ||
		errors.Is(err, ErrCurrentSongNotFound)
}
