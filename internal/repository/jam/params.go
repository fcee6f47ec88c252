package jam

type CreateJamParams struct {
	JamId        string
	HostId       string
	AccountId    string
	Name         string
	MaxSongCount int
	AccessToken  string
	RefreshToken string
	TokenExpiry  int64
}

type CreateJamResult struct {
	JamId  string
	HostId string
}

type AddUserParams struct {
	UserId string
	Name   string
	JamId  string
}

type RemoveUserParams struct {
	UserId string
	JamId  string
}

type AddSongParams struct {
	Song         Song
	MaxSongCount int
	JamId        string
}

type RemoveSongParams struct {
	SongId string
	JamId  string
}

type VoteParams struct {
	SongId string
	UserId string
	JamId  string
}

type SetCurrentSongParams struct {
	Song Song
	// QueuedSongId is set when Song was taken from the jam queue.
	QueuedSongId string
	JamId        string
}
