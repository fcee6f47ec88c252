package jam

type Jam struct {
	Name         string  `redis:"name"`
	MaxSongCount int     `redis:"max_song_count"`
	HostId       string  `redis:"host_id"`
	Position     float64 `redis:"position"`
}

type Host struct {
	JamId        string `redis:"jam_id"`
	AccountId    string `redis:"account_id"`
	AccessToken  string `redis:"access_token"`
	RefreshToken string `redis:"refresh_token"`
	TokenExpiry  int64  `redis:"token_expiry"`
}

type User struct {
	JamId string `redis:"jam_id"`
	Name  string `redis:"name"`
}

type Song struct {
	Id         string `redis:"-"`
	TrackId    string `redis:"track_id"`
	Title      string `redis:"title"`
	Artists    string `redis:"artists"`
	Album      string `redis:"album"`
	DurationMs int    `redis:"duration_ms"`
	ImageURL   string `redis:"image_url"`
	UserId     string `redis:"user_id"`
}

// Subscription delivers raw payloads published on a jam channel.
type Subscription interface {
	Messages() <-chan string
	Close() error
}
