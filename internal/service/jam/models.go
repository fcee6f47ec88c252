package jam

type User struct {
	Id   string `cbor:"id"`
	Name string `cbor:"name"`
}

// Song is a track as a client sees it. Id is set only for queued songs and
// UserId only when the viewer may know who queued it.
type Song struct {
	Id         *string `cbor:"id,omitempty"`
	TrackId    string  `cbor:"track_id"`
	Title      string  `cbor:"title"`
	Artists    string  `cbor:"artists"`
	Album      string  `cbor:"album"`
	DurationMs int     `cbor:"duration_ms"`
	ImageURL   string  `cbor:"image_url"`
	UserId     *string `cbor:"user_id,omitempty"`
}

type Vote struct {
	Count     int   `cbor:"count"`
	HaveVoted *bool `cbor:"have_voted,omitempty"`
}

type Search struct {
	Songs    []Song `cbor:"songs"`
	SearchId string `cbor:"search_id"`
}

// Update is a partial snapshot. A nil field means "unchanged", never "empty".
type Update struct {
	Users       *[]User          `cbor:"users,omitempty"`
	Songs       *[]Song          `cbor:"songs,omitempty"`
	Votes       *map[string]Vote `cbor:"votes,omitempty"`
	Search      *Search          `cbor:"search,omitempty"`
	Ended       bool             `cbor:"ended,omitempty"`
	Position    *float64         `cbor:"position,omitempty"`
	CurrentSong *Song            `cbor:"current_song,omitempty"`
	Errors      []string         `cbor:"errors"`
}

func ErrorUpdate(errs ...error) Update {
	u := Update{Errors: []string{}}
	for _, err := range errs {
		if err != nil {
			u.Errors = append(u.Errors, err.Error())
		}
	}

	return u
}

// CanMerge reports whether o can be folded into u without losing anything.
// Search results answer distinct search ids, so two of them never merge.
func (u Update) CanMerge(o Update) bool {
	return u.Search == nil || o.Search == nil
}

// Merge lays o over u. Fields o leaves unset keep u's value.
func (u Update) Merge(o Update) Update {
	if o.Users != nil {
		u.Users = o.Users
	}
	if o.Songs != nil {
		u.Songs = o.Songs
	}
	if o.Votes != nil {
		u.Votes = o.Votes
	}
	if o.Search != nil {
		u.Search = o.Search
	}
	if o.Position != nil {
		u.Position = o.Position
	}
	if o.CurrentSong != nil {
		u.CurrentSong = o.CurrentSong
	}
	u.Ended = u.Ended || o.Ended

	errs := make([]string, 0, len(u.Errors)+len(o.Errors))
	errs = append(errs, u.Errors...)
	u.Errors = append(errs, o.Errors...)

	return u
}

// IsEmpty reports whether the update carries nothing worth sending.
func (u Update) IsEmpty() bool {
	return u.Users == nil &&
		u.Songs == nil &&
		u.Votes == nil &&
		u.Search == nil &&
		!u.Ended &&
		u.Position == nil &&
		u.CurrentSong == nil &&
		len(u.Errors) == 0
}
