package jam

// Changed names the aggregates a mutation touched. It never carries values.
type Changed struct {
	Users       bool `json:"users"`
	Songs       bool `json:"songs"`
	Votes       bool `json:"votes"`
	Ended       bool `json:"ended"`
	Position    bool `json:"position"`
	CurrentSong bool `json:"current_song"`
}

// AllChanged flags every aggregate a client can re-fetch. Ended is terminal
// and is never part of a resync.
func AllChanged() Changed {
	return Changed{
		Users:       true,
		Songs:       true,
		Votes:       true,
		Position:    true,
		CurrentSong: true,
	}
}

func (c Changed) Merge(o Changed) Changed {
	return Changed{
		Users:       c.Users || o.Users,
		Songs:       c.Songs || o.Songs,
		Votes:       c.Votes || o.Votes,
		Ended:       c.Ended || o.Ended,
		Position:    c.Position || o.Position,
		CurrentSong: c.CurrentSong || o.CurrentSong,
	}
}

func (c Changed) Any() bool {
	return c != Changed{}
}
