package jam

import (
	repository "github.com/sharetube/jam/internal/repository/jam"
	"github.com/sharetube/jam/pkg/spotify"
)

func songFromTrack(track spotify.Track) repository.Song {
	return repository.Song{
		TrackId:    track.Id,
		Title:      track.Name,
		Artists:    track.ArtistNames(),
		Album:      track.Album.Name,
		DurationMs: track.DurationMs,
		ImageURL:   track.ImageURL(),
	}
}

// viewSong shapes a stored song for the viewer. A host sees who queued every
// song, a user only sees it on their own songs.
func viewSong(song repository.Song, viewer Identity) Song {
	s := Song{
		TrackId:    song.TrackId,
		Title:      song.Title,
		Artists:    song.Artists,
		Album:      song.Album,
		DurationMs: song.DurationMs,
		ImageURL:   song.ImageURL,
	}

	if song.Id != "" {
		id := song.Id
		s.Id = &id
	}

	if song.UserId != "" && (viewer.IsHost() || song.UserId == viewer.Id) {
		userId := song.UserId
		s.UserId = &userId
	}

	return s
}

func searchSong(track spotify.Track) Song {
	return viewSong(songFromTrack(track), Identity{})
}
