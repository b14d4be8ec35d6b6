package opensubtitles

// MediaKind is the MovieKind reported by OpenSubtitles.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindEpisode MediaKind = "episode"
)

// MediaRecord describes the movie or episode matched by one fingerprint.
// A record with Matched false carries only MovieHash: the service knows
// nothing about that fingerprint.
type MediaRecord struct {
	MovieHash string    `json:"movie_hash"`
	Matched   bool      `json:"matched"`
	IMDbID    string    `json:"imdb_id,omitempty"` // always "tt" followed by at least 7 digits
	Kind      MediaKind `json:"kind,omitempty"`

	// Movies
	MovieName string `json:"movie_name,omitempty"`
	MovieYear string `json:"movie_year,omitempty"`

	// Episodes
	SeriesTitle   string `json:"serie_title,omitempty"`
	EpisodeTitle  string `json:"episode_title,omitempty"`
	SeasonNumber  *int   `json:"season_number,omitempty"`
	EpisodeNumber *int   `json:"episode_number,omitempty"`
}

// InsertHashRecord is one entry sent to InsertMovieHash.
type InsertHashRecord struct {
	IMDbID        string  // with or without the "tt" prefix; required
	MovieHash     string  // 16 hex digits
	MovieByteSize int64   // size of the video in bytes
	MovieTimeMS   int64   // optional
	MovieFPS      float64 // optional
	MovieFilename string  // optional
}

// InsertAck is the data returned by InsertMovieHash.
type InsertAck struct {
	Accepted   []string    `json:"accepted_moviehashes,omitempty"`
	NewIMDbIDs []string    `json:"new_imdbs,omitempty"`
	Data       interface{} `json:"data,omitempty"` // raw data section
}
