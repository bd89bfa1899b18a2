package models

// Artist represents a row of the Artists table
type Artist struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// RecordLabel represents a row of the RecordLabels table
type RecordLabel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AlbumListing is an album joined with its artist and record label names
type AlbumListing struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	ArtistName string  `json:"artistName"`
	Year       int     `json:"year"`
	LabelName  string  `json:"labelName"`
	Price      float64 `json:"price"`
}

// Track represents a single track of an album
type Track struct {
	AlbumID int    `json:"albumId"`
	Number  int    `json:"trackNumber"`
	Title   string `json:"title"`
	Length  string `json:"length"` // free-form, e.g. "3.5" or "3:50"
}

// ScannedTrack holds the metadata extracted from an audio file before it
// is written to the catalog
type ScannedTrack struct {
	FilePath    string `json:"-"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Label       string `json:"label"`
	Year        int    `json:"year"`
	TrackNumber int    `json:"trackNumber"`
	Duration    int    `json:"duration"` // in seconds
}
