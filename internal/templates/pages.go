package templates

// Page template file names
const (
	LoginPage     = "fake_login.html"
	AlbumsPage    = "albums.html"
	ArtistsPage   = "artists.html"
	LabelsPage    = "labels.html"
	TracksPage    = "tracks.html"
	AddAlbumPage  = "add_album_form.html"
	AddTrackPage  = "add_track_form.html"
	AddArtistPage = "add_artist_form.html"
	AddLabelPage  = "add_label_form.html"
)

// Placeholder keys used by the page templates
const (
	KeyLinks         = "links"
	KeyRecords       = "db_records"
	KeyArtistOptions = "artist_records"
	KeyLabelOptions  = "record_labels"
	KeyAlbumOptions  = "album_records"
	KeyLoginMessage  = "login_message"
)

// Pages lists every template the server renders
var Pages = []string{
	LoginPage,
	AlbumsPage,
	ArtistsPage,
	LabelsPage,
	TracksPage,
	AddAlbumPage,
	AddTrackPage,
	AddArtistPage,
	AddLabelPage,
}
