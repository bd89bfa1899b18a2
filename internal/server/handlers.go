package server

import (
	"io"
	"net/http"

	"albumserver/internal/templates"

	"github.com/sirupsen/logrus"
)

// writeHTML sends a rendered page
func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, page)
}

// render fills a template, always supplying the navigation bar
func (s *AlbumServer) render(w http.ResponseWriter, name, links string, values map[string]string) error {
	if values == nil {
		values = make(map[string]string, 1)
	}
	values[templates.KeyLinks] = links

	page, err := s.renderer.Render(name, values)
	if err != nil {
		return err
	}
	writeHTML(w, page)
	return nil
}

// handleAlbums lists every album
func (s *AlbumServer) handleAlbums(w http.ResponseWriter, r *http.Request) error {
	albums, err := s.catalog.ListAlbums()
	if err != nil {
		return err
	}
	return s.render(w, templates.AlbumsPage, navLinks(s.baseURL), map[string]string{
		templates.KeyRecords: albumRows(s.baseURL, albums),
	})
}

// handleArtists lists every artist
func (s *AlbumServer) handleArtists(w http.ResponseWriter, r *http.Request) error {
	artists, err := s.catalog.ListArtists()
	if err != nil {
		return err
	}
	return s.render(w, templates.ArtistsPage, navLinks(s.baseURL), map[string]string{
		templates.KeyRecords: artistRows(artists),
	})
}

// handleLabels lists every record label
func (s *AlbumServer) handleLabels(w http.ResponseWriter, r *http.Request) error {
	labels, err := s.catalog.ListLabels()
	if err != nil {
		return err
	}
	return s.render(w, templates.LabelsPage, navLinks(s.baseURL), map[string]string{
		templates.KeyRecords: labelRows(labels),
	})
}

// handleTracks lists the tracks of the album whose ID ends the request URI
func (s *AlbumServer) handleTracks(w http.ResponseWriter, r *http.Request) error {
	albumID, err := albumIDFromURI(requestURI(r))
	if err != nil {
		return err
	}

	tracks, err := s.catalog.ListTracks(albumID)
	if err != nil {
		return err
	}
	return s.render(w, templates.TracksPage, trackNavLinks(s.baseURL), map[string]string{
		templates.KeyRecords: trackRows(tracks),
	})
}

// handleAddAlbumForm serves the album form with artist and label menus
func (s *AlbumServer) handleAddAlbumForm(w http.ResponseWriter, r *http.Request) error {
	artists, err := s.catalog.ListArtists()
	if err != nil {
		return err
	}
	labels, err := s.catalog.ListLabels()
	if err != nil {
		return err
	}
	return s.render(w, templates.AddAlbumPage, navLinks(s.baseURL), map[string]string{
		templates.KeyArtistOptions: artistOptions(artists),
		templates.KeyLabelOptions:  labelOptions(labels),
	})
}

// handleAddTrackForm serves the track form with an album menu
func (s *AlbumServer) handleAddTrackForm(w http.ResponseWriter, r *http.Request) error {
	albums, err := s.catalog.ListAlbums()
	if err != nil {
		return err
	}
	return s.render(w, templates.AddTrackPage, navLinks(s.baseURL), map[string]string{
		templates.KeyAlbumOptions: albumOptions(albums),
	})
}

func (s *AlbumServer) handleAddArtistForm(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, templates.AddArtistPage, navLinks(s.baseURL), nil)
}

func (s *AlbumServer) handleAddLabelForm(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, templates.AddLabelPage, navLinks(s.baseURL), nil)
}

// handleAddAlbum stores a submitted album and shows the album listing
func (s *AlbumServer) handleAddAlbum(w http.ResponseWriter, r *http.Request) error {
	fields, err := parseFormFields(r)
	if err != nil {
		return err
	}

	id, err := s.catalog.AddAlbum(fields)
	s.metrics.ObserveMutation("add_album", mutationResult(true, err))
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"album_id": id, "title": fields["album_title"]}).Debug("Album submitted")
	return s.handleAlbums(w, r)
}

// handleAddTrack stores a submitted track and shows the track form again so
// several tracks can be entered in a row
func (s *AlbumServer) handleAddTrack(w http.ResponseWriter, r *http.Request) error {
	fields, err := parseFormFields(r)
	if err != nil {
		return err
	}

	id, err := s.catalog.AddTrack(fields)
	s.metrics.ObserveMutation("add_track", mutationResult(true, err))
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"track_id": id, "title": fields["track_title"]}).Debug("Track submitted")
	return s.handleAddTrackForm(w, r)
}

// handleAddArtist stores a submitted artist and shows the artist listing
func (s *AlbumServer) handleAddArtist(w http.ResponseWriter, r *http.Request) error {
	fields, err := parseFormFields(r)
	if err != nil {
		return err
	}

	added, err := s.catalog.AddArtist(fields)
	s.metrics.ObserveMutation("add_artist", mutationResult(added, err))
	if err != nil {
		return err
	}
	return s.handleArtists(w, r)
}

// handleAddLabel stores a submitted record label and shows the label listing
func (s *AlbumServer) handleAddLabel(w http.ResponseWriter, r *http.Request) error {
	fields, err := parseFormFields(r)
	if err != nil {
		return err
	}

	added, err := s.catalog.AddLabel(fields)
	s.metrics.ObserveMutation("add_label", mutationResult(added, err))
	if err != nil {
		return err
	}
	return s.handleLabels(w, r)
}

// handleMetrics exposes the Prometheus registry
func (s *AlbumServer) handleMetrics(w http.ResponseWriter, r *http.Request) error {
	s.metrics.Handler().ServeHTTP(w, r)
	return nil
}

func mutationResult(added bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case !added:
		return "duplicate"
	default:
		return "added"
	}
}
