package server

import (
	"net/http"
	"strings"
)

type matchKind int

const (
	matchExact    matchKind = iota // request path equals pattern
	matchContains                  // request URI contains pattern
)

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

type route struct {
	method  string
	pattern string
	match   matchKind
	name    string
	handler handlerFunc
}

func (rt route) matches(r *http.Request) bool {
	switch rt.match {
	case matchExact:
		return r.URL.Path == rt.pattern
	case matchContains:
		return strings.Contains(requestURI(r), rt.pattern)
	}
	return false
}

// buildRoutes returns the routing table. Order matters: the first matching
// entry wins, so the listing substrings are checked before the form pages
// exactly as the navigation links expect.
func (s *AlbumServer) buildRoutes() []route {
	routes := []route{
		{http.MethodGet, "/", matchExact, "login", s.handleLoginPage},
		{http.MethodGet, "/albums", matchContains, "albums", s.handleAlbums},
		{http.MethodGet, "/artists", matchContains, "artists", s.handleArtists},
		{http.MethodGet, "/labels", matchContains, "labels", s.handleLabels},
		{http.MethodGet, "/tracks", matchContains, "tracks", s.handleTracks},
		{http.MethodGet, "/add_album", matchContains, "add_album_form", s.handleAddAlbumForm},
		{http.MethodGet, "/add_artist", matchContains, "add_artist_form", s.handleAddArtistForm},
		{http.MethodGet, "/add_track", matchContains, "add_track_form", s.handleAddTrackForm},
		{http.MethodGet, "/add_label", matchContains, "add_label_form", s.handleAddLabelForm},
		{http.MethodGet, "/health", matchExact, "health", s.handleHealthCheck},

		{http.MethodPost, "/", matchExact, "login_submit", s.handleLoginSubmit},
		{http.MethodPost, "/add_album", matchExact, "add_album", s.handleAddAlbum},
		{http.MethodPost, "/add_track", matchExact, "add_track", s.handleAddTrack},
		{http.MethodPost, "/add_artist", matchExact, "add_artist", s.handleAddArtist},
		{http.MethodPost, "/add_label", matchExact, "add_label", s.handleAddLabel},
	}

	if s.metrics != nil {
		routes = append(routes, route{http.MethodGet, "/metrics", matchExact, "metrics", s.handleMetrics})
	}

	return routes
}

// lookup returns the first route matching r. When nothing matches for the
// request method, methodKnown reports whether any route uses that method.
func (s *AlbumServer) lookup(r *http.Request) (rt *route, methodKnown bool) {
	for i := range s.routes {
		if s.routes[i].method != r.Method {
			continue
		}
		methodKnown = true
		if s.routes[i].matches(r) {
			return &s.routes[i], true
		}
	}
	return nil, methodKnown
}

// route dispatches a request through the routing table
func (s *AlbumServer) route(w http.ResponseWriter, r *http.Request) {
	rt, methodKnown := s.lookup(r)

	if rw, ok := w.(*responseWriter); ok {
		switch {
		case rt != nil:
			rw.route = rt.name
		case methodKnown:
			rw.route = "not_found"
		default:
			rw.route = "method_not_allowed"
		}
	}

	if rt == nil {
		if methodKnown {
			http.NotFound(w, r)
		} else {
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
		return
	}

	if err := rt.handler(w, r); err != nil {
		s.respondWithError(w, r, err)
	}
}

// requestURI returns the path and query the client sent
func requestURI(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}
