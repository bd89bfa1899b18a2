package server

import (
	"html"
	"net/http"

	"albumserver/internal/templates"
)

// handleLoginPage serves the login form
func (s *AlbumServer) handleLoginPage(w http.ResponseWriter, r *http.Request) error {
	return s.renderLogin(w, "")
}

func (s *AlbumServer) renderLogin(w http.ResponseWriter, message string) error {
	return s.render(w, templates.LoginPage, navLinks(s.baseURL), map[string]string{
		templates.KeyLoginMessage: html.EscapeString(message),
	})
}

// handleLoginSubmit checks the submitted credentials. Success only redirects
// to the album listing; no session is created.
func (s *AlbumServer) handleLoginSubmit(w http.ResponseWriter, r *http.Request) error {
	fields, err := parseFormFields(r)
	if err != nil {
		return err
	}

	if err := s.gate.Check(fields["loginName"], fields["loginPassword"]); err != nil {
		return s.renderLogin(w, err.Error())
	}

	http.Redirect(w, r, "/albums", http.StatusSeeOther)
	return nil
}
