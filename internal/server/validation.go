package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"albumserver/internal/database"
	"albumserver/internal/templates"

	"github.com/sirupsen/logrus"
)

// maxFormMemory bounds the in-memory part of a multipart form body
const maxFormMemory = 1 << 20

var trailingDigits = regexp.MustCompile(`\d+$`)

// RoutingError reports a request path the router cannot act on, such as a
// track listing request without an album ID
type RoutingError struct {
	Path    string
	Message string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("cannot route %s: %s", e.Path, e.Message)
}

// albumIDFromURI extracts the trailing integer of a /tracks?ID=<n> request
func albumIDFromURI(uri string) (int, error) {
	digits := trailingDigits.FindString(uri)
	if digits == "" {
		return 0, &RoutingError{Path: uri, Message: "no album ID at end of path"}
	}

	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &RoutingError{Path: uri, Message: fmt.Sprintf("album ID %s out of range", digits)}
	}
	return id, nil
}

// parseFormFields reads a multipart or URL-encoded form body into a field map
func parseFormFields(r *http.Request) (database.Fields, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("failed to parse form body: %w", err)
	}
	return database.FieldsFromForm(r.PostForm), nil
}

// respondWithError sends a 500 with the error text as a plain-text body
func (s *AlbumServer) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"uri":    requestURI(r),
	}).WithError(err)

	var (
		storeErr      *database.StoreError
		validationErr *database.ValidationError
		routingErr    *RoutingError
		notFoundErr   *templates.TemplateNotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		logEntry.WithField("field", validationErr.Field).Warn("Invalid form submission")
	case errors.As(err, &routingErr):
		logEntry.Warn("Unroutable request")
	case errors.As(err, &storeErr):
		logEntry.WithField("op", storeErr.Op).Error("Catalog store error")
	case errors.As(err, &notFoundErr):
		logEntry.WithField("template", notFoundErr.Name).Error("Template missing")
	default:
		logEntry.Error("Request failed")
	}

	http.Error(w, err.Error(), http.StatusInternalServerError)
}
