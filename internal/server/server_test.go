package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"albumserver/internal/auth"
	"albumserver/internal/config"
	"albumserver/internal/database"
	"albumserver/internal/templates"
	"albumserver/pkg/models"

	"github.com/sirupsen/logrus"
)

const testBase = "http://localhost:9000/"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.RequestLogging = false
	return cfg
}

func createTestAlbumServer(t *testing.T) (*AlbumServer, *database.Database) {
	t.Helper()
	logger := quietLogger()

	db, err := database.Create(filepath.Join(t.TempDir(), "albums.db"), database.DriverSQLite3, logger)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	renderer := templates.NewRenderer(templates.DefaultFS(), nil, logger)
	return NewAlbumServer(testConfig(), db, renderer, auth.NewGate(logger), logger), db
}

func multipartRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *AlbumServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func get(s *AlbumServer, uri string) *httptest.ResponseRecorder {
	return serve(s, httptest.NewRequest(http.MethodGet, uri, nil))
}

func seedCatalog(t *testing.T, s *AlbumServer) {
	t.Helper()
	for _, req := range []*http.Request{
		multipartRequest(t, "/add_artist", map[string]string{"artist_name": "Aretha Franklin", "city": "Memphis", "state": "TN"}),
		multipartRequest(t, "/add_label", map[string]string{"label_name": "Atlantic"}),
	} {
		if rec := serve(s, req); rec.Code != http.StatusOK {
			t.Fatalf("seeding %s failed: %d %s", req.URL.Path, rec.Code, rec.Body.String())
		}
	}
}

func TestLogin(t *testing.T) {
	s, _ := createTestAlbumServer(t)

	t.Run("page", func(t *testing.T) {
		rec := get(s, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, navLinks(testBase)) {
			t.Error("login page should carry the navigation bar")
		}
		if strings.Contains(body, "{{") {
			t.Error("login page contains unreplaced tokens")
		}
	})

	t.Run("success redirects", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/", map[string]string{"loginName": "bob", "loginPassword": auth.Password}))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/albums" {
			t.Errorf("expected redirect to /albums, got %q", loc)
		}
		if rec.Header().Get("Set-Cookie") != "" {
			t.Error("login must not set a cookie")
		}
	})

	t.Run("failure re-renders", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/", map[string]string{"loginName": "bob", "loginPassword": "letmein"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), auth.ErrInvalidPassword.Error()) {
			t.Error("expected failure message on login page")
		}
		if rec.Header().Get("Set-Cookie") != "" {
			t.Error("failed login must not set a cookie")
		}
	})

	t.Run("other pages stay open", func(t *testing.T) {
		if rec := get(s, "/albums"); rec.Code != http.StatusOK {
			t.Errorf("albums should be reachable without logging in, got %d", rec.Code)
		}
	})
}

func TestListingPages(t *testing.T) {
	s, _ := createTestAlbumServer(t)

	t.Run("empty album listing", func(t *testing.T) {
		rec := get(s, "/albums")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("expected text/html, got %q", ct)
		}
		body := rec.Body.String()
		if !strings.Contains(body, navLinks(testBase)) {
			t.Error("missing navigation bar")
		}
		if strings.Contains(body, "{{") {
			t.Error("unreplaced tokens in empty listing")
		}
		if strings.Contains(body, "id='buyme'") {
			t.Error("empty listing should have no rows")
		}
	})

	seedCatalog(t, s)

	t.Run("add album shows row", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/add_album", map[string]string{
			"album_title": "X",
			"artistID":    "1",
			"year":        "1999",
			"labelID":     "1",
			"price":       "9.99",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		want := "<tr><td><input type='checkbox' onclick='Add2Total()' id='buyme'></td>" +
			"<td><a href=http://localhost:9000/tracks?ID=1>X</a></td>" +
			"<td>Aretha Franklin</td><td>1999</td><td>Atlantic</td><td>9.99</td></tr>"
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("album row not found in listing:\n%s", rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "<title>Albums</title>") {
			t.Error("add album should re-render the album listing")
		}
	})

	t.Run("artists", func(t *testing.T) {
		body := get(s, "/artists").Body.String()
		if !strings.Contains(body, "<tr><td>Aretha Franklin</td><td>Memphis</td><td>TN</td></tr>") {
			t.Errorf("artist row not found:\n%s", body)
		}
	})

	t.Run("labels", func(t *testing.T) {
		body := get(s, "/labels").Body.String()
		if !strings.Contains(body, "<tr><td>Atlantic</td></tr>") {
			t.Errorf("label row not found:\n%s", body)
		}
	})

	t.Run("tracks", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/add_track", map[string]string{
			"albumID":      "1",
			"track_num":    "1",
			"track_title":  "Respect",
			"track_length": "2:27",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "<title>Add a Track</title>") {
			t.Error("add track should re-render the track form")
		}

		rec = get(s, "/tracks?ID=1")
		body := rec.Body.String()
		if !strings.Contains(body, "<tr><td>1</td><td>Respect</td><td>2:27</td></tr>") {
			t.Errorf("track row not found:\n%s", body)
		}
		if !strings.Contains(body, trackNavLinks(testBase)) {
			t.Error("track listing should use the two-link navigation bar")
		}
		if strings.Contains(body, ">Add Album<") {
			t.Error("track listing should not carry the full navigation bar")
		}
	})

	t.Run("tracks of unknown album", func(t *testing.T) {
		rec := get(s, "/tracks?ID=999")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "{{") {
			t.Error("unreplaced tokens in empty track listing")
		}
	})

	t.Run("tracks without ID", func(t *testing.T) {
		rec := get(s, "/tracks")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "no album ID") {
			t.Errorf("expected routing error text, got %q", rec.Body.String())
		}
	})

	t.Run("duplicate artist", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/add_artist", map[string]string{"artist_name": "Aretha Franklin"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if n := strings.Count(rec.Body.String(), "<td>Aretha Franklin</td>"); n != 1 {
			t.Errorf("expected one artist row, got %d", n)
		}
	})
}

func TestFormPages(t *testing.T) {
	s, _ := createTestAlbumServer(t)
	seedCatalog(t, s)
	serve(s, multipartRequest(t, "/add_album", map[string]string{
		"album_title": "Lady Soul", "artistID": "1", "year": "1968", "labelID": "1", "price": "7",
	}))

	tests := []struct {
		uri   string
		title string
		want  string
	}{
		{"/add_album", "Add an Album", "<option value=1>Aretha Franklin</option>"},
		{"/add_album", "Add an Album", "<option value=1>Atlantic</option>"},
		{"/add_track", "Add a Track", "<option value=1>Lady Soul</option>"},
		{"/add_artist", "Add an Artist", `id="aname"`},
		{"/add_label", "Add a Record Label", `id="label_name"`},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			rec := get(s, tt.uri)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "<title>"+tt.title+"</title>") {
				t.Errorf("expected title %q", tt.title)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("expected %q in body:\n%s", tt.want, body)
			}
			if strings.Contains(body, "{{") {
				t.Error("unreplaced tokens in form page")
			}
		})
	}
}

func TestRouting(t *testing.T) {
	s, _ := createTestAlbumServer(t)

	tests := []struct {
		name   string
		method string
		uri    string
		code   int
		title  string
	}{
		{"listing matched by substring", http.MethodGet, "/foo/albums/bar", http.StatusOK, "Albums"},
		{"query string counts", http.MethodGet, "/x?page=/artists", http.StatusOK, "Artists"},
		{"albums before add_album", http.MethodGet, "/albums/add_album", http.StatusOK, "Albums"},
		{"add_label form", http.MethodGet, "/add_label", http.StatusOK, "Add a Record Label"},
		{"unknown path", http.MethodGet, "/nowhere", http.StatusNotFound, ""},
		{"post is exact", http.MethodPost, "/add_label/extra", http.StatusNotFound, ""},
		{"unsupported method", http.MethodPut, "/albums", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.uri, nil))
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if tt.title != "" && !strings.Contains(rec.Body.String(), "<title>"+tt.title+"</title>") {
				t.Errorf("expected page titled %q", tt.title)
			}
		})
	}

	t.Run("request id", func(t *testing.T) {
		rec := get(s, "/labels")
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a generated request id")
		}

		req := httptest.NewRequest(http.MethodGet, "/labels", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		if got := serve(s, req).Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("expected incoming request id to be kept, got %q", got)
		}
	})
}

func TestErrorResponses(t *testing.T) {
	s, db := createTestAlbumServer(t)
	seedCatalog(t, s)

	t.Run("validation error", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/add_album", map[string]string{"album_title": "No Year", "artistID": "1", "labelID": "1", "price": "1"}))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("expected text/plain error, got %q", ct)
		}
		if !strings.Contains(rec.Body.String(), `"year"`) {
			t.Errorf("expected error naming the field, got %q", rec.Body.String())
		}
	})

	t.Run("store error", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/add_album", map[string]string{
			"album_title": "Dangling", "artistID": "42", "year": "2001", "labelID": "1", "price": "1",
		}))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "add album") {
			t.Errorf("expected store error text, got %q", rec.Body.String())
		}
		if _, err := db.AlbumID("Dangling"); err == nil {
			t.Error("failed insert should not leave a row behind")
		}
	})

	t.Run("missing template", func(t *testing.T) {
		renderer := templates.NewRenderer(fstest.MapFS{}, nil, quietLogger())
		broken := NewAlbumServer(testConfig(), db, renderer, nil, quietLogger())

		rec := get(broken, "/albums")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "template albums.html not found") {
			t.Errorf("expected template error text, got %q", rec.Body.String())
		}
	})

	t.Run("escaped values", func(t *testing.T) {
		serve(s, multipartRequest(t, "/add_label", map[string]string{"label_name": "<script>x</script>"}))
		body := get(s, "/labels").Body.String()
		if strings.Contains(body, "<script>x</script>") {
			t.Error("catalog values must be escaped")
		}
		if !strings.Contains(body, "&lt;script&gt;x&lt;/script&gt;") {
			t.Error("expected escaped label name")
		}
	})
}

// panicCatalog fails every listing with a panic
type panicCatalog struct{ database.Database }

func (panicCatalog) ListAlbums() ([]models.AlbumListing, error) { panic("boom") }

func TestPanicRecovery(t *testing.T) {
	renderer := templates.NewRenderer(templates.DefaultFS(), nil, quietLogger())
	s := NewAlbumServer(testConfig(), &panicCatalog{}, renderer, nil, quietLogger())

	rec := get(s, "/albums")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("panicking request should still carry a request id")
	}

	// the request mutex must have been released
	if rec := get(s, "/add_artist"); rec.Code != http.StatusOK {
		t.Errorf("server should keep serving after a panic, got %d", rec.Code)
	}

	body := get(s, "/metrics").Body.String()
	want := `albumserver_http_requests_total{method="GET",route="albums",status="500"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("panicking request not counted, missing %s", want)
	}
}

func TestPanicAfterPartialWrite(t *testing.T) {
	s, _ := createTestAlbumServer(t)

	var recorded *responseWriter
	h := s.requestLoggingMiddleware(s.panicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded = w.(*responseWriter)
		io.WriteString(w, "<html>partial")
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/albums", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status already sent should stay %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "<html>partial" {
		t.Errorf("no error text should be appended to a partial body, got %q", body)
	}
	if recorded.statusCode != http.StatusInternalServerError {
		t.Errorf("expected recorded status 500, got %d", recorded.statusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := createTestAlbumServer(t)
	seedCatalog(t, s)

	t.Run("health", func(t *testing.T) {
		rec := get(s, "/health")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var health HealthStatus
		if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode health: %v", err)
		}
		if health.Status != "healthy" || health.Database != "ok" {
			t.Errorf("unexpected health %+v", health)
		}
		if health.Rows == nil || health.Rows.Artists != 1 || health.Rows.RecordLabels != 1 {
			t.Errorf("unexpected row counts %+v", health.Rows)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		get(s, "/albums")
		serve(s, multipartRequest(t, "/add_label", map[string]string{"label_name": "Atlantic"}))

		rec := get(s, "/metrics")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{
			`albumserver_http_requests_total{method="GET",route="albums",status="200"}`,
			`albumserver_catalog_mutations_total{operation="add_label",result="added"} 1`,
			`albumserver_catalog_mutations_total{operation="add_label",result="duplicate"} 1`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("metrics missing %s", want)
			}
		}
	})

	t.Run("metrics disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Metrics.Enabled = false
		_, db := createTestAlbumServer(t)
		off := NewAlbumServer(cfg, db, templates.NewRenderer(templates.DefaultFS(), nil, quietLogger()), nil, quietLogger())

		if rec := get(off, "/metrics"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 when metrics are disabled, got %d", rec.Code)
		}
	})
}
