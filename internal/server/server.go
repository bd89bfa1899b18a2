package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"albumserver/internal/auth"
	"albumserver/internal/config"
	"albumserver/internal/database"
	"albumserver/internal/templates"
	"albumserver/pkg/models"

	"github.com/sirupsen/logrus"
)

// Catalog is the part of the catalog store the web pages need
type Catalog interface {
	ListAlbums() ([]models.AlbumListing, error)
	ListArtists() ([]models.Artist, error)
	ListTracks(albumID int) ([]models.Track, error)
	ListLabels() ([]models.RecordLabel, error)
	AddAlbum(fields database.Fields) (int, error)
	AddTrack(fields database.Fields) (int, error)
	AddArtist(fields database.Fields) (bool, error)
	AddLabel(fields database.Fields) (bool, error)
	Ping() error
	Counts() (database.TableCounts, error)
}

// AlbumServer serves the album catalog pages
type AlbumServer struct {
	catalog  Catalog
	renderer *templates.Renderer
	gate     *auth.Gate
	config   *config.Config
	logger   *logrus.Logger
	metrics  *Metrics

	baseURL string
	routes  []route

	// mu serializes request handling so check-then-insert mutations and the
	// single database connection are never used concurrently
	mu sync.Mutex

	httpServer *http.Server
}

// NewAlbumServer creates a server instance. The catalog is owned by the
// caller and must outlive the server.
func NewAlbumServer(cfg *config.Config, catalog Catalog, renderer *templates.Renderer, gate *auth.Gate, logger *logrus.Logger) *AlbumServer {
	if logger == nil {
		logger = logrus.New()
	}
	if gate == nil {
		gate = auth.NewGate(logger)
	}

	s := &AlbumServer{
		catalog:  catalog,
		renderer: renderer,
		gate:     gate,
		config:   cfg,
		logger:   logger,
		baseURL:  cfg.BaseURL(),
	}
	if cfg.Metrics.Enabled {
		s.metrics = NewMetrics()
	}
	s.routes = s.buildRoutes()

	s.httpServer = &http.Server{
		Addr:        cfg.GetAddress(),
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	return s
}

// Handler returns the router wrapped in the server middleware
func (s *AlbumServer) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.route)
	h = s.serializeMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	h = s.requestLoggingMiddleware(h)
	return h
}

// Start listens on the configured address and serves until Shutdown is called
func (s *AlbumServer) Start() error {
	ln, err := net.Listen("tcp", s.config.GetAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.GetAddress(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called
func (s *AlbumServer) Serve(ln net.Listener) error {
	s.logger.WithFields(logrus.Fields{
		"address":  ln.Addr().String(),
		"base_url": s.baseURL,
		"metrics":  s.metrics != nil,
	}).Info("Album server started")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *AlbumServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down album server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("Album server shutdown complete")
	return nil
}
