package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"albumserver/internal/database"
	"albumserver/internal/metadata"
	"albumserver/pkg/models"

	"github.com/sirupsen/logrus"
)

// Catalog is the part of the catalog store an import writes through
type Catalog interface {
	AddArtist(fields database.Fields) (bool, error)
	AddLabel(fields database.Fields) (bool, error)
	AddAlbum(fields database.Fields) (int, error)
	AddTrack(fields database.Fields) (int, error)
	ArtistID(name string) (int, error)
	LabelID(name string) (int, error)
	AlbumID(title string) (int, error)
	TrackExists(title string) (bool, error)
}

// Stats summarises a library import
type Stats struct {
	Files    int64         `json:"files"`
	Imported int64         `json:"imported"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Scanner walks a directory of audio files and imports their tags into the
// catalog. Extraction runs on a pool of workers; catalog writes are
// serialized so artist, label and album lookups never race their inserts.
type Scanner struct {
	catalog   Catalog
	extractor *metadata.Extractor
	logger    *logrus.Logger
	workers   int

	writeMu sync.Mutex
}

// New creates a scanner with one worker per CPU
func New(catalog Catalog, extractor *metadata.Extractor, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	if extractor == nil {
		extractor = metadata.NewExtractor(metadata.DefaultFormats, logger)
	}
	return &Scanner{
		catalog:   catalog,
		extractor: extractor,
		logger:    logger,
		workers:   runtime.NumCPU(),
	}
}

// SetWorkers overrides the size of the extraction pool
func (s *Scanner) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Scan imports every supported audio file below root. Files that fail to
// import are counted and logged; only walk errors and cancellation abort the
// scan.
func (s *Scanner) Scan(ctx context.Context, root string) (Stats, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, err
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("%s is not a directory", root)
	}

	s.logger.WithFields(logrus.Fields{
		"root":    root,
		"workers": s.workers,
	}).Info("Scanning music library")

	var (
		wg    sync.WaitGroup
		stats Stats
	)
	jobs := make(chan string, 100)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				track, err := s.extractor.ExtractFromFile(path)
				if err != nil {
					atomic.AddInt64(&stats.Failed, 1)
					continue
				}

				imported, err := s.importTrack(track)
				switch {
				case err != nil:
					atomic.AddInt64(&stats.Failed, 1)
					s.logger.WithError(err).WithField("file_path", path).Error("Failed to import track")
				case imported:
					atomic.AddInt64(&stats.Imported, 1)
				default:
					atomic.AddInt64(&stats.Skipped, 1)
				}
			}
		}()
	}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !s.extractor.IsAudioFile(path) {
			return nil
		}
		atomic.AddInt64(&stats.Files, 1)
		select {
		case jobs <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	close(jobs)
	wg.Wait()

	stats.Elapsed = time.Since(start)
	s.logger.WithFields(logrus.Fields{
		"files":    stats.Files,
		"imported": stats.Imported,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"elapsed":  stats.Elapsed,
	}).Info("Library scan finished")

	return stats, walkErr
}

// importTrack writes one scanned file through the catalog, reusing the
// artist, label and album rows that already exist. It reports false when a
// track with the same title is already stored.
func (s *Scanner) importTrack(track models.ScannedTrack) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	exists, err := s.catalog.TrackExists(track.Title)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.WithFields(logrus.Fields{
			"title":     track.Title,
			"file_path": track.FilePath,
		}).Debug("Track already in catalog, skipping")
		return false, nil
	}

	albumID, err := s.albumFor(track)
	if err != nil {
		return false, err
	}

	if _, err := s.catalog.AddTrack(database.Fields{
		"albumID":      strconv.Itoa(albumID),
		"track_num":    strconv.Itoa(track.TrackNumber),
		"track_title":  track.Title,
		"track_length": metadata.FormatLength(track.Duration),
	}); err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{
		"artist": track.Artist,
		"title":  track.Title,
	}).Info("Added track")
	return true, nil
}

// albumFor finds the album a track belongs to, creating it along with its
// artist and label when needed. Imported albums are priced at zero.
func (s *Scanner) albumFor(track models.ScannedTrack) (int, error) {
	albumID, err := s.catalog.AlbumID(track.Album)
	if err == nil {
		return albumID, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return 0, err
	}

	if _, err := s.catalog.AddArtist(database.Fields{"artist_name": track.Artist}); err != nil {
		return 0, err
	}
	artistID, err := s.catalog.ArtistID(track.Artist)
	if err != nil {
		return 0, err
	}

	if _, err := s.catalog.AddLabel(database.Fields{"label_name": track.Label}); err != nil {
		return 0, err
	}
	labelID, err := s.catalog.LabelID(track.Label)
	if err != nil {
		return 0, err
	}

	return s.catalog.AddAlbum(database.Fields{
		"album_title": track.Album,
		"artistID":    strconv.Itoa(artistID),
		"year":        strconv.Itoa(track.Year),
		"labelID":     strconv.Itoa(labelID),
		"price":       "0",
	})
}
