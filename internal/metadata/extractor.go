package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"albumserver/pkg/models"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Placeholders used when a file carries no usable tag
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownLabel  = "Unknown Label"
)

// DefaultFormats lists the extensions the extractor can read
var DefaultFormats = []string{".mp3", ".flac", ".wav", ".m4a"}

// labelTags are the raw tag keys that name a record label, by tag format
var labelTags = []string{"TPUB", "TPB", "label", "LABEL", "organization", "ORGANIZATION", "publisher"}

// Extractor handles metadata extraction from audio files
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	if len(supportedFormats) == 0 {
		supportedFormats = DefaultFormats
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// ExtractFromFile reads tags and duration from an audio file. Files without
// readable tags are still returned, titled after the file name.
func (e *Extractor) ExtractFromFile(filePath string) (models.ScannedTrack, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open audio file")
		return models.ScannedTrack{}, err
	}
	defer file.Close()

	duration, err := Duration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	track := models.ScannedTrack{
		FilePath: filePath,
		Title:    titleFromFileName(filePath),
		Artist:   UnknownArtist,
		Album:    UnknownAlbum,
		Label:    UnknownLabel,
		Duration: duration,
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to extract metadata, using filename")
		return track, nil
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		track.Title = title
	}
	if artist := firstNonEmpty(metadata.Artist(), metadata.AlbumArtist()); artist != "" {
		track.Artist = artist
	}
	if album := strings.TrimSpace(metadata.Album()); album != "" {
		track.Album = album
	}
	if label := labelFromRaw(metadata.Raw()); label != "" {
		track.Label = label
	}
	track.Year = metadata.Year()
	track.TrackNumber, _ = metadata.Track()

	e.logger.WithFields(logrus.Fields{
		"file_path":       filePath,
		"title":           track.Title,
		"artist":          track.Artist,
		"album":           track.Album,
		"duration":        duration,
		"processing_time": time.Since(startTime),
	}).Debug("Successfully extracted metadata")

	return track, nil
}

// labelFromRaw looks for a record label among the format specific tags
func labelFromRaw(raw map[string]interface{}) string {
	for _, key := range labelTags {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []string:
			if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
				return strings.TrimSpace(v[0])
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func titleFromFileName(filePath string) string {
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
