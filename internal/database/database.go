package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"albumserver/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
)

// Database wraps a *sql.DB and owns every SQL statement run against the
// album catalog. The pool is limited to a single connection so the
// check-then-insert mutations never interleave.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger
	path   string
	driver string
}

// TableCounts holds the number of rows in each catalog table
type TableCounts struct {
	Artists      int `json:"artists"`
	RecordLabels int `json:"recordLabels"`
	Albums       int `json:"albums"`
	Tracks       int `json:"tracks"`
}

// NewDatabase opens an existing catalog database. A missing file is an
// error; use Create to bootstrap a new one.
func NewDatabase(dbPath, driver string, logger *logrus.Logger) (*Database, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database file %s is not accessible: %w", dbPath, err)
	}

	db, err := open(dbPath, driver, logger)
	if err != nil {
		return nil, err
	}

	if err := db.verifySchema(); err != nil {
		db.conn.Close()
		return nil, err
	}

	db.logger.WithFields(logrus.Fields{
		"db_path": dbPath,
		"driver":  db.driver,
	}).Info("Database opened successfully")
	return db, nil
}

// Create makes a new database file at dbPath containing the empty catalog
// schema. It refuses to touch an existing file.
func Create(dbPath, driver string, logger *logrus.Logger) (*Database, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%s: %w", dbPath, ErrDatabaseExists)
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := open(dbPath, driver, logger)
	if err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			db.conn.Close()
			return nil, &StoreError{Op: "create schema", Err: err}
		}
	}

	db.logger.WithField("db_path", dbPath).Info("Database created")
	return db, nil
}

func open(dbPath, driver string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if driver == "" {
		driver = DriverSQLite3
	}

	dsn, err := dataSourceName(dbPath, driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	// foreign keys are off by default in SQLite and must be enabled per connection
	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{
		conn:   conn,
		logger: logger,
		path:   dbPath,
		driver: driver,
	}, nil
}

func dataSourceName(dbPath, driver string) (string, error) {
	switch driver {
	case DriverSQLite3:
		return "file:" + dbPath + "?_foreign_keys=on", nil
	case DriverSQLite:
		return "file:" + dbPath + "?_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (db *Database) verifySchema() error {
	for _, table := range catalogTables {
		var name string
		err := db.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("database %s is missing table %s", db.path, table)
		}
		if err != nil {
			return &StoreError{Op: "verify schema", Err: err}
		}
	}
	return nil
}

// Path returns the file the database was opened from
func (db *Database) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use
func (db *Database) Driver() string {
	return db.driver
}

// ListAlbums returns every album joined with its artist and label names,
// ordered by title
func (db *Database) ListAlbums() ([]models.AlbumListing, error) {
	rows, err := db.conn.Query(`
		SELECT albumID, album_title, artist_name, year, label_name, price
		FROM Albums
		JOIN Artists ON Albums.artistRef = Artists.artistID
		JOIN RecordLabels ON Albums.record_labelRef = RecordLabels.record_labelID
		ORDER BY album_title`)
	if err != nil {
		return nil, &StoreError{Op: "list albums", Err: err}
	}
	defer rows.Close()

	albums := make([]models.AlbumListing, 0)
	for rows.Next() {
		var album models.AlbumListing
		var label sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&album.ID, &album.Title, &album.ArtistName, &album.Year, &label, &price); err != nil {
			return nil, &StoreError{Op: "list albums", Err: err}
		}
		album.LabelName = label.String
		album.Price = price.Float64
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list albums", Err: err}
	}
	return albums, nil
}

// ListArtists returns every artist ordered by name
func (db *Database) ListArtists() ([]models.Artist, error) {
	rows, err := db.conn.Query("SELECT artistID, artist_name, city, state FROM Artists ORDER BY artist_name")
	if err != nil {
		return nil, &StoreError{Op: "list artists", Err: err}
	}
	defer rows.Close()

	artists := make([]models.Artist, 0)
	for rows.Next() {
		var artist models.Artist
		var city, state sql.NullString
		if err := rows.Scan(&artist.ID, &artist.Name, &city, &state); err != nil {
			return nil, &StoreError{Op: "list artists", Err: err}
		}
		artist.City = city.String
		artist.State = state.String
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list artists", Err: err}
	}
	return artists, nil
}

// ListTracks returns the tracks of an album ordered by track number. An
// unknown album simply has no tracks.
func (db *Database) ListTracks(albumID int) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT tracknum, track_title, length
		FROM Tracks
		WHERE albumRef = ?
		ORDER BY tracknum`, albumID)
	if err != nil {
		return nil, &StoreError{Op: "list tracks", Err: err}
	}
	defer rows.Close()

	tracks := make([]models.Track, 0)
	for rows.Next() {
		track := models.Track{AlbumID: albumID}
		var length sql.NullString
		if err := rows.Scan(&track.Number, &track.Title, &length); err != nil {
			return nil, &StoreError{Op: "list tracks", Err: err}
		}
		track.Length = length.String
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list tracks", Err: err}
	}
	return tracks, nil
}

// ListLabels returns every record label ordered by name
func (db *Database) ListLabels() ([]models.RecordLabel, error) {
	rows, err := db.conn.Query("SELECT record_labelID, label_name FROM RecordLabels ORDER BY label_name")
	if err != nil {
		return nil, &StoreError{Op: "list labels", Err: err}
	}
	defer rows.Close()

	labels := make([]models.RecordLabel, 0)
	for rows.Next() {
		var label models.RecordLabel
		var name sql.NullString
		if err := rows.Scan(&label.ID, &name); err != nil {
			return nil, &StoreError{Op: "list labels", Err: err}
		}
		label.Name = name.String
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list labels", Err: err}
	}
	return labels, nil
}

// AddAlbum inserts an album from the album_title, artistID, year, labelID
// and price fields and returns its new ID
func (db *Database) AddAlbum(fields Fields) (int, error) {
	title, err := fields.required("album_title")
	if err != nil {
		return 0, err
	}
	artistID, err := fields.requiredInt("artistID")
	if err != nil {
		return 0, err
	}
	year, err := fields.requiredInt("year")
	if err != nil {
		return 0, err
	}
	labelID, err := fields.requiredInt("labelID")
	if err != nil {
		return 0, err
	}
	price, err := fields.requiredFloat("price")
	if err != nil {
		return 0, err
	}

	id, err := db.insert("add album",
		"INSERT INTO Albums (price, album_title, artistRef, year, record_labelRef) VALUES (?, ?, ?, ?, ?)",
		price, title, artistID, year, labelID)
	if err != nil {
		db.logger.WithError(err).WithField("album_title", title).Error("Failed to insert album")
		return 0, err
	}

	db.logger.WithFields(logrus.Fields{"album_id": id, "album_title": title}).Info("Album added")
	return id, nil
}

// AddTrack inserts a track from the albumID, track_num, track_title and
// track_length fields and returns its new ID. The length is free-form.
func (db *Database) AddTrack(fields Fields) (int, error) {
	albumID, err := fields.requiredInt("albumID")
	if err != nil {
		return 0, err
	}
	number, err := fields.requiredInt("track_num")
	if err != nil {
		return 0, err
	}
	title, err := fields.required("track_title")
	if err != nil {
		return 0, err
	}

	id, err := db.insert("add track",
		"INSERT INTO Tracks (albumRef, tracknum, track_title, length) VALUES (?, ?, ?, ?)",
		albumID, number, title, fields.optional("track_length"))
	if err != nil {
		db.logger.WithError(err).WithField("track_title", title).Error("Failed to insert track")
		return 0, err
	}

	db.logger.WithFields(logrus.Fields{
		"track_id": id,
		"album_id": albumID,
		"title":    title,
	}).Info("Track added")
	return id, nil
}

// AddArtist inserts an artist from the artist_name, city and state fields
// unless an artist with exactly that name exists. added reports whether a
// row was written.
func (db *Database) AddArtist(fields Fields) (added bool, err error) {
	name, err := fields.required("artist_name")
	if err != nil {
		return false, err
	}

	if _, err := db.ArtistID(name); err == nil {
		db.logger.WithField("artist_name", name).Info("Artist already exists, skipping insert")
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	id, err := db.insert("add artist",
		"INSERT INTO Artists (artist_name, city, state) VALUES (?, ?, ?)",
		name, fields.optional("city"), fields.optional("state"))
	if err != nil {
		db.logger.WithError(err).WithField("artist_name", name).Error("Failed to insert artist")
		return false, err
	}

	db.logger.WithFields(logrus.Fields{"artist_id": id, "artist_name": name}).Info("Artist added")
	return true, nil
}

// AddLabel inserts a record label from the label_name field unless a label
// with exactly that name exists
func (db *Database) AddLabel(fields Fields) (added bool, err error) {
	name, err := fields.required("label_name")
	if err != nil {
		return false, err
	}

	if _, err := db.LabelID(name); err == nil {
		db.logger.WithField("label_name", name).Info("Record label already exists, skipping insert")
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	id, err := db.insert("add label", "INSERT INTO RecordLabels (label_name) VALUES (?)", name)
	if err != nil {
		db.logger.WithError(err).WithField("label_name", name).Error("Failed to insert record label")
		return false, err
	}

	db.logger.WithFields(logrus.Fields{"label_id": id, "label_name": name}).Info("Record label added")
	return true, nil
}

// insert runs a single autocommitted INSERT and returns the new row ID
func (db *Database) insert(op, query string, args ...any) (int, error) {
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return 0, &StoreError{Op: op, Err: err}
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, &StoreError{Op: op, Err: err}
	}
	return int(id), nil
}

// ArtistID looks up an artist by exact name
func (db *Database) ArtistID(name string) (int, error) {
	return db.lookupID("find artist", "SELECT artistID FROM Artists WHERE artist_name = ?", name)
}

// LabelID looks up a record label by exact name. Label names are not
// unique; the oldest matching row wins.
func (db *Database) LabelID(name string) (int, error) {
	return db.lookupID("find label",
		"SELECT record_labelID FROM RecordLabels WHERE label_name = ? ORDER BY record_labelID LIMIT 1", name)
}

// AlbumID looks up an album by exact title
func (db *Database) AlbumID(title string) (int, error) {
	return db.lookupID("find album", "SELECT albumID FROM Albums WHERE album_title = ?", title)
}

// TrackExists reports whether a track with this exact title is stored
func (db *Database) TrackExists(title string) (bool, error) {
	_, err := db.lookupID("find track", "SELECT trackID FROM Tracks WHERE track_title = ?", title)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *Database) lookupID(op, query string, arg any) (int, error) {
	var id int
	err := db.conn.QueryRow(query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, &StoreError{Op: op, Err: err}
	}
	return id, nil
}

// Ping checks that the database is still reachable
func (db *Database) Ping() error {
	if err := db.conn.Ping(); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Counts returns the number of rows in each catalog table
func (db *Database) Counts() (TableCounts, error) {
	var counts TableCounts
	targets := []struct {
		table string
		dest  *int
	}{
		{"Artists", &counts.Artists},
		{"RecordLabels", &counts.RecordLabels},
		{"Albums", &counts.Albums},
		{"Tracks", &counts.Tracks},
	}
	for _, target := range targets {
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + target.table).Scan(target.dest); err != nil {
			return TableCounts{}, &StoreError{Op: "count " + target.table, Err: err}
		}
	}
	return counts, nil
}

// Close closes the underlying connection pool
func (db *Database) Close() error {
	start := time.Now()
	err := db.conn.Close()
	db.logger.WithField("duration", time.Since(start)).Debug("Database closed")
	return err
}
