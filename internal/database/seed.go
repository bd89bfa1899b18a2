package database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Initial-load CSV files read by LoadSeed. Each starts with a header row.
const (
	ArtistsSeedFile = "artists_initial_load.csv"
	LabelsSeedFile  = "record_labels_initial_load.csv"
	AlbumsSeedFile  = "albums_initial_load.csv"
	TracksSeedFile  = "tracks_initial_load.csv"
)

// seedTable maps the columns of one CSV file onto the form field names the
// mutation helpers validate, so seed rows are typed exactly like submitted forms
type seedTable struct {
	file   string
	table  string
	fields []string
	query  string
	args   func(Fields) ([]any, error)
}

// seedTables is ordered so that referenced rows are loaded first
var seedTables = []seedTable{
	{
		file:   ArtistsSeedFile,
		table:  "Artists",
		fields: []string{"artist_name", "city", "state"},
		query:  "INSERT INTO Artists (artist_name, city, state) VALUES (?, ?, ?)",
		args: func(f Fields) ([]any, error) {
			name, err := f.required("artist_name")
			if err != nil {
				return nil, err
			}
			return []any{name, f.optional("city"), f.optional("state")}, nil
		},
	},
	{
		file:   LabelsSeedFile,
		table:  "RecordLabels",
		fields: []string{"label_name"},
		query:  "INSERT INTO RecordLabels (label_name) VALUES (?)",
		args: func(f Fields) ([]any, error) {
			name, err := f.required("label_name")
			if err != nil {
				return nil, err
			}
			return []any{name}, nil
		},
	},
	{
		file:   AlbumsSeedFile,
		table:  "Albums",
		fields: []string{"price", "album_title", "artistID", "year", "labelID"},
		query:  "INSERT INTO Albums (price, album_title, artistRef, year, record_labelRef) VALUES (?, ?, ?, ?, ?)",
		args: func(f Fields) ([]any, error) {
			price, err := f.requiredFloat("price")
			if err != nil {
				return nil, err
			}
			title, err := f.required("album_title")
			if err != nil {
				return nil, err
			}
			artistID, err := f.requiredInt("artistID")
			if err != nil {
				return nil, err
			}
			year, err := f.requiredInt("year")
			if err != nil {
				return nil, err
			}
			labelID, err := f.requiredInt("labelID")
			if err != nil {
				return nil, err
			}
			return []any{price, title, artistID, year, labelID}, nil
		},
	},
	{
		file:   TracksSeedFile,
		table:  "Tracks",
		fields: []string{"albumID", "track_num", "track_title", "track_length"},
		query:  "INSERT INTO Tracks (albumRef, tracknum, track_title, length) VALUES (?, ?, ?, ?)",
		args: func(f Fields) ([]any, error) {
			albumID, err := f.requiredInt("albumID")
			if err != nil {
				return nil, err
			}
			number, err := f.requiredInt("track_num")
			if err != nil {
				return nil, err
			}
			title, err := f.required("track_title")
			if err != nil {
				return nil, err
			}
			return []any{albumID, number, title, f.optional("track_length")}, nil
		},
	},
}

// LoadSeed loads the initial-load CSV files found in dir. Every file must be
// readable before anything is inserted. Rows are committed one at a time.
func (db *Database) LoadSeed(dir string) (TableCounts, error) {
	for _, st := range seedTables {
		path := filepath.Join(dir, st.file)
		f, err := os.Open(path)
		if err != nil {
			return TableCounts{}, fmt.Errorf("input csv file %s not readable: %w", path, err)
		}
		f.Close()
	}

	var counts TableCounts
	dest := map[string]*int{
		"Artists":      &counts.Artists,
		"RecordLabels": &counts.RecordLabels,
		"Albums":       &counts.Albums,
		"Tracks":       &counts.Tracks,
	}

	for _, st := range seedTables {
		n, err := db.loadSeedFile(filepath.Join(dir, st.file), st)
		if err != nil {
			return counts, err
		}
		*dest[st.table] = n
		db.logger.WithFields(logrus.Fields{
			"table": st.table,
			"rows":  n,
		}).Info("Loaded seed data")
	}

	return counts, nil
}

func (db *Database) loadSeedFile(path string, st seedTable) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	inserted := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(record) < len(st.fields) {
			return inserted, fmt.Errorf("%s line %d: expected %d columns, got %d", path, line, len(st.fields), len(record))
		}

		fields := make(Fields, len(st.fields))
		for i, name := range st.fields {
			fields[name] = record[i]
		}
		args, err := st.args(fields)
		if err != nil {
			return inserted, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if _, err := db.insert("seed "+st.table, st.query, args...); err != nil {
			return inserted, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		inserted++
	}

	return inserted, nil
}
