package database

// schema creates the catalog tables. Artist names, album titles and track
// titles are unique across the whole catalog, not per parent row.
var schema = []string{
	`CREATE TABLE Artists (
		artistID INTEGER PRIMARY KEY AUTOINCREMENT,
		artist_name TEXT NOT NULL UNIQUE,
		city TEXT,
		state TEXT
	);`,
	`CREATE TABLE RecordLabels (
		record_labelID INTEGER PRIMARY KEY AUTOINCREMENT,
		label_name TEXT
	);`,
	`CREATE TABLE Albums (
		albumID INTEGER PRIMARY KEY AUTOINCREMENT,
		price REAL,
		album_title TEXT NOT NULL UNIQUE,
		artistRef INTEGER NOT NULL,
		year INTEGER NOT NULL,
		record_labelRef INTEGER NOT NULL,
		FOREIGN KEY (artistRef) REFERENCES Artists (artistID),
		FOREIGN KEY (record_labelRef) REFERENCES RecordLabels (record_labelID)
	);`,
	`CREATE TABLE Tracks (
		trackID INTEGER PRIMARY KEY AUTOINCREMENT,
		albumRef INTEGER NOT NULL,
		tracknum INTEGER NOT NULL,
		track_title TEXT NOT NULL UNIQUE,
		length REAL,
		FOREIGN KEY (albumRef) REFERENCES Albums (albumID)
	);`,
}

// catalogTables lists the tables a usable database must contain
var catalogTables = []string{"Artists", "RecordLabels", "Albums", "Tracks"}
