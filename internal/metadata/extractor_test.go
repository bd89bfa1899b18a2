package metadata

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// writeWAV writes a silent 16-bit mono PCM file of the given length
func writeWAV(t *testing.T, path string, seconds int) {
	t.Helper()

	const sampleRate = 8000
	dataSize := uint32(sampleRate * 2 * seconds)

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("Failed to write wav: %v", err)
	}
}

func atom(name string, payload ...[]byte) []byte {
	size := 8
	for _, p := range payload {
		size += len(p)
	}
	out := binary.BigEndian.AppendUint32(nil, uint32(size))
	out = append(out, name...)
	for _, p := range payload {
		out = append(out, p...)
	}
	return out
}

// writeM4A writes just enough of an MPEG-4 container to carry a length
func writeM4A(t *testing.T, path string, version byte, timescale uint32, units uint64) {
	t.Helper()

	mvhd := []byte{version, 0, 0, 0}
	if version == 1 {
		mvhd = append(mvhd, make([]byte, 16)...)
		mvhd = binary.BigEndian.AppendUint32(mvhd, timescale)
		mvhd = binary.BigEndian.AppendUint64(mvhd, units)
	} else {
		mvhd = append(mvhd, make([]byte, 8)...)
		mvhd = binary.BigEndian.AppendUint32(mvhd, timescale)
		mvhd = binary.BigEndian.AppendUint32(mvhd, uint32(units))
	}
	mvhd = append(mvhd, make([]byte, 80)...)

	data := atom("ftyp", []byte("M4A \x00\x00\x00\x00"))
	data = append(data, atom("free", make([]byte, 12))...)
	data = append(data, atom("moov", atom("mvhd", mvhd))...)

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write m4a: %v", err)
	}
}

func TestMetadataExtractor(t *testing.T) {
	extractor := NewExtractor(DefaultFormats, quietLogger())

	t.Run("IsAudioFile", func(t *testing.T) {
		testCases := []struct {
			filename string
			expected bool
		}{
			{"song.mp3", true},
			{"song.MP3", true},
			{"song.flac", true},
			{"song.FLAC", true},
			{"song.wav", true},
			{"song.m4a", true},
			{"song.txt", false},
			{"song.jpg", false},
			{"song", false},
			{"", false},
		}

		for _, tc := range testCases {
			result := extractor.IsAudioFile(tc.filename)
			if result != tc.expected {
				t.Errorf("IsAudioFile(%s): expected %v, got %v", tc.filename, tc.expected, result)
			}
		}
	})

	t.Run("RestrictedFormats", func(t *testing.T) {
		wavOnly := NewExtractor([]string{".wav"}, quietLogger())
		if wavOnly.IsAudioFile("song.mp3") {
			t.Error("mp3 should not be accepted when only wav is configured")
		}
		if !wavOnly.IsAudioFile("song.wav") {
			t.Error("wav should be accepted")
		}
	})

	t.Run("UntaggedWAV", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Morning Dew.wav")
		writeWAV(t, path, 1)

		track, err := extractor.ExtractFromFile(path)
		if err != nil {
			t.Fatalf("ExtractFromFile failed: %v", err)
		}
		if track.Title != "Morning Dew" {
			t.Errorf("expected title from filename, got %q", track.Title)
		}
		if track.Artist != UnknownArtist || track.Album != UnknownAlbum || track.Label != UnknownLabel {
			t.Errorf("expected unknown placeholders, got %+v", track)
		}
		if track.Duration != 1 {
			t.Errorf("expected duration 1, got %d", track.Duration)
		}
		if track.FilePath != path {
			t.Errorf("expected file path %q, got %q", path, track.FilePath)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := extractor.ExtractFromFile(filepath.Join(t.TempDir(), "gone.mp3")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestDuration(t *testing.T) {
	dir := t.TempDir()

	wavPath := filepath.Join(dir, "three.wav")
	writeWAV(t, wavPath, 3)

	m4aPath := filepath.Join(dir, "short.m4a")
	writeM4A(t, m4aPath, 0, 1000, 125_400)

	m4aLong := filepath.Join(dir, "long.m4a")
	writeM4A(t, m4aLong, 1, 44100, 44100*240)

	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("not audio at all"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		want      int
		wantError bool
	}{
		{name: "wav", path: wavPath, want: 3},
		{name: "m4a version 0", path: m4aPath, want: 125},
		{name: "m4a version 1", path: m4aLong, want: 240},
		{name: "invalid wav", path: garbage, wantError: true},
		{name: "unsupported", path: filepath.Join(dir, "notes.txt"), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Duration(tt.path)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFormatLength(t *testing.T) {
	tests := map[int]string{
		0:    "0:00",
		9:    "0:09",
		61:   "1:01",
		245:  "4:05",
		3600: "60:00",
		-5:   "0:00",
	}
	for in, want := range tests {
		if got := FormatLength(in); got != want {
			t.Errorf("FormatLength(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestLabelFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want string
	}{
		{name: "id3v2", raw: map[string]interface{}{"TPUB": "Blue Note"}, want: "Blue Note"},
		{name: "vorbis", raw: map[string]interface{}{"label": "ECM"}, want: "ECM"},
		{name: "list value", raw: map[string]interface{}{"LABEL": []string{"Impulse!"}}, want: "Impulse!"},
		{name: "blank", raw: map[string]interface{}{"TPUB": "  "}, want: ""},
		{name: "none", raw: map[string]interface{}{"TIT2": "Song"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := labelFromRaw(tt.raw); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
