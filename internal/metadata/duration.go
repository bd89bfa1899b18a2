package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// assumedMP3Bitrate is used to estimate length when no MP3 frame decodes
const assumedMP3Bitrate = 192000

// Duration returns the playing time of an audio file in whole seconds
func Duration(filePath string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return durationMP3(filePath)
	case ".flac":
		return durationFLAC(filePath)
	case ".wav":
		return durationWAV(filePath)
	case ".m4a":
		return durationM4A(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// durationMP3 sums decoded frame durations, estimating from the file size
// only when not a single frame can be decoded
func durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromFileSize(f, assumedMP3Bitrate)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds() + 0.5), nil
}

// durationFLAC reads the sample count from the STREAMINFO block
func durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return int(float64(si.NSamples)/float64(si.SampleRate) + 0.5), nil
}

// durationWAV divides the size of the PCM data chunk by the byte rate
func durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("wav data chunk: %w", err)
	}

	frameSize := int(dec.BitDepth/8) * int(dec.NumChans)
	if frameSize <= 0 || dec.SampleRate == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	frames := dec.PCMSize / frameSize
	return int(float64(frames)/float64(dec.SampleRate) + 0.5), nil
}

// durationM4A reads timescale and duration from the moov/mvhd atom
func durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}

	moovSize, err := findAtom(f, st.Size(), "moov")
	if err != nil {
		return 0, err
	}
	if _, err := findAtom(f, moovSize, "mvhd"); err != nil {
		return 0, err
	}

	var versionFlags [4]byte
	if _, err := io.ReadFull(f, versionFlags[:]); err != nil {
		return 0, err
	}

	var timescale uint32
	var units uint64
	if versionFlags[0] == 1 {
		var body [28]byte // creation(8) modification(8) timescale(4) duration(8)
		if _, err := io.ReadFull(f, body[:]); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(body[16:20])
		units = binary.BigEndian.Uint64(body[20:28])
	} else {
		var body [16]byte // creation(4) modification(4) timescale(4) duration(4)
		if _, err := io.ReadFull(f, body[:]); err != nil {
			return 0, err
		}
		timescale = binary.BigEndian.Uint32(body[8:12])
		units = uint64(binary.BigEndian.Uint32(body[12:16]))
	}

	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	return int(float64(units)/float64(timescale) + 0.5), nil
}

// findAtom scans sibling atoms within the next limit bytes for name and
// leaves r positioned at the start of its payload, returning the payload size
func findAtom(r io.ReadSeeker, limit int64, name string) (int64, error) {
	var head [8]byte
	for read := int64(0); read+8 <= limit; {
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return 0, err
		}
		size := int64(binary.BigEndian.Uint32(head[0:4]))
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size %d", size)
		}
		if string(head[4:8]) == name {
			return size - 8, nil
		}
		if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
			return 0, err
		}
		read += size
	}
	return 0, fmt.Errorf("%s atom not found", name)
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func estimateFromFileSize(f *os.File, bitrate int) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}

// FormatLength renders seconds as m:ss, the form stored for imported tracks
func FormatLength(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
