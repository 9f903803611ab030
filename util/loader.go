// Package util - Helpers for replaying recorded frame sequences.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FrameFile is one image of a recorded frame sequence.
type FrameFile struct {
	// Path is the location of the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Index is the frame number parsed from the file name.
	Index int
}

// LoadFrameSequence reads every image file from a directory and orders it by
// the frame number embedded in the file name (any trailing digits before the
// extension, e.g. "frame-0042.jpg" or "12.png"). Files without a parsable
// number are skipped.
func LoadFrameSequence(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading frame directory %s", dir)
	}

	var frames []FrameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}

		index, ok := trailingNumber(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading frame %s", path)
		}
		frames = append(frames, FrameFile{Path: path, Data: data, Index: index})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames, nil
}

// trailingNumber parses the run of digits at the end of a name.
func trailingNumber(name string) (int, bool) {
	end := len(name)
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
