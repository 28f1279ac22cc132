package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive keeps a copy of every accepted import document on disk,
// keyed by receive time, so admins can audit what was loaded.
type Archive struct{ base string }

func NewArchive(base string) (*Archive, error) {
	if base == "" {
		base = "./data/imports"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Archive{base: base}, nil
}

// Save stores data under a timestamped key derived from name and returns
// the key.
func (a *Archive) Save(name string, data []byte) (string, error) {
	key := time.Now().UTC().Format("20060102T150405.000000000") + "-" + sanitize(name)
	dst := filepath.Join(a.base, key)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a previously archived document.
func (a *Archive) Get(key string) (io.ReadCloser, error) {
	if key == "" || key != filepath.Base(key) {
		return nil, errors.New("bad archive key")
	}
	return os.Open(filepath.Join(a.base, key))
}

func sanitize(name string) string {
	name = filepath.Base(name)
	repl := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}
	out := strings.Map(repl, name)
	if out == "" || out == "." {
		out = "upload.json"
	}
	return out
}
