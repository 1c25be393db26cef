package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rusq/encio"
)

// File is a Store that keeps each key in its own encrypted file inside a
// directory.  Encryption is machine-bound (see rusq/encio), so the cache
// cannot be copied between machines, which is fine for a cache.
type File struct {
	dir string
}

var _ Store = File{}

// NewFile returns a file store rooted at dir, creating it if necessary.
func NewFile(dir string) (File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return File{}, fmt.Errorf("failed to create the store directory: %w", err)
	}
	return File{dir: dir}, nil
}

func (s File) Get(key string, v any) error {
	f, err := encio.Open(s.filename(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to open %q: %w", key, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", key, err)
	}
	return unmarshal(data, v)
}

func (s File) Set(key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	f, err := encio.Create(s.filename(key))
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return f.Close()
}

func (s File) Remove(key string) error {
	if err := os.Remove(s.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// filename maps a key to a file path, replacing separators so that a key
// can not escape the store directory.
func (s File) filename(key string) string {
	key = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.dir, key+".bin")
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
