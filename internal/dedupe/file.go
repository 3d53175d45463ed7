package dedupe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one identifier per line in a plain text file.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty set; blank lines are
// skipped and a trailing carriage return is tolerated.
func (s *FileStore) Load(ctx context.Context) (SeenSet, error) {
	if err := ctx.Err(); err != nil {
		return SeenSet{}, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSeenSet(), nil
	}
	if err != nil {
		return SeenSet{}, fmt.Errorf("open seen file: %w", err)
	}
	defer f.Close()

	seen := NewSeenSet()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		seen.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return SeenSet{}, fmt.Errorf("read seen file: %w", err)
	}
	return seen, nil
}

// Save writes the set to a temporary file next to the target and renames it
// into place, so a crash leaves either the old or the new contents.
func (s *FileStore) Save(ctx context.Context, seen SeenSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create seen dir: %w", err)
	}

	var buf bytes.Buffer
	for _, id := range seen.IDs() {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp seen file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp seen file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp seen file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp seen file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace seen file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
