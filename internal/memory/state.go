package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists a single memory snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Name() string
}

// FileStore keeps memory in a JSON file.
type FileStore struct {
	Path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Name() string { return "file" }

// Load reads the memory file. A missing file is an empty snapshot.
func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("read memory file: %w", err)
	}
	return Decode(data)
}

// Save overwrites the memory file with s.
func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("create temp memory file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close memory file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace memory file: %w", err)
	}
	return nil
}
