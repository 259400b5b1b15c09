package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"CoinSage/internal/domain/models"
)

// FileBinaryStore persists serialized model weights on disk. Writes go to a
// temp file, fsync, then rename, so a crash mid-write never corrupts the
// blob an active registry row points at.
type FileBinaryStore struct {
	dir string
}

// NewFileBinaryStore creates the storage directory if needed.
func NewFileBinaryStore(dir string) (*FileBinaryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &FileBinaryStore{dir: dir}, nil
}

// Save durably writes the blob for a (symbol, purpose) pair.
func (s *FileBinaryStore) Save(symbol string, purpose models.ModelPurpose, blob []byte) error {
	final := s.path(symbol, purpose)

	tmp, err := os.CreateTemp(s.dir, ".tmp-model-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

// Load reads the blob for a (symbol, purpose) pair.
func (s *FileBinaryStore) Load(symbol string, purpose models.ModelPurpose) ([]byte, error) {
	blob, err := os.ReadFile(s.path(symbol, purpose))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return blob, nil
}

func (s *FileBinaryStore) path(symbol string, purpose models.ModelPurpose) string {
	return filepath.Join(s.dir, models.ModelName(symbol, purpose)+".gob")
}
