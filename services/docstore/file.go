package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
)

// FileStore keeps a collection in one JSON file. Writes replace the file
// atomically, so concurrent loads see either the old or the new collection.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the whole file. A missing or unreadable file is
// StoreUnavailable.
func (s *FileStore) Load(ctx context.Context) (map[string]models.StoredEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to read store file", err).
			WithDetail("path", s.path)
	}

	entries, err := DecodeCollection(raw)
	if err != nil {
		s.logger.Error("store file is corrupt", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("store file loaded", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return entries, nil
}

func (s *FileStore) Keys(ctx context.Context) (map[string]struct{}, error) {
	entries, err := s.loadForWrite()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(entries))
	for id := range entries {
		keys[id] = struct{}{}
	}
	return keys, nil
}

// Put merges entries into the file.
func (s *FileStore) Put(ctx context.Context, entries map[string]models.StoredEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadForWrite()
	if err != nil {
		return err
	}
	for id, entry := range entries {
		current[id] = entry
	}

	raw, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return services.WrapInternal("failed to encode store", err)
	}
	if err := writeFileAtomic(s.path, raw); err != nil {
		return services.NewStoreUnavailableError("failed to write store file", err).
			WithDetail("path", s.path)
	}

	s.logger.Info("store file written",
		zap.String("path", s.path),
		zap.Int("written", len(entries)),
		zap.Int("total", len(current)))
	return nil
}

// loadForWrite treats a missing file as an empty collection.
func (s *FileStore) loadForWrite() (map[string]models.StoredEntry, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]models.StoredEntry), nil
	}
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to read store file", err).
			WithDetail("path", s.path)
	}
	return DecodeCollection(raw)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
