package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	storeerrors "github.com/abgdnv/shopbot/internal/errors"
)

// FileStore implements DocumentStore on top of a single local JSON file.
// All mutations are serialized behind one mutex so that two concurrent
// checkouts cannot both validate against stale stock and oversell.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a DocumentStore backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the full document from the backing file. If the file does not
// exist yet, an empty document is created, persisted and returned.
// Returns ErrPersistence for unreadable or malformed content.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save overwrites the backing file with the given document.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

// Mutate loads the document, applies fn and writes the result back, all under
// the store mutex. The write is skipped entirely when fn fails, so a rejected
// mutation can never leave partial state behind.
func (s *FileStore) Mutate(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *FileStore) load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc := NewDocument()
			if err := s.save(ctx, doc); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read store file %s: %w", s.path, storeerrors.ErrPersistence)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("malformed store file %s: %w", s.path, storeerrors.ErrPersistence)
	}
	if doc.Products == nil {
		doc.Products = make(map[string]Product)
	}
	if doc.Carts == nil {
		doc.Carts = make(map[string]Cart)
	}
	return &doc, nil
}

// save writes the document to a temp file in the same directory and renames
// it over the target, so a crash mid-write cannot truncate the store.
func (s *FileStore) save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", storeerrors.ErrPersistence)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file in %s: %w", dir, storeerrors.ErrPersistence)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", storeerrors.ErrPersistence)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", storeerrors.ErrPersistence)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file %s: %w", s.path, storeerrors.ErrPersistence)
	}
	return nil
}
