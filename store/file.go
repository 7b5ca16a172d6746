package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phanxgames/badgekit"
)

// ErrInvalidID is returned for badge IDs that cannot be used as file names.
var ErrInvalidID = errors.New("store: invalid badge id")

const layoutExt = ".json"

// FileStore keeps one JSON file per badge in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

// Path returns the file a badge's layout is stored in.
func (f *FileStore) Path(badgeID string) (string, error) {
	if badgeID == "" || badgeID == "." || badgeID == ".." ||
		strings.ContainsAny(badgeID, `/\`) || strings.ContainsRune(badgeID, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, badgeID)
	}
	return filepath.Join(f.Dir, badgeID+layoutExt), nil
}

// Load implements badgekit.LayoutStore.
func (f *FileStore) Load(ctx context.Context, badgeID string) (badgekit.PersistedLayout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Path(badgeID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", badgekit.ErrLayoutNotFound, badgeID)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return badgekit.DecodeLayout(raw)
}

// Save implements badgekit.LayoutStore. The file is replaced atomically.
func (f *FileStore) Save(ctx context.Context, badgeID string, l badgekit.Layout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.Path(badgeID)
	if err != nil {
		return err
	}
	raw, err := badgekit.EncodeLayout(l)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, "."+badgeID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// badgeIDFromPath returns the badge ID a layout file belongs to, or "" for
// files the store does not own.
func badgeIDFromPath(path string) string {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.EqualFold(filepath.Ext(base), layoutExt) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
