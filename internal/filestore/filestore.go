// Package filestore keeps uploaded attachments on local disk.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxStemLen bounds the sanitized part of a storage name.
const maxStemLen = 50

// Store writes attachments under a single directory.
type Store struct {
	dir string
}

// StoredFile is a saved attachment. It satisfies fingerprint.Opener.
type StoredFile struct {
	// Name is the collision-free name on disk, relative to the store directory.
	Name string
	// OriginalName is the client-supplied filename.
	OriginalName string
	Path         string
	Size         int64
}

// Open returns a fresh reader over the stored bytes.
func (f *StoredFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save streams r to disk under a name derived from filename. The file is
// written to a temp path, synced and renamed, so a failed upload never leaves
// a partial file behind.
func (s *Store) Save(r io.Reader, filename string) (*StoredFile, error) {
	name := StorageName(filename)
	fullPath := filepath.Join(s.dir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("sync upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename upload: %w", err)
	}

	return &StoredFile{
		Name:         name,
		OriginalName: filename,
		Path:         fullPath,
		Size:         size,
	}, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload %s: %w", name, err)
	}
	return nil
}

// StorageName turns a client filename into a safe, unique name on disk:
// {stem}_{uuid}.{ext} with the stem reduced to letters, digits, '-' and '_'.
func StorageName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(base)
	stem := sanitize(strings.TrimSuffix(base, ext))
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}

	name := stem + "_" + uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + strings.ToLower(sanitize(ext))
	}
	return name
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
