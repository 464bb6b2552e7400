package plist

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	hplist "howett.net/plist"
)

var (
	// ErrDocumentNotFound is returned when the document file does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrParse is returned when the document exists but is not a valid property list.
	ErrParse = errors.New("document could not be parsed")
)

// BackupSuffix is appended to a document's file name to form its backup path.
const BackupSuffix = ".bak"

// FileStore reads and writes property-list documents on the local filesystem.
// It remembers the on-disk format of every opened document so writes keep
// XML documents XML and binary documents binary.
type FileStore struct {
	mu      sync.Mutex
	formats map[string]int
	logger  zerolog.Logger
}

// NewFileStore creates a new file-backed store.
func NewFileStore(logger zerolog.Logger) *FileStore {
	return &FileStore{
		formats: make(map[string]int),
		logger:  logger.With().Str("component", "plist-store").Logger(),
	}
}

// Path returns the file path of the document identified by dir and name.
func Path(dir, name string) string {
	if filepath.Ext(name) == "" {
		name += ".plist"
	}
	return filepath.Join(dir, name)
}

// BackupPath returns the backup file path for the document identified by dir and name.
func BackupPath(dir, name string) string {
	return Path(dir, name) + BackupSuffix
}

// Open reads and parses the document, then creates its backup.
// No backup is left behind when Open fails.
func (s *FileStore) Open(dir, name string) (Document, error) {
	path := Path(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, format, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	if err := writeFileAtomic(BackupPath(dir, name), data); err != nil {
		return nil, fmt.Errorf("failed to back up %s: %w", path, err)
	}

	s.mu.Lock()
	s.formats[path] = format
	s.mu.Unlock()

	s.logger.Debug().
		Str("path", path).
		Int("keys", len(doc)).
		Msg("Opened document")

	return doc, nil
}

// Write serializes the document and replaces the file at dir/name.
func (s *FileStore) Write(dir, name string, doc Document) error {
	path := Path(dir, name)

	s.mu.Lock()
	format, ok := s.formats[path]
	s.mu.Unlock()
	if !ok {
		format = hplist.XMLFormat
	}

	data, err := Encode(doc, format)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Wrote document")

	return nil
}

// CleanupBackup removes the backup of dir/name. When restore is true the
// backup is first copied back over the document. A missing backup is not
// an error, so calling CleanupBackup repeatedly is safe.
func (s *FileStore) CleanupBackup(dir, name string, restore bool) error {
	backup := BackupPath(dir, name)

	if restore {
		data, err := os.ReadFile(backup)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to read backup %s: %w", backup, err)
		}
		if err := writeFileAtomic(Path(dir, name), data); err != nil {
			return fmt.Errorf("failed to restore %s: %w", Path(dir, name), err)
		}
		s.logger.Info().Str("path", Path(dir, name)).Msg("Restored document from backup")
	}

	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove backup %s: %w", backup, err)
	}
	return nil
}

// HasBackup reports whether a backup exists for dir/name.
func HasBackup(dir, name string) bool {
	_, err := os.Stat(BackupPath(dir, name))
	return err == nil
}

// Decode parses property-list data in any supported format. Empty input
// decodes to an empty XML document.
func Decode(data []byte) (Document, int, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), hplist.XMLFormat, nil
	}

	var raw map[string]any
	format, err := hplist.Unmarshal(data, &raw)
	if err != nil {
		return nil, hplist.InvalidFormat, err
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return Document(raw), format, nil
}

// Encode serializes the document in the given format.
func Encode(doc Document, format int) ([]byte, error) {
	if doc == nil {
		doc = New()
	}
	if format == hplist.XMLFormat {
		return hplist.MarshalIndent(map[string]any(doc), format, "\t")
	}
	return hplist.Marshal(map[string]any(doc), format)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
