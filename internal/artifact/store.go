package artifact

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// allowedExtensions lists the container extensions accepted for saved
// and uploaded recordings.
var allowedExtensions = map[string]bool{
	"webm": true,
	"mp4":  true,
	"ogg":  true,
}

// Entry describes one saved recording on disk.
type Entry struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// Store persists finalized artifacts in a flat output directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir, creating it when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logging.GetLogger("artifacts"),
	}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the artifact into the store under its derived filename.
func (s *Store) Save(a *Artifact) (string, error) {
	return s.SaveNamed(a.Filename(), a.Data)
}

// SaveNamed writes raw recording bytes under the given filename. The
// name is sanitized to its base and the extension must be allowed.
func (s *Store) SaveNamed(filename string, data []byte) (string, error) {
	filename = filepath.Base(filename)
	if !AllowedFilename(filename) {
		return "", fmt.Errorf("file type not allowed: %s", filename)
	}

	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write recording: %w", err)
	}

	s.logger.Info("Recording saved", "filename", filename, "size", len(data))
	return filename, nil
}

// List returns saved recordings, newest first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !AllowedFilename(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Filename: de.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// AllowedFilename reports whether the filename has an accepted
// container extension.
func AllowedFilename(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[idx+1:])]
}
