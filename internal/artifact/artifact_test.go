package artifact

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func TestFilenameFormat(t *testing.T) {
	a := &Artifact{
		Data:      []byte("abc"),
		Ext:       "webm",
		CreatedAt: time.Date(2026, 3, 10, 14, 30, 45, 123e6, time.UTC),
	}

	got := a.Filename()
	want := "presentation_2026-03-10T14-30-45-123Z.webm"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}

	// No ':' or '.' may survive in the timestamp portion.
	pattern := regexp.MustCompile(`^presentation_[0-9TZ-]+\.webm$`)
	if !pattern.MatchString(got) {
		t.Errorf("Filename %q contains unsanitized characters", got)
	}
}

func TestFilenameDefaultsExtension(t *testing.T) {
	a := &Artifact{CreatedAt: time.Now()}
	if filepath.Ext(a.Filename()) != ".webm" {
		t.Errorf("Expected generic webm extension, got %s", a.Filename())
	}
}

func TestAllowedFilename(t *testing.T) {
	tests := []struct {
		name    string
		allowed bool
	}{
		{"rec.webm", true},
		{"rec.mp4", true},
		{"rec.OGG", true},
		{"rec.avi", false},
		{"rec", false},
		{"rec.", false},
		{".webm", true},
	}
	for _, tt := range tests {
		if got := AllowedFilename(tt.name); got != tt.allowed {
			t.Errorf("AllowedFilename(%q) = %v, want %v", tt.name, got, tt.allowed)
		}
	}
}

func TestStoreSaveAndList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	a := &Artifact{
		RecordingID: "rec-1",
		Data:        []byte("fragment-bytes"),
		Ext:         "webm",
		CreatedAt:   time.Now(),
	}

	filename, err := store.Save(a)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), filename))
	if err != nil {
		t.Fatalf("Saved file not readable: %v", err)
	}
	if string(data) != "fragment-bytes" {
		t.Errorf("Saved bytes mismatch: %q", data)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != filename {
		t.Errorf("Unexpected listing: %+v", entries)
	}
	if entries[0].Size != int64(len(a.Data)) {
		t.Errorf("Expected size %d, got %d", len(a.Data), entries[0].Size)
	}
}

func TestStoreRejectsDisallowedExtension(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.SaveNamed("evil.exe", []byte("x")); err == nil {
		t.Error("Expected rejection of disallowed extension")
	}
}

func TestStoreSanitizesPath(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	filename, err := store.SaveNamed("../../escape.webm", []byte("x"))
	if err != nil {
		t.Fatalf("SaveNamed failed: %v", err)
	}
	if filename != "escape.webm" {
		t.Errorf("Expected sanitized basename, got %s", filename)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "escape.webm")); err != nil {
		t.Errorf("Sanitized file missing: %v", err)
	}
}
