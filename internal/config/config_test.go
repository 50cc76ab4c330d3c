package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testOptions struct {
	Config     string
	Port       string  `toml:"server.port" env:"SERVER_PORT"`
	OutputDir  string  `toml:"recorder.output_dir" env:"RECORDER_OUTPUT_DIR"`
	BitrateMbs float64 `toml:"recorder.bitrate_mbs" env:"RECORDER_BITRATE_MBS"`
	AuthUser   string  `toml:"auth.username" env:"AUTH_USERNAME"`
	PreviewOn  bool    `toml:"preview.enabled" env:"PREVIEW_ENABLED"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9090"

[recorder]
output_dir = "/var/recordings"
bitrate_mbs = 3.5

[preview]
enabled = true
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9090" {
		t.Errorf("Expected port :9090, got %s", opts.Port)
	}
	if opts.OutputDir != "/var/recordings" {
		t.Errorf("Expected output dir /var/recordings, got %s", opts.OutputDir)
	}
	if opts.BitrateMbs != 3.5 {
		t.Errorf("Expected bitrate 3.5, got %f", opts.BitrateMbs)
	}
	if !opts.PreviewOn {
		t.Error("Expected preview enabled")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9090"
`)

	t.Setenv(EnvPrefix+"SERVER_PORT", ":7070")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7070" {
		t.Errorf("Expected env override :7070, got %s", opts.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/config.toml", Port: ":8090"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("Missing config file should not error: %v", err)
	}
	if opts.Port != ":8090" {
		t.Errorf("Expected default preserved, got %s", opts.Port)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "this is not [valid toml")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Error("Expected error for invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		field string
		flag  string
	}{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"OutputDir", "output-dir"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.field); got != tt.flag {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.field, got, tt.flag)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
session = "warn"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Modules["session"] != "warn" {
		t.Errorf("Expected module level warn, got %s", cfg.Modules["session"])
	}
}

func TestWatcherReload(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "info"
`)

	reloaded := make(chan string, 1)
	watcher := NewConfigWatcher(path, func(p string) (string, error) {
		data, err := os.ReadFile(p)
		return string(data), err
	}, discardLogger(), WithDebounce[string](20*time.Millisecond))

	unsub := watcher.OnReload(func(content string) {
		select {
		case reloaded <- content:
		default:
		}
	})
	defer unsub()

	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case content := <-reloaded:
		if content == "" {
			t.Error("Expected reloaded content")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}
