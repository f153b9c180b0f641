package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ytanalyzer/internal/config"
)

// WriteJSON writes value as indented JSON, creating parent directories.
func WriteJSON(t testing.TB, path string, value any) {
	t.Helper()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteStaticExport places an exported snapshot file under the static
// directory and returns its path.
func WriteStaticExport(t testing.TB, cfg *config.Config, name string, value any) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.StaticDir, name)
	WriteJSON(t, path, value)
	return path
}
