package saturn

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesRecognizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saturn.conf")
	contents := "# comment\nvariant = gx\nips = 200000\ncontrast = 7\nbogus = ignored\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.variant == nil || *cfg.variant != GX {
		t.Fatalf("variant = %v, want GX", cfg.variant)
	}
	if cfg.ips != 200000 {
		t.Fatalf("ips = %d, want 200000", cfg.ips)
	}
	if cfg.contrast != 7 {
		t.Fatalf("contrast = %d, want 7", cfg.contrast)
	}
}

func TestLoadConfigRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	os.WriteFile(path, []byte("not-a-key-value-line\n"), 0o644)
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected an error for a line with no '='")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/nonexistent/path.conf"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
