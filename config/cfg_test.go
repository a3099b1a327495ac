package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Corpus.ManifestName != "manifest.json" {
		t.Errorf("Default manifest name = %q", cfg.Corpus.ManifestName)
	}
	if cfg.Corpus.RenderMode != RenderModeModel {
		t.Errorf("Default render mode = %v, want model", cfg.Corpus.RenderMode)
	}
	if cfg.Export.PageNameTemplate != "{{.Slug}}/index.html" {
		t.Errorf("Default page name template = %q", cfg.Export.PageNameTemplate)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
corpus:
  manifest: deck-manifest.json
  render_mode: raw
server:
  listen: "0.0.0.0:9090"
logging:
  console:
    level: debug
  file:
    level: none
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Corpus.ManifestName != "deck-manifest.json" {
		t.Errorf("ManifestName = %q", cfg.Corpus.ManifestName)
	}
	if cfg.Corpus.RenderMode != RenderModeRaw {
		t.Errorf("RenderMode = %v, want raw", cfg.Corpus.RenderMode)
	}
	if cfg.Server.Listen != "0.0.0.0:9090" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
	// values absent from the file keep template defaults
	if cfg.Corpus.RootModelsName != "models.json" {
		t.Errorf("RootModelsName = %q, want default preserved", cfg.Corpus.RootModelsName)
	}
}

func TestLoadConfiguration_UnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("version: 1\nno_such_section:\n  x: 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("LoadConfiguration() accepted a config with unknown fields")
	}
}

func TestLoadConfiguration_BadRenderMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("version: 1\ncorpus:\n  render_mode: fancy\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("LoadConfiguration() accepted an unknown render mode")
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{"manifest: manifest.json", "render_mode: model", "page_name_template:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() output missing %q:\n%s", want, out)
		}
	}
}

func TestParseRenderMode(t *testing.T) {
	for name, want := range map[string]RenderMode{"raw": RenderModeRaw, "model": RenderModeModel} {
		got, err := ParseRenderMode(name)
		if err != nil {
			t.Fatalf("ParseRenderMode(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("ParseRenderMode(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseRenderMode("fancy"); err == nil {
		t.Error("ParseRenderMode() accepted an unknown name")
	}
}
