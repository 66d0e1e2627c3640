package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/PitPlan/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := model.DefaultAppConfig()
	cfg.DefaultStandoffDistance = 8.0
	cfg.DefaultPreset = "Quick"
	cfg.DefaultGenetic.Generations = 500
	cfg.RecentProjects = []string{"/tmp/pit1.pitplan", "/tmp/pit2.pitplan"}

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}

	if loaded.DefaultStandoffDistance != 8.0 {
		t.Errorf("expected DefaultStandoffDistance=8.0, got %f", loaded.DefaultStandoffDistance)
	}
	if loaded.DefaultPreset != "Quick" {
		t.Errorf("expected DefaultPreset=Quick, got %s", loaded.DefaultPreset)
	}
	if loaded.DefaultGenetic.Generations != 500 {
		t.Errorf("expected 500 generations, got %d", loaded.DefaultGenetic.Generations)
	}
	if len(loaded.RecentProjects) != 2 {
		t.Errorf("expected 2 recent projects, got %d", len(loaded.RecentProjects))
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	defaults := model.DefaultAppConfig()
	if cfg.DefaultClearanceRadius != defaults.DefaultClearanceRadius {
		t.Errorf("expected default clearance radius %f, got %f", defaults.DefaultClearanceRadius, cfg.DefaultClearanceRadius)
	}
	if cfg.DefaultGenetic != defaults.DefaultGenetic {
		t.Errorf("expected default genetic config, got %+v", cfg.DefaultGenetic)
	}
}

func TestLoadAppConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := os.WriteFile(path, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadAppConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestSaveAppConfigCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dir", "config.json")

	cfg := model.DefaultAppConfig()
	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}
}

func TestLoadAppConfigNilRecentProjects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	// Write config with null recent_projects
	data := []byte(`{"default_standoff_distance":3.2,"recent_projects":null}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.RecentProjects == nil {
		t.Error("RecentProjects should not be nil after loading")
	}
}

func TestLoadAppConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	data := []byte(`{"report_author":"Survey Team","default_genetic":{"generations":999999}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.ReportAuthor != "Survey Team" {
		t.Errorf("expected ReportAuthor=Survey Team, got %s", cfg.ReportAuthor)
	}
	if cfg.DefaultStandoffDistance != model.DefaultAppConfig().DefaultStandoffDistance {
		t.Errorf("missing field should keep its default, got %f", cfg.DefaultStandoffDistance)
	}
	if cfg.DefaultGenetic.Generations != model.MaxGenerations {
		t.Errorf("expected generations clamped to %d, got %d", model.MaxGenerations, cfg.DefaultGenetic.Generations)
	}
	if cfg.DefaultGenetic.PopulationSize != model.DefaultGeneticConfig().PopulationSize {
		t.Errorf("zero population should take the default, got %d", cfg.DefaultGenetic.PopulationSize)
	}
}
