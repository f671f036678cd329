package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHomeDir(t *testing.T) {
	dir, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir() error = %v", err)
	}
	if filepath.Base(dir) != ".solvehelper" {
		t.Errorf("HomeDir() = %q, want ending with .solvehelper", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("HomeDir() = %q, want absolute path", dir)
	}
}

func TestEnsureHomeDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsureHomeDir()
	if err != nil {
		t.Fatalf("EnsureHomeDir() error = %v", err)
	}
	if dir != filepath.Join(tmpHome, ".solvehelper") {
		t.Errorf("EnsureHomeDir() = %q", dir)
	}
	for _, sub := range []string{"logs", "cache"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("expected %s to exist: %v", sub, err)
		}
	}
}

func TestLoadLocalConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := loadLocalConfigFrom(t.TempDir())
	if err != nil {
		t.Fatalf("loadLocalConfigFrom() error = %v", err)
	}
	if cfg.Server.URL != "http://127.0.0.1:8080" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Practice.DefaultMinutes != 40 {
		t.Errorf("DefaultMinutes = %d; want 40", cfg.Practice.DefaultMinutes)
	}
	if len(cfg.Practice.Thresholds) != 3 {
		t.Errorf("Thresholds = %v", cfg.Practice.Thresholds)
	}
}

func TestLoadLocalConfig_WithFiles(t *testing.T) {
	dir := t.TempDir()
	config := "server:\n  url: https://solve.example.com\nhandle: tourist\npractice:\n  default_minutes: 25\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte("token: abc.def.ghi\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("loadLocalConfigFrom() error = %v", err)
	}
	if cfg.Server.URL != "https://solve.example.com" || cfg.Handle != "tourist" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Practice.DefaultMinutes != 25 {
		t.Errorf("DefaultMinutes = %d; want 25", cfg.Practice.DefaultMinutes)
	}
	if len(cfg.Practice.Thresholds) != 3 {
		t.Errorf("defaults lost for thresholds: %v", cfg.Practice.Thresholds)
	}
	if cfg.Token != "abc.def.ghi" {
		t.Errorf("Token = %q", cfg.Token)
	}
}

func TestLoadLocalConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644)

	if _, err := loadLocalConfigFrom(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLocalConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLocalConfig()
	cfg.Handle = "chokudai"
	cfg.Token = "tok"

	if err := saveLocalConfigTo(dir, cfg); err != nil {
		t.Fatalf("saveLocalConfigTo() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		t.Fatalf("secrets.yaml missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("secrets.yaml mode = %v; want 0600", info.Mode().Perm())
	}

	data, _ := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if string(data) == "" {
		t.Fatal("config.yaml is empty")
	}

	loaded, err := loadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("loadLocalConfigFrom() error = %v", err)
	}
	if loaded.Handle != "chokudai" || loaded.Token != "tok" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestPracticeDBPath(t *testing.T) {
	cfg := DefaultLocalConfig()
	if got := cfg.PracticeDBPath("/home/x/.solvehelper"); got != "/home/x/.solvehelper/practice.db" {
		t.Errorf("PracticeDBPath() = %q", got)
	}
	cfg.Practice.DBPath = "/tmp/p.db"
	if got := cfg.PracticeDBPath("/ignored"); got != "/tmp/p.db" {
		t.Errorf("PracticeDBPath() override = %q", got)
	}
}
