package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfigManager_DefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.AppVersion != VersionLatest {
		t.Errorf("AppVersion = %q, want %q", cfg.AppVersion, VersionLatest)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.Catalog != nil {
		t.Errorf("Catalog = %v, want nil", cfg.Catalog)
	}
	if cfg.Settings.Port != 8188 {
		t.Errorf("Port = %d, want 8188", cfg.Settings.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestConfigManager_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	cfg := DefaultConfig()
	cfg.AppVersion = VersionCustom
	cfg.CustomVersion = "v0.3.10"
	cfg.FolderMode = FolderNew
	cfg.Remember = true
	cfg.Concurrency = 3
	cfg.Catalog = map[string][]string{
		"lora-models": {"https://x.test/style.safetensors"},
	}
	cfg.Settings.StorageRoot = "/mnt/drive"

	if err := cm.Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(cm.ConfigPath()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if _, err := os.Stat(cm.ConfigPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := cm.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigManager_LoadPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	data := `{
		// only a couple of fields
		"remember": true,
		"settings": {"port": 9000,},
	}`
	if err := os.WriteFile(cm.ConfigPath(), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Remember {
		t.Error("Remember = false, want true")
	}
	if cfg.Settings.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Settings.Port)
	}
	if cfg.Settings.Python != "python3" {
		t.Errorf("Python = %q, want default", cfg.Settings.Python)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default", cfg.Concurrency)
	}
}

func TestConfigManager_MalformedCatalogIsDropped(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	data := `{"remember": true, "catalog": "not a map"}`
	if err := os.WriteFile(cm.ConfigPath(), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Catalog != nil {
		t.Errorf("Catalog = %v, want nil", cfg.Catalog)
	}
	if !cfg.Remember {
		t.Error("other fields should still load")
	}
}

func TestConfigManager_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cm.Load(); err == nil {
		t.Error("expected error for corrupt config")
	}
}

func TestConfigManager_SetAndGet(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	if err := cm.Set("settings.port", "9001"); err != nil {
		t.Fatalf("Set(port) error: %v", err)
	}
	if err := cm.Set("remember", "true"); err != nil {
		t.Fatalf("Set(remember) error: %v", err)
	}
	if err := cm.Set("settings.storageRoot", "/mnt/x"); err != nil {
		t.Fatalf("Set(storageRoot) error: %v", err)
	}

	tests := map[string]string{
		"settings.port":         "9001",
		"remember":              "true",
		"settings.storageRoot":  "/mnt/x",
		"settings.mountCommand": "",
	}
	for key, want := range tests {
		got, err := cm.Get(key)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", key, err)
		}
		if got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestConfigManager_SetRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cm := NewConfigManagerWithDir(dir)

	tests := []struct {
		key, value, wantErr string
	}{
		{"nope", "1", "unknown config key"},
		{"settings.port", "abc", "not a number"},
		{"remember", "maybe", "not a boolean"},
		{"concurrency", "11", "concurrency must be between"},
		{"appVersion", "nightly", "appVersion must be"},
		{"folderMode", "existing", ""},
	}
	for _, tt := range tests {
		err := cm.Set(tt.key, tt.value)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("Set(%q, %q) error = %v, want %q", tt.key, tt.value, err, tt.wantErr)
		}
	}

	if _, err := os.Stat(cm.ConfigPath()); err != nil {
		t.Fatalf("config not written after valid Set: %v", err)
	}
	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("rejected Set changed Concurrency to %d", cfg.Concurrency)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"custom without version", func(c *Config) { c.AppVersion = VersionCustom }, false},
		{"custom with version", func(c *Config) { c.AppVersion = VersionCustom; c.CustomVersion = "v1" }, true},
		{"existing without name", func(c *Config) { c.FolderMode = FolderExisting; c.FolderName = "" }, false},
		{"concurrency too low", func(c *Config) { c.Concurrency = 0 }, false},
		{"bad port", func(c *Config) { c.Settings.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestConfigAppRef(t *testing.T) {
	cfg := DefaultConfig()
	if ref := cfg.AppRef(); ref != "" {
		t.Errorf("latest AppRef() = %q, want empty", ref)
	}
	cfg.AppVersion = VersionCustom
	cfg.CustomVersion = "v0.2.0"
	if ref := cfg.AppRef(); ref != "v0.2.0" {
		t.Errorf("custom AppRef() = %q, want v0.2.0", ref)
	}
}
