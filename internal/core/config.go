package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	configDirName  = ".ducnote"
	configFileName = "config.json"

	// MinConcurrency and MaxConcurrency bound the download concurrency factor.
	MinConcurrency     = 1
	MaxConcurrency     = 10
	DefaultConcurrency = 5
)

// ConfigManager handles reading and writing the DucNote configuration.
type ConfigManager struct {
	configDir string
	mu        sync.RWMutex
}

// NewConfigManager creates a ConfigManager using the default config path (~/.ducnote/).
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &ConfigManager{
		configDir: filepath.Join(home, configDirName),
	}, nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config directory.
// Useful for testing.
func NewConfigManagerWithDir(dir string) *ConfigManager {
	return &ConfigManager{configDir: dir}
}

// ConfigDir returns the configuration directory path.
func (cm *ConfigManager) ConfigDir() string {
	return cm.configDir
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	return filepath.Join(cm.configDir, configFileName)
}

// HistoryPath returns the path of the run history database.
func (cm *ConfigManager) HistoryPath() string {
	return filepath.Join(cm.configDir, "history.db")
}

// LogPath returns the path of the log file.
func (cm *ConfigManager) LogPath() string {
	return filepath.Join(cm.configDir, "ducnote.log")
}

// Load reads the config from disk. Returns default config if file doesn't exist.
// Persisted values replace defaults field by field. A persisted catalog that
// cannot be decoded is dropped so the built-in catalog applies.
// Comments and trailing commas are accepted.
func (cm *ConfigManager) Load() (*Config, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := os.ReadFile(cm.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := defaultConfig()
	type plain Config
	aux := struct {
		*plain
		Catalog json.RawMessage `json:"catalog,omitempty"`
	}{plain: (*plain)(cfg)}
	if err := json.Unmarshal(std, &aux); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Catalog = nil
	if len(aux.Catalog) > 0 {
		var catalog map[string][]string
		if err := json.Unmarshal(aux.Catalog, &catalog); err == nil {
			cfg.Catalog = catalog
		}
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (cm *ConfigManager) Save(cfg *Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return cm.write(data)
}

// write stores data atomically: temp file then rename. Caller holds the lock.
func (cm *ConfigManager) write(data []byte) error {
	if err := os.MkdirAll(cm.configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	tmpPath := cm.ConfigPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, cm.ConfigPath()); err != nil {
		_ = os.Remove(tmpPath) // clean up on failure
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Get returns the value at a dotted key path (e.g. "settings.port") as text.
func (cm *ConfigManager) Get(key string) (string, error) {
	cfg, err := cm.Load()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		if isKnownKey(key) {
			return "", nil
		}
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return res.String(), nil
}

// Set updates a single dotted key path in the stored config. The value is
// converted to the key's type (number, bool or string) and the result is
// validated before it is written.
func (cm *ConfigManager) Set(key, value string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	cfg, err := cm.Load()
	if err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	typed, err := convertValue(gjson.GetBytes(templateJSON(), key), value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	data, err = sjson.SetBytes(data, key, typed)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	updated, err := parseConfig(data)
	if err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	out, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return cm.write(out)
}

// templateJSON is a fully populated config used to discover key types.
func templateJSON() []byte {
	cfg := defaultConfig()
	cfg.CustomVersion = "v0"
	cfg.FolderName = "x"
	cfg.Settings.WorkflowDir = "x"
	cfg.Settings.MountCommand = "x"
	cfg.Settings.TunnelCommand = "x"
	cfg.Settings.Accelerator = "x"
	data, _ := json.Marshal(cfg)
	return data
}

func isKnownKey(key string) bool {
	res := gjson.GetBytes(templateJSON(), key)
	return res.Exists() && !res.IsObject() && !res.IsArray()
}

func convertValue(current gjson.Result, value string) (any, error) {
	switch current.Type {
	case gjson.Number:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return n, nil
	case gjson.True, gjson.False:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

// Validate reports settings that would make an orchestration run fail.
func (c *Config) Validate() error {
	switch c.AppVersion {
	case VersionLatest:
	case VersionCustom:
		if c.CustomVersion == "" {
			return fmt.Errorf("customVersion is required when appVersion is %q", VersionCustom)
		}
	default:
		return fmt.Errorf("appVersion must be %q or %q, got %q", VersionLatest, VersionCustom, c.AppVersion)
	}
	switch c.FolderMode {
	case FolderFixed, FolderNew:
	case FolderExisting:
		if c.FolderName == "" {
			return fmt.Errorf("folderName is required when folderMode is %q", FolderExisting)
		}
	default:
		return fmt.Errorf("folderMode must be %q, %q or %q, got %q", FolderFixed, FolderNew, FolderExisting, c.FolderMode)
	}
	if c.Concurrency < MinConcurrency || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between %d and %d, got %d", MinConcurrency, MaxConcurrency, c.Concurrency)
	}
	if c.Settings.Port <= 0 || c.Settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Settings.Port)
	}
	return nil
}

// AppRef returns the branch or tag to check out, empty for the default branch.
func (c *Config) AppRef() string {
	if c.AppVersion == VersionCustom {
		return c.CustomVersion
	}
	return ""
}

func (c *Config) normalize() {
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Settings.ReadyTimeoutSeconds <= 0 {
		c.Settings.ReadyTimeoutSeconds = 300
	}
	if c.AppVersion == "" {
		c.AppVersion = VersionLatest
	}
	if c.FolderMode == "" {
		c.FolderMode = FolderFixed
	}
}

func defaultConfig() *Config {
	return &Config{
		AppVersion:  VersionLatest,
		FolderMode:  FolderFixed,
		FolderName:  "ComfyUI",
		Remember:    false,
		Concurrency: DefaultConcurrency,
		Settings: Settings{
			StorageRoot:         "/content/drive/MyDrive",
			AppRepo:             "https://github.com/comfyanonymous/ComfyUI",
			Python:              "python3",
			Host:                "127.0.0.1",
			Port:                8188,
			TunnelCommand:       "cloudflared tunnel --url http://{host}:{port}",
			ReadyTimeoutSeconds: 300,
		},
	}
}

// DefaultConfig returns a fresh default configuration.
func DefaultConfig() *Config {
	return defaultConfig()
}
