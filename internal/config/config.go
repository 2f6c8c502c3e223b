package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains filesystem locations used by a run.
type Paths struct {
	StagingDir string `toml:"staging_dir" yaml:"staging_dir"`
	ExtractDir string `toml:"extract_dir" yaml:"extract_dir"`
	LockPath   string `toml:"lock_path" yaml:"lock_path"`
	LogFile    string `toml:"log_file" yaml:"log_file"`
	HistoryDB  string `toml:"history_db" yaml:"history_db"`
}

// Immich contains the photo server endpoint and the default credential.
type Immich struct {
	URL    string `toml:"url" yaml:"url"`
	APIKey string `toml:"api_key" yaml:"api_key"`
}

// Import contains the knobs that decide what happens to staged payloads.
type Import struct {
	DelaySeconds    int  `toml:"delay_seconds" yaml:"delay_seconds"`
	DeleteOnSuccess bool `toml:"delete_on_success" yaml:"delete_on_success"`
	TakeoutCleanup  bool `toml:"takeout_cleanup" yaml:"takeout_cleanup"`
}

// Upload contains configuration for the external upload client.
type Upload struct {
	Mode                  string `toml:"mode" yaml:"mode"`
	ContainerRuntime      string `toml:"container_runtime" yaml:"container_runtime"`
	Image                 string `toml:"image" yaml:"image"`
	Network               string `toml:"network" yaml:"network"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// Archive contains configuration for archive expansion.
type Archive struct {
	Tool          string `toml:"tool" yaml:"tool"`
	SettleSeconds int    `toml:"settle_seconds" yaml:"settle_seconds"`
}

// Lock contains configuration for the single-instance lock.
type Lock struct {
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Notifications contains configuration for ntfy run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	// NotifyEmptyRuns also reports runs that found nothing to import.
	NotifyEmptyRuns bool `toml:"notify_empty_runs" yaml:"notify_empty_runs"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Config encapsulates all configuration values for photoimport.
//
// Configuration sections by subsystem:
//   - Paths: staging root, extraction scratch, lock, log file, history database
//   - Immich: photo server URL and default API key
//   - Accounts: optional per-user credentials, each owning <staging>/<name>
//   - Import: backpressure delay, delete-on-success, Takeout cleanup
//   - Upload: container runtime or direct API upload client settings
//   - Archive: expansion tool and in-flight settle interval
//   - Lock: staleness timeout
//   - Logging: log format and level
//   - History: SQLite run ledger toggle
//   - Notifications: optional ntfy topic for run summaries
type Config struct {
	Paths    Paths             `toml:"paths" yaml:"paths"`
	Immich   Immich            `toml:"immich" yaml:"immich"`
	Accounts map[string]string `toml:"accounts" yaml:"accounts"`
	Import   Import            `toml:"import" yaml:"import"`
	Upload   Upload            `toml:"upload" yaml:"upload"`
	Archive  Archive           `toml:"archive" yaml:"archive"`
	Lock     Lock              `toml:"lock" yaml:"lock"`
	Logging  Logging           `toml:"logging" yaml:"logging"`
	History  History           `toml:"history" yaml:"history"`

	Notifications Notifications `toml:"notifications" yaml:"notifications"`
}

// Account is a staging subtree paired with the credential used to upload it.
type Account struct {
	Name       string
	StagingDir string
	ExtractDir string
	APIKey     string
}

// Label is the account name, or "default" for the anonymous account.
func (a Account) Label() string {
	if a.Name == "" {
		return "default"
	}
	return a.Name
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// LoadOptions tunes where Load looks for settings beyond the config file.
type LoadOptions struct {
	// EnvFile is an optional dotenv file merged into the process environment
	// before IMPORT_* overrides are applied. Existing variables win.
	EnvFile string
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions is Load with an optional dotenv file.
func LoadWithOptions(path string, opts LoadOptions) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if envFile := strings.TrimSpace(opts.EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, "", false, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photoimport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the pipeline writes to. The staging
// root is deliberately not created: a missing staging root usually means the
// share is not mounted, which preflight reports as a configuration error.
func (c *Config) EnsureDirectories() error {
	for _, file := range []string{c.Paths.LockPath, c.Paths.LogFile, c.Paths.HistoryDB} {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if dir := filepath.Dir(file); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// StagingAccounts returns the staging subtrees to process, sorted by name. Without
// configured accounts the whole staging root is a single anonymous account
// using immich.api_key. Each account extracts archives into its own
// subdirectory of the extraction scratch directory.
func (c *Config) StagingAccounts() []Account {
	if len(c.Accounts) == 0 {
		return []Account{{
			StagingDir: c.Paths.StagingDir,
			ExtractDir: c.Paths.ExtractDir,
			APIKey:     c.Immich.APIKey,
		}}
	}
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	accounts := make([]Account, 0, len(names))
	for _, name := range names {
		accounts = append(accounts, Account{
			Name:       name,
			StagingDir: filepath.Join(c.Paths.StagingDir, name),
			ExtractDir: filepath.Join(c.Paths.ExtractDir, name),
			APIKey:     c.Accounts[name],
		})
	}
	return accounts
}

// Delay returns the backpressure pause between folder uploads.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Import.DelaySeconds) * time.Second
}

// LockTimeout returns the age after which a held lock is considered stale.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutSeconds) * time.Second
}

// SettleInterval returns the wait between the two archive size observations.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.Archive.SettleSeconds) * time.Second
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-file HTTP timeout used in api upload mode.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Upload.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML with secrets masked.
func (c *Config) Encode() (string, error) {
	masked := *c
	masked.Immich.APIKey = maskSecret(c.Immich.APIKey)
	if len(c.Accounts) > 0 {
		masked.Accounts = make(map[string]string, len(c.Accounts))
		for name, key := range c.Accounts {
			masked.Accounts[name] = maskSecret(key)
		}
	}
	data, err := toml.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
