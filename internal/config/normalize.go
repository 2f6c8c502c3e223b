package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const accountEnvPrefix = "IMPORT_USER_"

type envString struct {
	keys   []string
	target *string
}

type envInt struct {
	key    string
	target *int
}

type envBool struct {
	key    string
	target *bool
}

// applyEnv overlays IMPORT_* environment variables onto the config.
func (c *Config) applyEnv() error {
	strs := []envString{
		{[]string{"IMPORT_STAGING_DIR"}, &c.Paths.StagingDir},
		{[]string{"IMPORT_EXTRACT_DIR"}, &c.Paths.ExtractDir},
		{[]string{"IMPORT_LOCK_PATH"}, &c.Paths.LockPath},
		{[]string{"IMPORT_LOG_FILE"}, &c.Paths.LogFile},
		{[]string{"IMPORT_HISTORY_DB"}, &c.Paths.HistoryDB},
		{[]string{"IMPORT_IMMICH_URL"}, &c.Immich.URL},
		{[]string{"IMPORT_API_KEY", "IMMICH_API_KEY"}, &c.Immich.APIKey},
		{[]string{"IMPORT_UPLOAD_MODE"}, &c.Upload.Mode},
		{[]string{"IMPORT_CONTAINER_RUNTIME"}, &c.Upload.ContainerRuntime},
		{[]string{"IMPORT_CLIENT_IMAGE"}, &c.Upload.Image},
		{[]string{"IMPORT_CONTAINER_NETWORK"}, &c.Upload.Network},
		{[]string{"IMPORT_ARCHIVE_TOOL"}, &c.Archive.Tool},
		{[]string{"IMPORT_LOG_FORMAT"}, &c.Logging.Format},
		{[]string{"IMPORT_LOG_LEVEL"}, &c.Logging.Level},
		{[]string{"IMPORT_NTFY_TOPIC"}, &c.Notifications.NtfyTopic},
	}
	for _, entry := range strs {
		for _, key := range entry.keys {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				*entry.target = strings.TrimSpace(value)
				break
			}
		}
	}

	ints := []envInt{
		{"IMPORT_DELAY_SECONDS", &c.Import.DelaySeconds},
		{"IMPORT_REQUEST_TIMEOUT", &c.Upload.RequestTimeoutSeconds},
		{"IMPORT_SETTLE_SECONDS", &c.Archive.SettleSeconds},
		{"IMPORT_LOCK_TIMEOUT", &c.Lock.TimeoutSeconds},
		{"IMPORT_NTFY_TIMEOUT", &c.Notifications.RequestTimeoutSeconds},
	}
	for _, entry := range ints {
		value, ok := os.LookupEnv(entry.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: expected integer seconds, got %q", entry.key, value)
		}
		*entry.target = parsed
	}

	bools := []envBool{
		{"IMPORT_DELETE_ON_SUCCESS", &c.Import.DeleteOnSuccess},
		{"IMPORT_TAKEOUT_CLEANUP", &c.Import.TakeoutCleanup},
		{"IMPORT_HISTORY_ENABLED", &c.History.Enabled},
		{"IMPORT_NOTIFY_EMPTY_RUNS", &c.Notifications.NotifyEmptyRuns},
	}
	for _, entry := range bools {
		value, ok := os.LookupEnv(entry.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
		*entry.target = parsed
	}

	for _, pair := range os.Environ() {
		key, value, found := strings.Cut(pair, "=")
		if !found || !strings.HasPrefix(key, accountEnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, accountEnvPrefix))
		if name == "" || strings.TrimSpace(value) == "" {
			continue
		}
		if c.Accounts == nil {
			c.Accounts = make(map[string]string)
		}
		c.Accounts[name] = strings.TrimSpace(value)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %q", value)
	}
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImmich()
	c.normalizeAccounts()
	c.normalizeUpload()
	c.normalizeArchive()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExtractDir) == "" {
		c.Paths.ExtractDir = filepath.Join(c.Paths.StagingDir, defaultExtractDirName)
	}
	if c.Paths.ExtractDir, err = expandPath(c.Paths.ExtractDir); err != nil {
		return fmt.Errorf("paths.extract_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	if c.Paths.LogFile, err = expandPath(strings.TrimSpace(c.Paths.LogFile)); err != nil {
		return fmt.Errorf("paths.log_file: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeImmich() {
	c.Immich.URL = strings.TrimRight(strings.TrimSpace(c.Immich.URL), "/")
	if c.Immich.URL == "" {
		c.Immich.URL = defaultImmichURL
	}
	c.Immich.APIKey = strings.TrimSpace(c.Immich.APIKey)
}

func (c *Config) normalizeAccounts() {
	if len(c.Accounts) == 0 {
		c.Accounts = nil
		return
	}
	normalized := make(map[string]string, len(c.Accounts))
	for name, key := range c.Accounts {
		name = strings.ToLower(strings.TrimSpace(name))
		key = strings.TrimSpace(key)
		if name == "" || key == "" {
			continue
		}
		normalized[name] = key
	}
	if len(normalized) == 0 {
		normalized = nil
	}
	c.Accounts = normalized
}

func (c *Config) normalizeUpload() {
	c.Upload.Mode = strings.ToLower(strings.TrimSpace(c.Upload.Mode))
	if c.Upload.Mode == "" {
		c.Upload.Mode = defaultUploadMode
	}
	c.Upload.ContainerRuntime = strings.TrimSpace(c.Upload.ContainerRuntime)
	if c.Upload.ContainerRuntime == "" {
		c.Upload.ContainerRuntime = defaultContainerRuntime
	}
	c.Upload.Image = strings.TrimSpace(c.Upload.Image)
	if c.Upload.Image == "" {
		c.Upload.Image = defaultClientImage
	}
	c.Upload.Network = strings.TrimSpace(c.Upload.Network)
	if c.Upload.RequestTimeoutSeconds <= 0 {
		c.Upload.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Tool = strings.ToLower(strings.TrimSpace(c.Archive.Tool))
	if c.Archive.Tool == "" {
		c.Archive.Tool = defaultArchiveTool
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}
