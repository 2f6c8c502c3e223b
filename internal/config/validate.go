package config

import (
	"errors"
	"fmt"
	"regexp"
)

var accountNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if c.Lock.TimeoutSeconds <= 0 {
		return errors.New("lock.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if len(c.Accounts) == 0 {
		if c.Immich.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("immich.api_key is required. Set IMPORT_API_KEY (or IMPORT_USER_<NAME>) or edit %s (create with 'photoimport config init')", defaultPath)
		}
		return nil
	}
	for name := range c.Accounts {
		if !accountNamePattern.MatchString(name) {
			return fmt.Errorf("accounts.%s: account names must be lowercase letters, digits, '.', '_' or '-'", name)
		}
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.DelaySeconds < 0 {
		return errors.New("import.delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.Mode {
	case UploadModeContainer, UploadModeAPI:
	default:
		return fmt.Errorf("upload.mode: unsupported value %q (use %q or %q)", c.Upload.Mode, UploadModeContainer, UploadModeAPI)
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Tool {
	case ArchiveToolUnzip, ArchiveToolBuiltin:
	default:
		return fmt.Errorf("archive.tool: unsupported value %q (use %q or %q)", c.Archive.Tool, ArchiveToolUnzip, ArchiveToolBuiltin)
	}
	if c.Archive.SettleSeconds < 0 {
		return errors.New("archive.settle_seconds must be >= 0")
	}
	return nil
}
