package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"photoimport/internal/config"
	"photoimport/internal/logging"
	"photoimport/internal/services"
)

type commandContext struct {
	configFlag   *string
	envFileFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, envFileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		envFileFlag:  envFileFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.LoadWithOptions(flagValue(c.configFlag), config.LoadOptions{
			EnvFile: flagValue(c.envFileFlag),
		})
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", path, err)
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// logger builds the process logger from the loaded config.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "logging", "init", cfg.Paths.LogFile, err)
	}
	return logger, nil
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
