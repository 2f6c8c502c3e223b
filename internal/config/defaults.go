package config

const (
	defaultConfigPath            = "~/.config/photoimport/config.toml"
	defaultStagingDir            = "~/import"
	defaultExtractDirName        = "_extracted"
	defaultLockPath              = "/tmp/photoimport.lock"
	defaultHistoryDB             = "~/.local/share/photoimport/history.db"
	defaultImmichURL             = "http://immich:2283"
	defaultDelaySeconds          = 5
	defaultUploadMode            = UploadModeContainer
	defaultContainerRuntime      = "docker"
	defaultClientImage           = "ghcr.io/immich-app/immich-cli:latest"
	defaultRequestTimeoutSeconds = 300
	defaultArchiveTool           = ArchiveToolUnzip
	defaultSettleSeconds         = 3
	defaultLockTimeoutSeconds    = 24 * 60 * 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNotifyTimeoutSeconds  = 10
)

// Upload modes.
const (
	UploadModeContainer = "container"
	UploadModeAPI       = "api"
)

// Archive tools.
const (
	ArchiveToolUnzip   = "unzip"
	ArchiveToolBuiltin = "builtin"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LockPath:   defaultLockPath,
			HistoryDB:  defaultHistoryDB,
		},
		Immich: Immich{
			URL: defaultImmichURL,
		},
		Import: Import{
			DelaySeconds:    defaultDelaySeconds,
			DeleteOnSuccess: true,
			TakeoutCleanup:  true,
		},
		Upload: Upload{
			Mode:                  defaultUploadMode,
			ContainerRuntime:      defaultContainerRuntime,
			Image:                 defaultClientImage,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Archive: Archive{
			Tool:          defaultArchiveTool,
			SettleSeconds: defaultSettleSeconds,
		},
		Lock: Lock{
			TimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
	}
}
