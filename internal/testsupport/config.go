package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"photoimport/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The staging root exists, delays are zero, and the builtin zip expander is
// selected so tests need no external tools.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Immich.APIKey = "test-key"
	cfgVal.Immich.URL = "http://immich.test:2283"
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.ExtractDir = filepath.Join(base, "staging", "_extracted")
	cfgVal.Paths.LockPath = filepath.Join(base, "run", "photoimport.lock")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.Import.DelaySeconds = 0
	cfgVal.Archive.SettleSeconds = 0
	cfgVal.Archive.Tool = config.ArchiveToolBuiltin

	if err := os.MkdirAll(cfgVal.Paths.StagingDir, 0o755); err != nil {
		t.Fatalf("mkdir staging: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAccounts configures per-account credentials.
func WithAccounts(accounts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Accounts = accounts
	}
}

// WithDeleteOnSuccess toggles deletion of uploaded folders and archives.
func WithDeleteOnSuccess(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.DeleteOnSuccess = enabled
	}
}

// WithTakeoutCleanup toggles export bundle normalization.
func WithTakeoutCleanup(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.TakeoutCleanup = enabled
	}
}

// WithHistory enables or disables the run ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the container runtime and the
// unzip tool are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Upload.ContainerRuntime, config.ArchiveToolUnzip}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}

// BaseDir returns the directory that holds a config built by NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
