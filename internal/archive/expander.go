package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"photoimport/internal/config"
)

// ErrToolUnavailable reports that the configured expansion tool is missing.
var ErrToolUnavailable = errors.New("archive tool unavailable")

// Expander tests and unpacks one archive format.
type Expander interface {
	Name() string
	// Available returns ErrToolUnavailable when the expander cannot run here.
	Available() error
	Test(ctx context.Context, archivePath string) error
	Extract(ctx context.Context, archivePath, dest string) error
}

// NewExpander returns the expander selected by archive.tool.
func NewExpander(cfg *config.Config) Expander {
	if cfg != nil && cfg.Archive.Tool == config.ArchiveToolBuiltin {
		return Builtin{}
	}
	return UnzipTool{Command: config.ArchiveToolUnzip}
}

// UnzipTool shells out to Info-ZIP unzip.
type UnzipTool struct {
	Command string
}

func (u UnzipTool) binary() string {
	if strings.TrimSpace(u.Command) == "" {
		return config.ArchiveToolUnzip
	}
	return u.Command
}

func (u UnzipTool) Name() string { return u.binary() }

func (u UnzipTool) Available() error {
	if _, err := exec.LookPath(u.binary()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolUnavailable, u.binary(), err)
	}
	return nil
}

func (u UnzipTool) Test(ctx context.Context, archivePath string) error {
	return u.run(ctx, "-tq", archivePath)
}

// Extract never overwrites: -n skips entries that already exist in dest.
func (u UnzipTool) Extract(ctx context.Context, archivePath, dest string) error {
	return u.run(ctx, "-q", "-n", archivePath, "-d", dest)
}

func (u UnzipTool) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, u.binary(), args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(output.String())
		if detail != "" {
			return fmt.Errorf("%s %s: %w: %s", u.binary(), args[0], err, detail)
		}
		return fmt.Errorf("%s %s: %w", u.binary(), args[0], err)
	}
	return nil
}

// Builtin expands zip files with archive/zip and needs no external tool.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) Available() error { return nil }

// Test reads every entry to the end so the stored CRC-32 is verified.
func (Builtin) Test(ctx context.Context, archivePath string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", file.Name, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", file.Name, err)
		}
	}
	return nil
}

func (Builtin) Extract(ctx context.Context, archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	cleanDest := filepath.Clean(dest)
	if err := os.MkdirAll(cleanDest, 0o755); err != nil {
		return err
	}
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryPath(cleanDest, file.Name)
		if err != nil {
			return err
		}
		mode := file.FileInfo().Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := writeEntry(file, target); err != nil {
				return err
			}
		default:
			// Symlinks and devices are not media; skip them.
		}
	}
	return nil
}

// entryPath resolves name inside dest, refusing entries that escape it.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("zip entry %q escapes extraction directory", name)
	}
	return target, nil
}

func writeEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("%s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%s: %w", file.Name, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	if modified := file.Modified; !modified.IsZero() {
		_ = os.Chtimes(target, modified, modified)
	}
	return nil
}
