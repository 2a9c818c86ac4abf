package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const mountTimeout = 2 * time.Minute

// ErrStorageUnreachable is returned when the storage root cannot be reached.
var ErrStorageUnreachable = errors.New("storage root is unreachable")

// EnsureStorage checks that root is a reachable directory. When it is not
// and mountCommand is set, the command runs once before checking again.
func EnsureStorage(ctx context.Context, root, mountCommand string) error {
	if dirExists(root) {
		return nil
	}
	argv := splitCommand(mountCommand)
	if len(argv) == 0 {
		return fmt.Errorf("%w: %s (no mount command configured)", ErrStorageUnreachable, root)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := runWithTimeout(cmd, mountTimeout)
	if err != nil {
		return fmt.Errorf("%w: mount command failed: %s", ErrStorageUnreachable, lastLine(output))
	}
	if !dirExists(root) {
		return fmt.Errorf("%w: %s still missing after mount", ErrStorageUnreachable, root)
	}
	return nil
}

// ResolveDestination picks the application folder under the storage root.
func ResolveDestination(cfg *Config, now time.Time) (string, error) {
	root := ExpandPath(cfg.Settings.StorageRoot)
	switch cfg.FolderMode {
	case FolderNew:
		return filepath.Join(root, "ComfyUI_"+now.Format("20060102_150405")), nil
	case FolderExisting:
		if cfg.FolderName == "" {
			return "", fmt.Errorf("no existing folder name given")
		}
		dest := filepath.Join(root, cfg.FolderName)
		if !dirExists(dest) {
			return "", fmt.Errorf("folder %s does not exist", dest)
		}
		return dest, nil
	default:
		name := cfg.FolderName
		if name == "" {
			name = "ComfyUI"
		}
		return filepath.Join(root, name), nil
	}
}

// StorageRootOf returns the expanded storage root.
func StorageRootOf(cfg *Config) string {
	return ExpandPath(cfg.Settings.StorageRoot)
}

// ensureDir creates dir if missing.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
