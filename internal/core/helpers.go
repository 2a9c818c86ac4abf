package core

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// skipOnCopy lists entry names left behind when a local extension is copied
// onto storage.
var skipOnCopy = map[string]bool{
	".git":               true,
	"__pycache__":        true,
	".DS_Store":          true,
	".ipynb_checkpoints": true,
}

// runWithTimeout starts cmd and kills it once timeout elapses. The combined
// output is returned either way; on timeout it is replaced by a message that
// ClassifyGitError recognizes.
func runWithTimeout(cmd *exec.Cmd, timeout time.Duration) (string, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return "", err
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		return out.String(), err
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-waitErr
		err := fmt.Errorf("command timed out after %s", timeout)
		return err.Error(), err
	}
}

// copyDirectory mirrors the regular files and directories of src into dst.
// Symlinks and special files are not copied.
func copyDirectory(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			return walkErr
		case skipOnCopy[d.Name()] && path != src:
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			return nil
		}
	})
}

// copyFile copies src to dst, keeping the permission bits and creating the
// parent directory.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

func statMode(path string) (fs.FileMode, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.Mode(), true
}

func dirExists(path string) bool {
	mode, ok := statMode(path)
	return ok && mode.IsDir()
}

func fileExists(path string) bool {
	mode, ok := statMode(path)
	return ok && mode.IsRegular()
}

// dirNonEmpty reports whether path is a directory holding at least one entry.
func dirNonEmpty(path string) bool {
	d, err := os.Open(path)
	if err != nil {
		return false
	}
	defer d.Close()
	names, _ := d.Readdirnames(1)
	return len(names) > 0
}

// ExpandPath resolves $VAR references and a leading "~".
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// splitCommand splits a command line on whitespace. Quoting is not supported.
func splitCommand(line string) []string {
	return strings.Fields(line)
}
