package core

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// statLocal stats a local locator after expanding ~ and $VAR.
func statLocal(locator string) (os.FileInfo, error) {
	info, err := os.Stat(ExpandPath(locator))
	if err != nil {
		return nil, fmt.Errorf("local source: %w", err)
	}
	return info, nil
}

// localDestName returns the destination name for a local source: archives
// unpack into a directory named after the archive.
func localDestName(locator string) string {
	name := filepath.Base(ExpandPath(strings.TrimRight(locator, "/")))
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// localKind treats archives and directories like repositories: they
// install as a directory tree.
func localKind(locator string) LinkKind {
	if isArchive(locator) {
		return LinkRepository
	}
	if info, err := statLocal(locator); err == nil && info.IsDir() {
		return LinkRepository
	}
	return LinkFile
}

// installLocal copies a local directory, unpacks a .zip archive or copies a
// single file to dest. Work happens in a sibling temp path that is renamed
// into place, so a failed copy never leaves a partial dest.
func installLocal(locator, dest string) (int64, error) {
	src := ExpandPath(locator)
	info, err := statLocal(locator)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	tmp := dest + ".part"
	_ = os.RemoveAll(tmp)

	switch {
	case info.IsDir():
		err = copyDirectory(src, tmp)
	case strings.EqualFold(filepath.Ext(src), ".zip"):
		err = unzip(src, tmp)
	default:
		err = copyFile(src, tmp)
	}
	if err != nil {
		_ = os.RemoveAll(tmp)
		return 0, fmt.Errorf("copying %s: %w", locator, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return 0, fmt.Errorf("moving into place: %w", err)
	}
	return treeSize(dest), nil
}

// unzip extracts an archive into dst. A single top-level directory inside
// the archive is flattened so "ext.zip/ext/…" lands in dst directly.
func unzip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	prefix := commonRoot(r.File)
	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		target := filepath.Join(dst, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// commonRoot returns "dir/" when every entry lives under one top-level directory.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		first, _, ok := strings.Cut(f.Name, "/")
		if !ok {
			return ""
		}
		if root == "" {
			root = first
		} else if root != first {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}

// treeSize returns the total size of regular files under path.
func treeSize(path string) int64 {
	var total int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
