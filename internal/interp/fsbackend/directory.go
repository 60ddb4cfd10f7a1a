// Package fsbackend provides a sandboxed-directory implementation of interp.Filesystem (spec §6):
// a real directory on disk, scoped so that no path can escape its root, usable by a host that
// wants scripts to read/write real files without handing them an unrestricted os.* surface.
package fsbackend

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/atime"
	"github.com/karrick/godirwalk"
)

// ErrOutsideRoot is returned when a requested path would resolve outside the sandboxed root.
var ErrOutsideRoot = fmt.Errorf("fsbackend: path escapes sandbox root")

// ErrNotFound mirrors interp.ErrNotFound (same message) without importing the interp package.
// interp's module loader does not compare the two; it only puts err.Error() into the ImportError
// it raises.
var ErrNotFound = fmt.Errorf("not found")

// Directory is a Filesystem backend rooted at a real directory. Every path a caller supplies is
// resolved relative to Root and checked against directory traversal before touching disk.
type Directory struct {
	Root string
}

// NewDirectory constructs a Directory backend rooted at root. root must already exist.
func NewDirectory(root string) (*Directory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fsbackend: %s is not a directory", abs)
	}
	return &Directory{Root: abs}, nil
}

// resolve joins path onto the sandbox root and verifies the result is still inside it, rejecting
// any `..`-based escape attempt.
func (d *Directory) resolve(path string) (string, error) {
	full := filepath.Join(d.Root, path)
	rel, err := filepath.Rel(d.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

func (d *Directory) Read(path string) ([]byte, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *Directory) Write(path string, data []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (d *Directory) Exists(path string) bool {
	full, err := d.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (d *Directory) Delete(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// List walks the sandbox (via godirwalk, which avoids the extra per-entry Lstat filepath.Walk
// pays for) and returns every regular file whose root-relative path starts with prefix, sorted for
// deterministic iteration.
func (d *Directory) List(prefix string) []string {
	var out []string
	_ = godirwalk.Walk(d.Root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(d.Root, osPathname)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if strings.HasPrefix(rel, prefix) {
				out = append(out, rel)
			}
			return nil
		},
	})
	sort.Strings(out)
	return out
}

// AccessedAt reports path's last-access time via github.com/djherbis/atime, letting a host
// implement cache eviction or audit policies atop the sandbox without reaching for syscall-level
// stat fields itself.
func (d *Directory) AccessedAt(path string) (time.Time, error) {
	full, err := d.resolve(path)
	if err != nil {
		return time.Time{}, err
	}
	return atime.Stat(full)
}
