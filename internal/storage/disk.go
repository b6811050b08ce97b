// AngelaMos | 2026
// disk.go

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

// Disk stores upload artifacts as flat files under a single directory.
type Disk struct {
	dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}

	return &Disk{dir: abs}, nil
}

func (d *Disk) Dir() string {
	return d.dir
}

// Put writes content under key. It goes through a temp file so a reader
// never sees a partially written artifact.
func (d *Disk) Put(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := d.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, bytes.NewReader(content)); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write artifact: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("commit artifact: %w", err)
	}

	return nil
}

// Open returns the artifact for reading. A missing artifact is ErrNotFound.
func (d *Disk) Open(ctx context.Context, key string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is confined to d.dir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open artifact: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return f, nil
}

// Remove deletes the artifact. Removing a missing artifact is not an error.
func (d *Disk) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := d.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}

	return nil
}

// Ping reports whether the upload directory is still present and a
// directory. Readiness uses it.
func (d *Disk) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(d.dir)
	if err != nil {
		return fmt.Errorf("stat upload dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload dir %s is not a directory", d.dir)
	}
	return nil
}

func (d *Disk) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("artifact key %q: %w", key, core.ErrInvalidInput)
	}
	return filepath.Join(d.dir, key), nil
}

// NewKey builds a storage key of the form <unix-millis>-<random>-<name>.
func NewKey(originalName string) string {
	//nolint:gosec // G404: uniqueness suffix, not a secret
	suffix := rand.Int64N(1_000_000_000)
	return fmt.Sprintf(
		"%d-%d-%s",
		time.Now().UnixMilli(),
		suffix,
		SanitizeName(originalName),
	)
}

// SanitizeName strips directories and characters that are awkward on disk.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return tail(name, maxNameBytes)
}

// maxNameBytes leaves room for the key prefix within the 255 byte limit
// most filesystems put on a single name.
const maxNameBytes = 200

// tail keeps the last n bytes of s, starting on a rune boundary so the
// extension survives and no character is split.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
