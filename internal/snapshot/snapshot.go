// Package snapshot maintains the base snapshot: a pristine copy of every
// project file skills may touch, captured before any skill is applied.
//
// Restores during clean and pre-images during apply are read from here, so
// the snapshot is only ever replaced wholesale and never edited in place.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/skillctl/internal/fsops"
	"github.com/danieljhkim/skillctl/internal/gitx"
)

var (
	// ErrNoBase is returned when the snapshot directory has not been captured.
	ErrNoBase = errors.New("no base snapshot found")

	// ErrNotInBase is returned when a path has no base copy.
	ErrNotInBase = errors.New("path not present in base snapshot")
)

// Base is the on-disk base snapshot rooted at a single directory.
type Base struct {
	fs  fsops.FS
	dir string
}

// CaptureResult summarizes a capture.
type CaptureResult struct {
	// Files lists captured paths, slash-separated and sorted.
	Files []string

	// Missing lists include entries that did not exist in the source.
	Missing []string
}

// New creates a Base rooted at dir.
func New(fs fsops.FS, dir string) *Base {
	return &Base{fs: fs, dir: dir}
}

// Dir returns the snapshot directory.
func (b *Base) Dir() string {
	return b.dir
}

// Exists reports whether a snapshot has been captured.
func (b *Base) Exists() (bool, error) {
	return b.fs.Exists(b.dir)
}

// Path returns where rel lives inside the snapshot.
func (b *Base) Path(rel string) string {
	return filepath.Join(b.dir, filepath.FromSlash(rel))
}

// Has reports whether rel has a base copy.
func (b *Base) Has(rel string) (bool, error) {
	if err := b.fs.ValidateRelPath(rel); err != nil {
		return false, err
	}
	info, err := b.fs.Lstat(b.Path(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Read returns the base content of rel.
func (b *Base) Read(rel string) ([]byte, error) {
	if err := b.fs.ValidateRelPath(rel); err != nil {
		return nil, err
	}
	data, err := b.fs.ReadFile(b.Path(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotInBase, rel)
		}
		return nil, fmt.Errorf("failed to read base copy of %s: %w", rel, err)
	}
	return data, nil
}

// Files lists every file in the snapshot as sorted slash-separated paths.
func (b *Base) Files() ([]string, error) {
	exists, err := b.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNoBase
	}

	var files []string
	if err := b.walk(b.dir, "", &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (b *Base) walk(dir, rel string, out *[]string) error {
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name())
		if entry.IsDir() {
			if err := b.walk(filepath.Join(dir, entry.Name()), childRel, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, childRel)
	}
	return nil
}

// Capture replaces the snapshot with the current contents of includes under
// projectRoot. Each include is a file or a directory (conventionally written
// with a trailing slash). Includes that don't exist are reported, not fatal.
func (b *Base) Capture(projectRoot string, includes []string) (*CaptureResult, error) {
	result := &CaptureResult{}

	err := b.replace(func(staging string) error {
		for _, inc := range includes {
			rel := strings.TrimSuffix(inc, "/")
			if err := b.fs.ValidateRelPath(rel); err != nil {
				return fmt.Errorf("invalid base include %q: %w", inc, err)
			}

			src := filepath.Join(projectRoot, filepath.FromSlash(rel))
			exists, err := b.fs.Exists(src)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", src, err)
			}
			if !exists {
				result.Missing = append(result.Missing, inc)
				continue
			}

			if err := b.fs.Copy(src, filepath.Join(staging, filepath.FromSlash(rel))); err != nil {
				return fmt.Errorf("failed to copy %s into base: %w", inc, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Files, err = b.Files(); err != nil {
		return nil, err
	}
	return result, nil
}

// CaptureRef replaces the snapshot with the contents of includes at a git
// revision, leaving the working tree untouched.
func (b *Base) CaptureRef(ctx context.Context, git gitx.GitRepo, repoRoot, ref string, includes []string) (*CaptureResult, error) {
	result := &CaptureResult{}

	err := b.replace(func(staging string) error {
		for _, inc := range includes {
			rel := strings.TrimSuffix(inc, "/")
			if err := b.fs.ValidateRelPath(rel); err != nil {
				return fmt.Errorf("invalid base include %q: %w", inc, err)
			}

			files, err := git.ListTree(ctx, repoRoot, ref, rel)
			if err != nil {
				return fmt.Errorf("failed to list %s at %s: %w", inc, ref, err)
			}
			if len(files) == 0 {
				result.Missing = append(result.Missing, inc)
				continue
			}

			for _, f := range files {
				if err := b.fs.ValidateRelPath(f); err != nil {
					return fmt.Errorf("refusing path %q from %s: %w", f, ref, err)
				}
				content, err := git.Show(ctx, repoRoot, ref, f)
				if err != nil {
					return fmt.Errorf("failed to read %s at %s: %w", f, ref, err)
				}
				if err := b.fs.AtomicWrite(filepath.Join(staging, filepath.FromSlash(f)), content, 0644); err != nil {
					return fmt.Errorf("failed to write base copy of %s: %w", f, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Files, err = b.Files(); err != nil {
		return nil, err
	}
	return result, nil
}

// replace fills a staging directory next to the snapshot and swaps it in
// only once fill succeeds.
func (b *Base) replace(fill func(staging string) error) error {
	staging := b.dir + ".staging"
	if err := b.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := b.fs.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := fill(staging); err != nil {
		_ = b.fs.RemoveAll(staging)
		return err
	}

	if err := b.fs.RemoveAll(b.dir); err != nil {
		_ = b.fs.RemoveAll(staging)
		return fmt.Errorf("failed to remove previous base: %w", err)
	}
	if err := b.fs.Rename(staging, b.dir); err != nil {
		return fmt.Errorf("failed to install base snapshot: %w", err)
	}

	return nil
}
