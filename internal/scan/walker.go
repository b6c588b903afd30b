package scan

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"

	"mediadup/internal/config"
	"mediadup/internal/logging"
	"mediadup/internal/media"
	"mediadup/internal/services"
)

// Walker traverses the configured roots and yields candidate media files.
// It never opens file contents; downstream stages do all reading.
type Walker struct {
	roots          []string
	includeExt     map[string]struct{}
	followSymlinks bool
	ignoreHidden   bool
	logger         *slog.Logger
}

// NewWalker builds a walker from the scan section of cfg.
func NewWalker(cfg *config.Config, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	include := make(map[string]struct{}, len(cfg.Scan.IncludeExt))
	for _, ext := range cfg.Scan.IncludeExt {
		include[strings.ToLower(ext)] = struct{}{}
	}
	return &Walker{
		roots:          append([]string(nil), cfg.Scan.Roots...),
		includeExt:     include,
		followSymlinks: cfg.Scan.FollowSymlinks,
		ignoreHidden:   cfg.Scan.IgnoreHidden,
		logger:         logging.NewComponentLogger(logger, "scan"),
	}
}

// Walk streams one FileRef per matching file. The refs channel closes when
// traversal finishes; a failure that stops the walk arrives on errs. Roots
// are validated before any file is emitted, so a misconfigured root fails
// the scan instead of silently producing an empty result.
func (w *Walker) Walk(ctx context.Context) (<-chan media.FileRef, <-chan error) {
	refs := make(chan media.FileRef, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(refs)
		defer close(errs)

		roots, err := w.resolveRoots()
		if err != nil {
			errs <- err
			return
		}

		visited := make(map[dirKey]struct{})
		for _, root := range roots {
			if err := w.walkDir(ctx, root, visited, refs); err != nil {
				errs <- err
				return
			}
		}
	}()

	return refs, errs
}

func (w *Walker) resolveRoots() ([]string, error) {
	resolved := make([]string, 0, len(w.roots))
	for _, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scan", "resolve root", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scan", "resolve root", abs, err)
		}
		if !info.IsDir() {
			return nil, services.Wrap(services.ErrValidation, "scan", "resolve root", abs,
				errors.New("not a directory"))
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}

// dirKey identifies a directory across symlinks for the cycle guard.
type dirKey struct {
	dev uint64
	ino uint64
}

func (w *Walker) walkDir(ctx context.Context, dir string, visited map[dirKey]struct{}, out chan<- media.FileRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.followSymlinks {
		var st unix.Stat_t
		if err := unix.Stat(dir, &st); err != nil {
			w.logger.Warn("skipping unreadable directory",
				logging.String("path", dir), logging.Error(err))
			return nil
		}
		key := dirKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}
		if _, seen := visited[key]; seen {
			return nil
		}
		visited[key] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("skipping unreadable directory",
			logging.String("path", dir), logging.Error(err))
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if w.ignoreHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.Type()&fs.ModeSymlink != 0 {
			if !w.followSymlinks {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				w.logger.Warn("skipping broken symlink",
					logging.String("path", path), logging.Error(err))
				continue
			}
			if info.IsDir() {
				if err := w.walkDir(ctx, path, visited, out); err != nil {
					return err
				}
				continue
			}
			if err := w.emit(ctx, path, info, out); err != nil {
				return err
			}
			continue
		}

		if entry.IsDir() {
			if err := w.walkDir(ctx, path, visited, out); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.logger.Warn("skipping unstattable file",
				logging.String("path", path), logging.Error(err))
			continue
		}
		if err := w.emit(ctx, path, info, out); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) emit(ctx context.Context, path string, info fs.FileInfo, out chan<- media.FileRef) error {
	if _, ok := w.includeExt[media.Ext(path)]; !ok {
		return nil
	}

	ref := media.FileRef{
		Path:    normalizePath(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Kind:    media.Classify(path),
	}

	select {
	case out <- ref:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// normalizePath canonicalizes the Unicode form of a path so the same photo
// library indexed from a Mac and from a Linux mount keys identically. The
// NFC form is only adopted when the filesystem resolves it to the same
// file; on byte-sensitive filesystems the on-disk spelling wins, keeping
// the stored path openable.
func normalizePath(path string) string {
	if norm.NFC.IsNormalString(path) {
		return path
	}
	normalized := norm.NFC.String(path)
	origInfo, err := os.Stat(path)
	if err != nil {
		return path
	}
	normInfo, err := os.Stat(normalized)
	if err != nil || !os.SameFile(origInfo, normInfo) {
		return path
	}
	return normalized
}
