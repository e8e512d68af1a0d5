// Package producer writes dated archives of a target's source directory.
package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raoulx24/dir-archiver/internal/archive"
	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/fs"
)

// Producer creates one archive per target per calendar date.
type Producer struct {
	fs     fs.FS
	log    *slog.Logger
	format string
}

// New creates a producer writing the given container format. A nil
// filesystem uses the OS.
func New(format string, filesystem fs.FS, log *slog.Logger) *Producer {
	if filesystem == nil {
		filesystem = fs.New()
	}
	if log == nil {
		log = slog.Default()
	}
	if format == "" {
		format = config.FormatZip
	}
	return &Producer{
		fs:     filesystem,
		log:    log.With("component", "producer"),
		format: format,
	}
}

// Format is the container format this producer writes.
func (p *Producer) Format() string {
	return p.format
}

// Create writes the archive of target dated on date. When that archive
// already exists it is returned with created=false and nothing is written.
// The archive is written to a temporary name and renamed into place, so a
// crash never leaves a partial file under the final name.
func (p *Producer) Create(ctx context.Context, target config.Target, date time.Time) (archive.Archive, bool, error) {
	dir := target.ArchiveDir()
	name := archive.FileName(target.Name(), date, p.format)
	finalPath := filepath.Join(dir, name)

	if a, err := p.stat(finalPath, target); err == nil {
		p.log.Debug("archive already exists", "path", finalPath)
		return a, false, nil
	} else if !errors.Is(err, iofs.ErrNotExist) {
		return archive.Archive{}, false, fmt.Errorf("checking %s: %w", finalPath, err)
	}

	src, err := os.Stat(target.Path)
	if err != nil {
		return archive.Archive{}, false, fmt.Errorf("source %s: %w", target.Path, err)
	}
	if !src.IsDir() {
		return archive.Archive{}, false, fmt.Errorf("source %s is not a directory", target.Path)
	}

	if err := p.fs.MkdirAll(dir); err != nil {
		return archive.Archive{}, false, fmt.Errorf("creating archive dir: %w", err)
	}

	tmpPath := filepath.Join(dir, ".tmp-"+name)
	count, err := p.write(ctx, target, dir, tmpPath)
	if err != nil {
		_ = p.fs.RemoveAll(tmpPath)
		return archive.Archive{}, false, err
	}

	if err := p.fs.Rename(ctx, tmpPath, finalPath); err != nil {
		_ = p.fs.RemoveAll(tmpPath)
		return archive.Archive{}, false, fmt.Errorf("finalizing archive: %w", err)
	}

	a, err := p.stat(finalPath, target)
	if err != nil {
		return archive.Archive{}, false, fmt.Errorf("stat new archive: %w", err)
	}

	p.log.Debug("archive written", "path", finalPath, "files", count, "bytes", a.Size)
	return a, true, nil
}

func (p *Producer) stat(path string, target config.Target) (archive.Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return archive.Archive{}, err
	}
	return archive.FromFileInfo(path, info, target.Name(), p.format), nil
}

// write streams every non-excluded regular file of the source into tmpPath
// and returns the number of files added.
func (p *Producer) write(ctx context.Context, target config.Target, archiveDir, tmpPath string) (int, error) {
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	defer func() {
		_ = out.Close()
	}()

	cw, err := newContainer(p.format, out)
	if err != nil {
		return 0, err
	}

	source := filepath.Clean(target.Path)
	excludes := resolveExcludes(source, target.Exclude)
	skipDir := filepath.Clean(archiveDir)
	count := 0

	walkErr := filepath.WalkDir(source, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) && path != source {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path == skipDir || (path != source && excluded(path, excludes)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || excluded(path, excludes) {
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		added, err := p.addFile(cw, path, rel)
		if err != nil {
			return fmt.Errorf("archiving %s: %w", path, err)
		}
		if added {
			count++
		}
		return nil
	})
	if walkErr != nil {
		_ = cw.Close()
		return 0, walkErr
	}

	if err := cw.Close(); err != nil {
		return 0, fmt.Errorf("closing archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return 0, err
	}
	return count, nil
}

// addFile copies one file into the container. A file that disappeared
// since the walk saw it is skipped.
func (p *Producer) addFile(cw container, path, rel string) (bool, error) {
	before, err := p.fs.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			p.log.Debug("file vanished before archiving", "path", path)
			return false, nil
		}
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if err := cw.Add(filepath.ToSlash(rel), info, f); err != nil {
		return false, err
	}

	if after, err := p.fs.Stat(path); err == nil && fs.Changed(before, after) {
		p.log.Warn("file changed while being archived", "path", path)
	}
	return true, nil
}

// resolveExcludes makes relative exclusion prefixes relative to the source.
func resolveExcludes(source string, excludes []string) []string {
	out := make([]string, 0, len(excludes))
	for _, ex := range excludes {
		if ex == "" {
			continue
		}
		if !filepath.IsAbs(ex) {
			ex = filepath.Join(source, ex)
		}
		out = append(out, ex)
	}
	return out
}

// excluded matches by plain path prefix: "/src/tmp" excludes "/src/tmp",
// "/src/tmp/a" and also "/src/tmp2".
func excluded(path string, excludes []string) bool {
	for _, ex := range excludes {
		if strings.HasPrefix(path, ex) {
			return true
		}
	}
	return false
}

// container is the write side of an archive format.
type container interface {
	Add(name string, info os.FileInfo, r io.Reader) error
	Close() error
}
