package source

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFileSize skips files larger than this many bytes.
const DefaultMaxFileSize = 5 * 1024 * 1024

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// FileLister lists tracked files relative to a directory.
type FileLister interface {
	ListFiles(ctx context.Context) ([]string, error)
}

// Local reads the files of a directory. When Lister is set and succeeds
// (e.g. git ls-files), only the listed files are read; otherwise the
// directory is walked, skipping .git.
type Local struct {
	// Dir is the directory to read.
	Dir string

	// Lister optionally lists the files to read, relative to Dir.
	Lister FileLister

	// Exclude lists paths relative to Dir whose contents are skipped,
	// typically the output directory.
	Exclude []string

	// MaxFileSize skips larger files; 0 means DefaultMaxFileSize.
	MaxFileSize int64

	// Logger receives debug messages about skipped files.
	Logger *slog.Logger
}

// String names the source.
func (l *Local) String() string {
	return "local:" + l.Dir
}

// Blobs reads every listed or walked text file.
func (l *Local) Blobs(ctx context.Context) ([]Blob, error) {
	files, err := l.files(ctx)
	if err != nil {
		return nil, err
	}
	blobs := make([]Blob, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return blobs, err
		}
		if l.excluded(rel) {
			continue
		}
		text, ok := l.readText(filepath.Join(l.Dir, rel))
		if !ok {
			continue
		}
		blobs = append(blobs, Blob{Name: rel, Text: text})
	}
	return blobs, nil
}

func (l *Local) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Local) files(ctx context.Context) ([]string, error) {
	if l.Lister != nil {
		files, err := l.Lister.ListFiles(ctx)
		if err == nil {
			return files, nil
		}
		l.logger().Debug("file listing unavailable, walking directory", "dir", l.Dir, "error", err)
	}

	files := make([]string, 0)
	err := filepath.WalkDir(l.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(l.Dir, path)
		if err != nil {
			return nil //nolint:nilerr // skip entries outside Dir
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (l *Local) excluded(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	for _, ex := range l.Exclude {
		ex = filepath.ToSlash(filepath.Clean(ex))
		if ex == "." || ex == "" {
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// readText returns the file content if it is a reasonably sized UTF-8
// text file.
func (l *Local) readText(path string) (string, bool) {
	limit := l.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > limit {
		return "", false
	}
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the listed directory
	if err != nil {
		l.logger().Debug("skipping unreadable file", "path", path, "error", err)
		return "", false
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}
