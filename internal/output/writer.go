package output

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hzm1213/upsub/internal/model"
	"github.com/hzm1213/upsub/internal/node"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrEmptyDir is returned when no output directory is configured.
	ErrEmptyDir = errors.New("output directory is empty")

	// ErrUnsafeDir is returned when the output directory is the
	// filesystem root or contains the working directory.
	ErrUnsafeDir = errors.New("refusing to reset output directory")

	// ErrInvalidIndex is returned for artifact indexes below 1.
	ErrInvalidIndex = errors.New("artifact index must be at least 1")
)

// artifactName matches the files Write produces.
var artifactName = regexp.MustCompile(`^\d{3,}\.txt$`)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Writer persists artifacts under a directory.
type Writer struct {
	dir      string
	encoding model.Encoding
}

// NewWriter creates a Writer for dir using the given encoding.
func NewWriter(dir string, encoding model.Encoding) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrEmptyDir
	}
	if encoding == "" {
		encoding = model.EncodingPlain
	}
	if _, err := model.ParseEncoding(string(encoding)); err != nil {
		return nil, err
	}
	return &Writer{dir: filepath.Clean(dir), encoding: encoding}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Reset removes the artifacts of a previous run (files named like
// 001.txt) and makes sure the directory exists. Other files and
// subdirectories are left alone. The filesystem root and any directory
// that is or contains the working directory are refused.
func (w *Writer) Reset() error {
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("%w: %s is a filesystem root", ErrUnsafeDir, w.dir)
	}
	if cwd, err := os.Getwd(); err == nil && within(abs, cwd) {
		return fmt.Errorf("%w: %s contains the working directory", ErrUnsafeDir, w.dir)
	}
	if err := os.MkdirAll(w.dir, dirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !artifactName.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, e.Name())); err != nil {
			return fmt.Errorf("clear output directory: %w", err)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Write stores nodes as artifact number index and returns its record.
func (w *Writer) Write(index int, link string, nodes []string) (model.Artifact, error) {
	if index < 1 {
		return model.Artifact{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	content := Encode(nodes, w.encoding)
	artifact := model.Artifact{
		Index:     index,
		Link:      link,
		Path:      filepath.Join(w.dir, model.ArtifactFileName(index)),
		NodeCount: len(nodes),
		Encoding:  w.encoding,
		Digest:    Digest(content),
	}
	if err := os.MkdirAll(w.dir, dirPerm); err != nil {
		return model.Artifact{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(artifact.Path, content, filePerm); err != nil { //nolint:gosec // artifacts are meant to be published
		return model.Artifact{}, fmt.Errorf("write %s: %w", artifact.Path, err)
	}
	return artifact, nil
}

// Encode renders nodes in the given encoding.
func Encode(nodes []string, encoding model.Encoding) []byte {
	text := strings.Join(nodes, "\n")
	if encoding == model.EncodingBase64 {
		return []byte(node.EncodeBase64([]byte(text)))
	}
	return []byte(text)
}

// Digest returns the hex SHA3-256 of content.
func Digest(content []byte) string {
	sum := sha3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
