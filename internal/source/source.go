// Package source provides forward-only line sources over files and
// arbitrary readers. Sources strip "\n" and "\r\n" terminators, accept lines
// of any length, and return io.EOF once the input is exhausted.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
)

// Reader reads lines from an io.Reader.
type Reader struct {
	r     *bufio.Reader
	name  string
	lines int
	done  bool
}

// NewReader returns a Reader over r. name is used in error messages.
func NewReader(r io.Reader, name string) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024), name: name}
}

// ReadLine returns the next line without its terminator. A final line with
// no trailing newline is still returned. Errors other than io.EOF wrap
// ErrInputReadFailure.
func (r *Reader) ReadLine() (string, error) {
	if r.done {
		return "", io.EOF
	}
	line, err := r.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s after line %d: %w", apperrors.ErrInputReadFailure, r.name, r.lines, err)
		}
		r.done = true
		if line == "" {
			return "", io.EOF
		}
	}
	r.lines++
	if trimmed, ok := strings.CutSuffix(line, "\n"); ok {
		line = strings.TrimSuffix(trimmed, "\r")
	}
	return line, nil
}

// File is a Reader over an open file.
type File struct {
	*Reader
	f *os.File
}

// OpenFile opens path for scanning. Missing, unreadable, or non-regular
// paths fail with ErrInputUnavailable.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInputUnavailable, err)
	}
	return newFile(f, path)
}

// OpenInRoot opens name relative to root. Absolute names and names that
// leave root, lexically or through a symlink, fail with ErrInvalidInput.
func OpenInRoot(root, name string) (*File, error) {
	if !filepath.IsLocal(name) {
		return nil, apperrors.Invalid("path %q is outside the scan root", name)
	}
	f, err := os.OpenInRoot(root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInputUnavailable, err)
		}
		return nil, apperrors.Invalid("opening %q under scan root: %v", name, err)
	}
	return newFile(f, name)
}

func newFile(f *os.File, path string) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", apperrors.ErrInputUnavailable, path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", apperrors.ErrInputUnavailable, path)
	}
	return &File{Reader: NewReader(f, path), f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
