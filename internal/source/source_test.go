package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
)

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestReaderTerminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"bare cr kept on final line", "a\r\nb\r", []string{"a", "b\r"}},
		{"inner cr kept", "a\rb\n", []string{"a\rb"}},
		{"blank lines", "\n\nx\n", []string{"", "", "x"}},
		{"empty input", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, NewReader(strings.NewReader(tt.input), "test"))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReaderLongLine(t *testing.T) {
	long := strings.Repeat("x", 1<<20)
	got := readAll(t, NewReader(strings.NewReader(long+"\nend"), "long"))
	if len(got) != 2 || len(got[0]) != len(long) || got[1] != "end" {
		t.Fatalf("unexpected lines: %d", len(got))
	}
}

func TestReaderEOFIsSticky(t *testing.T) {
	r := NewReader(strings.NewReader("only"), "test")
	if line, err := r.ReadLine(); err != nil || line != "only" {
		t.Fatalf("first ReadLine = %q, %v", line, err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.ReadLine(); !errors.Is(err, io.EOF) {
			t.Fatalf("ReadLine after end = %v, want io.EOF", err)
		}
	}
}

func TestReaderReadFailure(t *testing.T) {
	boom := errors.New("disk gone")
	r := NewReader(io.MultiReader(strings.NewReader("one\ntwo\n"), iotest.ErrReader(boom)), "flaky")
	readAllUntilErr := func() error {
		for {
			if _, err := r.ReadLine(); err != nil {
				return err
			}
		}
	}
	err := readAllUntilErr()
	if !errors.Is(err, apperrors.ErrInputReadFailure) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrInputReadFailure wrapping cause", err)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("Timothy went home\nhome of Timothy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	got := readAll(t, f.Reader)
	if !reflect.DeepEqual(got, []string{"Timothy went home", "home of Timothy"}) {
		t.Fatalf("lines = %q", got)
	}
}

func TestOpenFileUnavailable(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{filepath.Join(dir, "missing.txt"), dir} {
		if _, err := OpenFile(path); !errors.Is(err, apperrors.ErrInputUnavailable) {
			t.Errorf("OpenFile(%s) err = %v, want ErrInputUnavailable", path, err)
		}
	}
}

func TestOpenInRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "logs", "a.txt"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenInRoot(root, "logs/a.txt")
	if err != nil {
		t.Fatalf("OpenInRoot: %v", err)
	}
	defer f.Close()
	if got := readAll(t, f.Reader); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("lines = %q", got)
	}

	for _, name := range []string{"../etc/passwd", "/etc/passwd", "logs/../../x"} {
		if _, err := OpenInRoot(root, name); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("OpenInRoot(%q) err = %v, want ErrInvalidInput", name, err)
		}
	}
	if _, err := OpenInRoot(root, "logs/missing.txt"); !errors.Is(err, apperrors.ErrInputUnavailable) {
		t.Errorf("missing file err = %v, want ErrInputUnavailable", err)
	}
}
