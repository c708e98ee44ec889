package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingWriterCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "portal.log")

	w, err := NewRotatingWriter(base, 1024)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	dated := filepath.Join(dir, "portal-"+day+".log")
	data, err := os.ReadFile(dated)
	if err != nil {
		t.Fatalf("read dated file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("unexpected content %q", data)
	}

	// The base path points at the live file (symlink or pointer text).
	if _, err := os.Lstat(base); err != nil {
		t.Fatalf("base pointer missing: %v", err)
	}
}

func TestRotatingWriterSizeRollover(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "portal.log")

	w, err := NewRotatingWriter(base, 10)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	day := time.Now().UTC().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, "portal-"+day+"-2.log")); err != nil {
		t.Fatalf("expected rollover file: %v", err)
	}
}

func TestRotatingWriterDiscard(t *testing.T) {
	w, err := NewRotatingWriter("-", 0)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := w.Write([]byte("dropped")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
