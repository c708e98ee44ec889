package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingWriter appends to date-stamped files derived from a base path and
// starts a fresh file on each UTC day or when the current file would exceed
// MaxBytes. The base path itself is kept as a pointer to the live file.
//
// For base "logs/portal.log" the files are logs/portal-2026-08-31.log,
// logs/portal-2026-08-31-2.log and so on.
type RotatingWriter struct {
	BasePath string
	MaxBytes int64

	mu       sync.Mutex
	day      string
	sequence int
	file     *os.File
	size     int64
}

// DefaultMaxBytes caps a single log file at 64 MiB.
const DefaultMaxBytes = 64 << 20

// NewRotatingWriter opens a rotating writer for basePath. A base path of "-"
// discards all output.
func NewRotatingWriter(basePath string, maxBytes int64) (io.WriteCloser, error) {
	if strings.TrimSpace(basePath) == "-" {
		return nopWriteCloser{w: io.Discard}, nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	w := &RotatingWriter{BasePath: basePath, MaxBytes: maxBytes}
	if err := w.rotateIfNeeded(0); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeeded(int64(len(p))); err != nil {
		return 0, err
	}
	n, err := w.file.Write(p)
	if err == nil {
		w.size += int64(n)
	}
	return n, err
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func (w *RotatingWriter) rotateIfNeeded(incoming int64) error {
	today := time.Now().UTC().Format("2006-01-02")
	if w.file == nil || w.day != today {
		w.day = today
		w.sequence = 1
		return w.openCurrent()
	}
	if w.size+incoming > w.MaxBytes {
		w.sequence++
		return w.openCurrent()
	}
	return nil
}

func (w *RotatingWriter) openCurrent() error {
	if w.file != nil {
		_ = w.file.Close()
	}
	dir, name := filepath.Split(w.BasePath)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		ext = ".log"
	}
	filename := fmt.Sprintf("%s-%s%s", base, w.day, ext)
	if w.sequence > 1 {
		filename = fmt.Sprintf("%s-%s-%d%s", base, w.day, w.sequence, ext)
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if st, serr := f.Stat(); serr == nil {
		w.size = st.Size()
	} else {
		w.size = 0
	}
	w.file = f
	w.updatePointer(path)
	return nil
}

func (w *RotatingWriter) updatePointer(target string) {
	base := strings.TrimSpace(w.BasePath)
	if base == "" || base == "-" {
		return
	}
	if info, err := os.Lstat(base); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if dest, derr := os.Readlink(base); derr == nil && dest == target {
				return
			}
		}
		_ = os.Remove(base)
	}
	if err := os.Symlink(target, base); err == nil {
		return
	}
	if err := os.Link(target, base); err == nil {
		return
	}
	if f, err := os.OpenFile(base, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err == nil {
		defer f.Close()
		_, _ = fmt.Fprintf(f, "current log file: %s\n", target)
	}
}

type nopWriteCloser struct{ w io.Writer }

func (n nopWriteCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloser) Close() error                { return nil }

// NewLogger builds a component logger writing to w with the given prefix,
// optionally mirrored to stderr for interactive runs.
func NewLogger(w io.Writer, prefix string, mirrorStderr bool) *log.Logger {
	out := w
	if mirrorStderr {
		out = io.MultiWriter(w, os.Stderr)
	}
	return log.New(out, prefix+" ", log.LstdFlags|log.LUTC)
}
