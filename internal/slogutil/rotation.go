package slogutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an append-only log file that is moved aside to path.1,
// path.2, ... once it would grow past maxSize. Up to maxBackups old files are
// kept. A zero maxSize never rotates.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

// OpenRotatingFile opens path for appending, creating its directory.
func OpenRotatingFile(path string, maxSize int64, maxBackups int) (*RotatingFile, error) {
	rf := &RotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file, r.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would overflow the file.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		// A failed rotation keeps appending to whatever file is open.
		_ = r.rotate()
	}
	if r.file == nil {
		return 0, os.ErrClosed
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	if r.maxBackups == 0 {
		_ = os.Remove(r.path)
	} else {
		_ = os.Remove(r.backup(r.maxBackups))
		for i := r.maxBackups - 1; i >= 1; i-- {
			_ = os.Rename(r.backup(i), r.backup(i+1))
		}
		_ = os.Rename(r.path, r.backup(1))
	}
	return r.open()
}

func (r *RotatingFile) backup(n int) string {
	return r.path + "." + strconv.Itoa(n)
}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(B|KB|MB|GB)?$`)

var sizeUnits = map[string]float64{
	"":   1,
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
}

// ParseSize parses sizes like "500KB" or "1.5MB". Empty or malformed input
// is 0.
func ParseSize(s string) int64 {
	m := sizePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return int64(v * sizeUnits[m[2]])
}
