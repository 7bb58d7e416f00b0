package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalWriter appends records to {dir}/{partition}.jsonl. Each record is
// written to an O_APPEND descriptor in a single write, so a crash can
// truncate at most the record being written; prior records stay intact.
type LocalWriter struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewLocalWriter creates the base directory if needed.
func NewLocalWriter(dir string) (*LocalWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	return &LocalWriter{
		dir:   dir,
		files: make(map[string]*os.File),
	}, nil
}

// Append writes each line as one newline-terminated record.
func (w *LocalWriter) Append(ctx context.Context, partition string, lines [][]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.partitionFile(partition)
	if err != nil {
		return err
	}

	for _, line := range lines {
		record := line
		if len(record) == 0 || record[len(record)-1] != '\n' {
			record = append(append([]byte(nil), line...), '\n')
		}
		if _, err := file.Write(record); err != nil {
			return fmt.Errorf("failed to append to partition %s: %w", partition, err)
		}
	}

	return nil
}

// partitionFile returns the open handle for a partition, opening it on first
// use. Callers hold w.mu.
func (w *LocalWriter) partitionFile(partition string) (*os.File, error) {
	if file, ok := w.files[partition]; ok {
		return file, nil
	}

	path := filepath.Join(w.dir, partition+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open partition file %s: %w", path, err)
	}

	w.files[partition] = file
	return file, nil
}

// Close closes all open partition files.
func (w *LocalWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for partition, file := range w.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.files, partition)
	}
	return firstErr
}
