package storage

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// Rotation triggers
	MaxRecordsPerFile = 50000
	MaxFileAge        = 1 * time.Hour
)

// FileRotator handles writing normalized records to rotating JSONL files.
// Each rotator owns one record kind, identified by its filename prefix
// (players, matches, events).
type FileRotator struct {
	mu sync.Mutex

	prefix string

	// Directories
	hotDir  string // Active writes
	warmDir string // Closed files awaiting reduction
	coldDir string // Compressed archives

	// Current file state
	currentFile   *os.File
	currentWriter *bufio.Writer
	currentPath   string
	recordCount   int
	fileOpenedAt  time.Time
}

// NewFileRotator creates a new rotator under the given base directory.
func NewFileRotator(baseDir, prefix string) (*FileRotator, error) {
	hotDir := filepath.Join(baseDir, "hot")
	warmDir := filepath.Join(baseDir, "warm")
	coldDir := filepath.Join(baseDir, "cold")

	for _, dir := range []string{hotDir, warmDir, coldDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	r := &FileRotator{
		prefix:  prefix,
		hotDir:  hotDir,
		warmDir: warmDir,
		coldDir: coldDir,
	}

	// Open initial file
	if err := r.rotate(); err != nil {
		return nil, err
	}

	return r, nil
}

// WriteRecord appends one record as a JSON line to the current file and
// rotates when the file is full or too old.
func (r *FileRotator) WriteRecord(record interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := r.currentWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if _, err := r.currentWriter.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	r.recordCount++

	if r.shouldRotate() {
		if err := r.rotate(); err != nil {
			return err
		}
	}

	return nil
}

// Flush forces buffered records to disk without rotating.
func (r *FileRotator) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentWriter.Flush()
}

// shouldRotate checks if we need to rotate to a new file
func (r *FileRotator) shouldRotate() bool {
	if r.currentFile == nil {
		return true
	}
	if r.recordCount >= MaxRecordsPerFile {
		return true
	}
	if time.Since(r.fileOpenedAt) >= MaxFileAge {
		return true
	}
	return false
}

// rotate closes current file and opens a new one
func (r *FileRotator) rotate() error {
	// Close current file if open
	if r.currentFile != nil {
		if err := r.currentWriter.Flush(); err != nil {
			return fmt.Errorf("failed to flush before rotation: %w", err)
		}
		if err := r.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close file: %w", err)
		}

		// Move to warm storage
		warmPath := filepath.Join(r.warmDir, filepath.Base(r.currentPath))
		if err := os.Rename(r.currentPath, warmPath); err != nil {
			return fmt.Errorf("failed to move to warm storage: %w", err)
		}
		fmt.Printf("[Rotator] Moved %s to warm storage (%d records)\n", filepath.Base(r.currentPath), r.recordCount)
	}

	// Generate new filename
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.jsonl", r.prefix, timestamp)
	r.currentPath = filepath.Join(r.hotDir, filename)

	// Open new file
	file, err := os.Create(r.currentPath)
	if err != nil {
		return fmt.Errorf("failed to create new file: %w", err)
	}

	r.currentFile = file
	r.currentWriter = bufio.NewWriterSize(file, 64*1024) // 64KB buffer
	r.recordCount = 0
	r.fileOpenedAt = time.Now()

	return nil
}

// Close flushes and closes the current file, moving it to warm storage
// when it holds data.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil {
		return nil
	}

	if err := r.currentWriter.Flush(); err != nil {
		return err
	}

	if err := r.currentFile.Close(); err != nil {
		return err
	}

	if r.recordCount > 0 {
		warmPath := filepath.Join(r.warmDir, filepath.Base(r.currentPath))
		if err := os.Rename(r.currentPath, warmPath); err != nil {
			return err
		}
		fmt.Printf("[Rotator] Closed and moved %s to warm (%d records)\n", filepath.Base(r.currentPath), r.recordCount)
	} else {
		// Remove empty file
		os.Remove(r.currentPath)
	}

	r.currentFile = nil
	return nil
}

// Stats returns current rotator statistics
func (r *FileRotator) Stats() (recordsInCurrentFile int, currentFileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordCount, filepath.Base(r.currentPath)
}

// CompressToCold compresses a warm file and moves it to cold storage
func CompressToCold(warmPath, coldDir string) error {
	src, err := os.Open(warmPath)
	if err != nil {
		return err
	}
	defer src.Close()

	filename := filepath.Base(warmPath) + ".gz"
	coldPath := filepath.Join(coldDir, filename)
	dst, err := os.Create(coldPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}

	if err := os.Remove(warmPath); err != nil {
		return err
	}

	fmt.Printf("[Rotator] Compressed %s to cold storage\n", filepath.Base(warmPath))
	return nil
}
