package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates the directory containing path (not path itself) if it
// doesn't exist
func (f *FileOperations) EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file
func (f *FileOperations) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// AtomicRename performs an atomic file rename operation
func (f *FileOperations) AtomicRename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// ValidatePartialFile checks if a partial file is valid for resuming
func (f *FileOperations) ValidatePartialFile(partPath string, expectedSize int64) error {
	info, err := os.Stat(partPath)
	if err != nil {
		return err
	}
	
	// Check if partial file size is reasonable
	if info.Size() > expectedSize {
		return fmt.Errorf("partial file size (%d) exceeds expected size (%d)", info.Size(), expectedSize)
	}
	
	// Check if file is readable and writable
	file, err := os.OpenFile(partPath, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("cannot access partial file: %w", err)
	}
	file.Close()
	
	return nil
}

// CreatePartialFile creates or truncates a partial download file
func (f *FileOperations) CreatePartialFile(partPath string, size int64) (err error) {
	file, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create partial file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	// Pre-allocate file space
	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to allocate file space: %w", err)
	}

	return nil
}

// ScratchPath builds the deterministic per-segment scratch file path used
// by the Segment Planner and Assembler: "<dir>/<fileName>.part<index>".
func (f *FileOperations) ScratchPath(dir, fileName string, segmentIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.part%d", fileName, segmentIndex))
}

// RemoveIfExists deletes path, treating a missing file as success.
func (f *FileOperations) RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}