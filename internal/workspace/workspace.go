// Package workspace manages the on-disk layout of a liaison data directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetRequiredDirectories returns the list of directories that must exist in
// a liaison data directory
func GetRequiredDirectories() []string {
	return []string{
		"tasks",           // one JSON document per task (file store)
		"inbox",           // inbound message drop directory
		"inbox/processed", // swept messages that were ingested
		"inbox/rejected",  // swept messages that could not be ingested
	}
}

// Initialize creates all required data directories with proper permissions (0700)
// This function is idempotent - safe to call multiple times
func Initialize(dataDir string) error {
	dirs := GetRequiredDirectories()

	for _, dir := range dirs {
		path := filepath.Join(dataDir, dir)

		if err := os.MkdirAll(path, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}

	return nil
}

// IsInitialized checks if a data directory has all required subdirectories
func IsInitialized(dataDir string) (bool, error) {
	dirs := GetRequiredDirectories()

	for _, dir := range dirs {
		path := filepath.Join(dataDir, dir)

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to check directory %s: %w", path, err)
		}

		if !info.IsDir() {
			return false, nil
		}
	}

	return true, nil
}
