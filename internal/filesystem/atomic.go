// Package filesystem provides small file-handling helpers.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to the target path via a temp file and rename,
// so an interrupted write never leaves a truncated file behind. The parent
// directory is created if missing; dirPerm applies to created directories and
// perm to the file itself (settings files are written 0600).
func WriteFileAtomic(target string, data []byte, perm, dirPerm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmpPath := target + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	// WriteFile perm is masked by umask; chmod to the exact mode.
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp to target: %w", err)
	}
	return nil
}
