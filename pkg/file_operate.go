// Package pkg holds small filesystem helpers shared by the entry
// surface.
package pkg

import (
	"fmt"
	"os"
)

// FileExists reports whether filePath exists, distinguishing a missing
// path from a stat failure caused by something else (e.g. permission
// denied on a parent directory).
func FileExists(filePath string) (bool, error) {
	_, err := os.Lstat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NotExistError reports that filePath does not exist.
type NotExistError struct {
	Path string
}

func (e *NotExistError) Error() string {
	return fmt.Sprintf("file does not exist: %s", e.Path)
}

// NotReadableError reports that filePath exists but could not be read.
type NotReadableError struct {
	Path  string
	Cause error
}

func (e *NotReadableError) Error() string {
	return fmt.Sprintf("file not readable: %s: %v", e.Path, e.Cause)
}

func (e *NotReadableError) Unwrap() error {
	return e.Cause
}

// ReadFile loads the full contents of filePath, returning a
// *NotExistError or *NotReadableError so callers can distinguish the
// two failure modes instead of inspecting os.PathError.
func ReadFile(filePath string) ([]byte, error) {
	exists, err := FileExists(filePath)
	if err != nil {
		return nil, &NotReadableError{Path: filePath, Cause: err}
	}
	if !exists {
		return nil, &NotExistError{Path: filePath}
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &NotReadableError{Path: filePath, Cause: err}
	}
	return data, nil
}
