package utils

import (
	"errors"
	"io/fs"
	"os"
)

// Exists checks whether file or directory exists under the given 'path' on the system.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
