//go:build !unix

package core

import "errors"

// FreeSpace is not supported on this platform.
func FreeSpace(path string) (uint64, error) {
	return 0, errors.New("free space check is not supported on this platform")
}
