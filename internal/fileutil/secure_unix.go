//go:build !windows

// Package fileutil writes files and directories that hold exported mail
// content. On Unix the Secure* helpers are plain os.* wrappers relying on
// the Unix mode; on Windows, owner-only modes (perm & 0077 == 0) also get a
// DACL restricting access to the current user.
package fileutil

import "os"

// SecureWriteFile writes data to the named file, creating it if necessary.
func SecureWriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// SecureMkdirAll creates a directory path and any missing parents.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureOpenFile opens the named file with the given flag and permissions.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
