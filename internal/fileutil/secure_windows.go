//go:build windows

package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func isOwnerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}

// restrictToCurrentUser sets a protected DACL on path granting GENERIC_ALL
// only to the current user. Directory DACLs carry the inherit flags so
// children created later pick up the same restriction. The file already
// exists with the requested Unix mode when this runs, so callers treat a
// DACL failure as a warning, not an error.
func restrictToCurrentUser(path string) error {
	token := windows.GetCurrentProcessToken()
	user, err := token.GetTokenUser()
	if err != nil {
		return fmt.Errorf("fileutil: current user SID for %s: %w", path, err)
	}

	var inherit uint32 = windows.NO_INHERITANCE
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		inherit = windows.CONTAINER_INHERIT_ACE | windows.OBJECT_INHERIT_ACE
	}

	ea := []windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       inherit,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}
	acl, err := windows.ACLFromEntries(ea, nil)
	if err != nil {
		return fmt.Errorf("fileutil: build ACL for %s: %w", path, err)
	}

	secInfo := windows.DACL_SECURITY_INFORMATION | windows.PROTECTED_DACL_SECURITY_INFORMATION
	if err := windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.SECURITY_INFORMATION(secInfo),
		nil,
		nil,
		acl,
		nil,
	); err != nil {
		return fmt.Errorf("fileutil: set DACL on %s: %w", path, err)
	}
	return nil
}

func warnDACL(path string, err error) {
	slog.Warn("fileutil: best-effort DACL failed", "path", path, "err", err)
}

// SecureWriteFile writes data to the named file, creating it if necessary.
// Owner-only modes get a DACL restricting access to the current user.
func SecureWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	if isOwnerOnly(perm) {
		if err := restrictToCurrentUser(path); err != nil {
			warnDACL(path, err)
		}
	}
	return nil
}

// SecureMkdirAll creates a directory path and any missing parents. With an
// owner-only mode, every directory this call created gets the restrictive
// DACL; pre-existing ancestors are left alone.
func SecureMkdirAll(path string, perm os.FileMode) error {
	var created []string
	if isOwnerOnly(perm) {
		p := filepath.Clean(path)
		for p != "" && p != "." && p != string(filepath.Separator) {
			if _, err := os.Stat(p); err == nil {
				break
			}
			created = append(created, p)
			parent := filepath.Dir(p)
			if parent == p {
				break
			}
			p = parent
		}
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, dir := range created {
		if err := restrictToCurrentUser(dir); err != nil {
			warnDACL(dir, err)
		}
	}
	return nil
}

// SecureOpenFile opens the named file with the given flag and permissions.
// Owner-only modes with O_CREATE get the restrictive DACL even when the
// file already existed; everything written through this package is mail
// content that should be owner-only. There is a short window between
// creation and SetNamedSecurityInfo since the latter works by path.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	if isOwnerOnly(perm) && flag&os.O_CREATE != 0 {
		if err := restrictToCurrentUser(path); err != nil {
			warnDACL(path, err)
		}
	}
	return f, nil
}
