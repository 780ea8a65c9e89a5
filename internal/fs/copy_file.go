// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0
package fs

import (
	"errors"
	"io"
	"os"

	"github.com/karrick/godirwalk"
)

// CopyFile copies the contents of the LstatCachedFile to the destination path,
// preserving the source file's mode bits. A symlink is recreated at the
// destination with the same target, even when that target does not exist.
func CopyFile(from *LstatCachedFile, to string) error {
	fromMode, err := from.GetMode()
	if err != nil {
		return err
	}
	if fromMode&os.ModeSymlink != 0 {
		target, err := from.Path.Readlink()
		if err != nil {
			return err
		}
		if err := EnsureDir(to); err != nil {
			return err
		}
		if err := os.Remove(to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return os.Symlink(target, to)
	}

	fromFile, err := from.Path.Open()
	if err != nil {
		return err
	}
	defer fromFile.Close()

	if err := EnsureDir(to); err != nil {
		return err
	}

	toFile, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fromMode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(toFile, fromFile); err != nil {
		toFile.Close()
		os.Remove(to)
		return err
	}
	return toFile.Close()
}

// CopyOrLinkFile either copies or hardlinks a file based on the link argument.
// Falls back to a copy if link fails and fallback is true.
func CopyOrLinkFile(from *LstatCachedFile, to string, link bool, fallback bool) error {
	fromMode, err := from.GetMode()
	if err != nil {
		return err
	}
	if (fromMode & os.ModeSymlink) != 0 {
		// Create an equivalent symlink in the new location.
		dest, err := from.Path.Readlink()
		if err != nil {
			return err
		}
		// Make sure the link we're about to create doesn't already exist
		if err := os.Remove(to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return os.Symlink(dest, to)
	}
	if link {
		if err := from.Path.Link(to); err == nil || !fallback {
			return err
		}
	}
	return CopyFile(from, to)
}

// Walk implements an equivalent to filepath.Walk.
// It's implemented over github.com/karrick/godirwalk but the provided interface doesn't use that
// to make it a little easier to handle.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	return WalkMode(rootPath, func(name string, isDir bool, mode os.FileMode) error {
		return callback(name, isDir)
	})
}

// WalkMode is like Walk but the callback receives an additional type specifying the file mode type.
// N.B. This only includes the bits of the mode that determine the mode type, not the permissions.
func WalkMode(rootPath string, callback func(name string, isDir bool, mode os.FileMode) error) error {
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		Callback: func(name string, info *godirwalk.Dirent) error {
			// currently we support symlinked files, but not symlinked directories:
			// for copying, we Mkdir and bail if we encounter a symlink to a directory
			isDir, err := info.IsDirOrSymlinkToDir()
			if err != nil {
				pathErr := &os.PathError{}
				if errors.As(err, &pathErr) {
					// If we have a broken link, skip this entry
					return godirwalk.SkipThis
				}
				return err
			}
			return callback(name, isDir, info.ModeType())
		},
		ErrorCallback: func(pathname string, err error) godirwalk.ErrorAction {
			pathErr := &os.PathError{}
			if errors.As(err, &pathErr) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Unsorted:            true,
		AllowNonDirectory:   true,
		FollowSymbolicLinks: false,
	})
}

// SameFile returns true if the two given paths refer to the same physical
// file on disk, using the unique file identifiers from the underlying
// operating system.
func SameFile(a string, b string) (bool, error) {
	if a == b {
		return true, nil
	}

	aInfo, err := os.Lstat(a)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	bInfo, err := os.Lstat(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return os.SameFile(aInfo, bInfo), nil
}
