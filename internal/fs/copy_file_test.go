package fs

import (
	"errors"
	"os"
	"testing"

	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	srcTmpDir := turbopath.AbsoluteSystemPath(t.TempDir())
	destTmpDir := turbopath.AbsoluteSystemPath(t.TempDir())
	srcFilePath := srcTmpDir.UntypedJoin("src")
	destFilePath := destTmpDir.UntypedJoin("dest")
	from := &LstatCachedFile{Path: srcFilePath}

	// The src file doesn't exist, will error.
	err := CopyFile(from, destFilePath.ToString())
	pathErr := &os.PathError{}
	assert.True(t, errors.As(err, &pathErr), "got %v, want PathError", err)

	// Create the src file.
	srcFile, err := srcFilePath.Create()
	require.NoError(t, err)
	_, err = srcFile.WriteString("src")
	require.NoError(t, err)
	require.NoError(t, srcFile.Close())

	// Copy the src to the dest.
	err = CopyFile(from, destFilePath.ToString())
	require.NoError(t, err, "src exists dest does not, should not error")

	// Now test for symlinks.
	symlinkSrcDir := turbopath.AbsoluteSystemPath(t.TempDir())
	symlinkTargetDir := turbopath.AbsoluteSystemPath(t.TempDir())
	symlinkDestDir := turbopath.AbsoluteSystemPath(t.TempDir())
	symlinkSrcPath := symlinkSrcDir.UntypedJoin("symlink")
	symlinkTargetPath := symlinkTargetDir.UntypedJoin("target")
	symlinkDestPath := symlinkDestDir.UntypedJoin("dest")
	fromSymlink := &LstatCachedFile{Path: symlinkSrcPath}

	// Create the symlink target.
	symlinkTargetFile, err := symlinkTargetPath.Create()
	require.NoError(t, err)
	_, err = symlinkTargetFile.WriteString("Target")
	require.NoError(t, err)
	require.NoError(t, symlinkTargetFile.Close())

	// Link things up.
	require.NoError(t, symlinkSrcPath.Symlink(symlinkTargetPath.ToString()))

	// Run the test.
	require.NoError(t, CopyFile(fromSymlink, symlinkDestPath.ToString()), "copying a valid symlink does not error")

	// Break the symlink.
	require.NoError(t, symlinkTargetPath.Remove())

	// Remove the existing copy.
	require.NoError(t, symlinkDestPath.Remove())

	// Try copying the now-broken symlink.
	require.NoError(t, CopyFile(fromSymlink, symlinkDestPath.ToString()))

	// Confirm that it copied
	target, err := symlinkDestPath.Readlink()
	require.NoError(t, err)
	assert.Equal(t, symlinkTargetPath.ToString(), target)
}

func TestCopyOrLinkFileWithPerms(t *testing.T) {
	// Directory layout:
	//
	// <src>/
	//   src
	readonlyMode := os.FileMode(0444)
	srcDir := turbopath.AbsoluteSystemPath(t.TempDir())
	dstDir := turbopath.AbsoluteSystemPath(t.TempDir())
	srcFilePath := srcDir.UntypedJoin("src")
	dstFilePath := dstDir.UntypedJoin("dst")
	srcFile, err := srcFilePath.Create()
	defer func() { _ = srcFile.Close() }()
	require.NoError(t, err)
	require.NoError(t, srcFile.Chmod(readonlyMode))
	require.NoError(t, CopyOrLinkFile(&LstatCachedFile{Path: srcFilePath}, dstFilePath.ToStringDuringMigration(), false, false))
	info, err := dstFilePath.Lstat()
	require.NoError(t, err)
	assert.Equal(t, readonlyMode, info.Mode(), "expected dest to have matching permissions")
}

func TestCopyOrLinkFileHardLinks(t *testing.T) {
	srcDir := turbopath.AbsoluteSystemPath(t.TempDir())
	dstDir := turbopath.AbsoluteSystemPath(t.TempDir())
	srcFilePath := srcDir.UntypedJoin("src")
	dstFilePath := dstDir.UntypedJoin("dst")
	srcFile, err := srcFilePath.Create()
	require.NoError(t, err)
	_, err = srcFile.WriteString("contents")
	require.NoError(t, err)
	require.NoError(t, srcFile.Close())

	require.NoError(t, CopyOrLinkFile(&LstatCachedFile{Path: srcFilePath}, dstFilePath.ToString(), true, true))

	same, err := SameFile(srcFilePath.ToString(), dstFilePath.ToString())
	require.NoError(t, err)
	assert.True(t, same, "hard link should report as the same file")
}
