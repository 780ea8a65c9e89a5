//go:build go || !rust
// +build go !rust

package fs

import (
	"github.com/adrg/xdg"
	"github.com/plow-dev/plow/internal/turbopath"
)

// GetDefaultPlowHome returns plow_home: a directory outside of any
// workspace where plow stores the registry index cache and the
// content-addressed field cache. cmdutil uses the config file's plowHome
// value instead when one is set.
func GetDefaultPlowHome() turbopath.AbsoluteSystemPath {
	home := turbopath.AbsoluteSystemPathFromUpstream(xdg.Home)
	return home.UntypedJoin(".plow")
}

// GetDefaultWorkspaceRoot returns the platform documents directory under
// which per-field Protégé workspaces are rooted (C10).
func GetDefaultWorkspaceRoot() turbopath.AbsoluteSystemPath {
	documents := xdg.UserDirs.Documents
	if documents == "" {
		return turbopath.AbsoluteSystemPathFromUpstream(xdg.DataHome).UntypedJoin("plow", "workspaces")
	}
	return turbopath.AbsoluteSystemPathFromUpstream(documents).UntypedJoin("Plow", "workspaces")
}
