// Package turbopath teaches the Go type system about absolute,
// system-separator file paths.
//
// Absolute paths are, "absolute, including volume root." They are not
// portable between System and Unix.
package turbopath

// AbsoluteSystemPathFromUpstream takes a path string and casts it to an
// AbsoluteSystemPath without checking. If the input to this function is
// not an AbsoluteSystemPath it will result in downstream errors.
//
// This is intended to map closely to the `unsafe` keyword, without the
// denotative meaning of `unsafe` in English. This is a "trust me, I've
// checked it" place, and exists to mark where we smuggle a path from
// outside the world of safe path handling into the world where we
// carefully consider the path to ensure safety.
func AbsoluteSystemPathFromUpstream(path string) AbsoluteSystemPath {
	return AbsoluteSystemPath(path)
}
