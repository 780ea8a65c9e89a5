package turbopath

// AbsoluteSystemPath is a root-relative path using system separators.
type AbsoluteSystemPath string

// ToString returns a string represenation of this Path.
// Used for interfacing with APIs that require a string.
func (p AbsoluteSystemPath) ToString() string {
	return string(p)
}
