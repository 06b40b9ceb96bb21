// Package version implements the three-component semantic version used
// across the engine: instance versions, application metadata, and the
// compatibility header of compiled module storage.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version with major, minor and patch components.
// Versions are totally ordered lexicographically by component.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// FormatError reports a malformed version string.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// New returns a Version with the given components.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a "major.minor.patch" string.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, &FormatError{Input: s, Reason: fmt.Sprintf("expected 3 components, got %d", len(parts))}
	}

	var nums [3]uint64
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, &FormatError{Input: s, Reason: fmt.Sprintf("component %q is not a non-negative integer", part)}
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// compile-time constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 if v is less than, equal to or greater than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpUint(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpUint(v.Minor, o.Minor)
	default:
		return cmpUint(v.Patch, o.Patch)
	}
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Range is an inclusive version interval used for compatibility checks.
// Max is significant only when Bounded is set, so 0.0.0 remains a valid
// upper bound. The zero Range accepts every version.
type Range struct {
	Min     Version
	Max     Version
	Bounded bool
}

// Exactly returns a Range matching only v.
func Exactly(v Version) Range {
	return Range{Min: v, Max: v, Bounded: true}
}

// AtLeast returns a Range matching v and anything newer.
func AtLeast(v Version) Range {
	return Range{Min: v}
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v Version) bool {
	if v.Less(r.Min) {
		return false
	}
	if r.Bounded && r.Max.Less(v) {
		return false
	}
	return true
}

func (r Range) String() string {
	if !r.Bounded {
		return ">=" + r.Min.String()
	}
	if r.Min == r.Max {
		return "=" + r.Min.String()
	}
	return fmt.Sprintf(">=%s <=%s", r.Min, r.Max)
}
