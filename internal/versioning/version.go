package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// APIVersion is a semantic version of the wire contract served under /api.
type APIVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Current is the contract version this server speaks.
var Current = APIVersion{Major: 1, Minor: 0, Patch: 0}

// MinSupported is the oldest client contract version still accepted.
var MinSupported = APIVersion{Major: 1, Minor: 0, Patch: 0}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 as v sorts before, equal to, or after other.
func (v APIVersion) Compare(other APIVersion) int {
	pairs := [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// IsCompatible reports whether a client speaking version v can use this
// server: same major, and not older than MinSupported.
func (v APIVersion) IsCompatible() bool {
	return v.Major == Current.Major && v.Compare(MinSupported) >= 0
}

var versionPattern = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?$`)

// Parse reads "1", "1.2", "1.2.3" or "v1.2.3".
func Parse(s string) (APIVersion, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return APIVersion{}, fmt.Errorf("invalid version string: %q", s)
	}

	var v APIVersion
	v.Major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		v.Minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}
