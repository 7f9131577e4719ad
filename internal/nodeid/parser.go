package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidSegment reports whether name can be used as a segment. Sample names go
// through this check because they become part of task IDs.
func ValidSegment(name string) bool {
	return name != "-" && segmentRegex.MatchString(name)
}

// Parse reads an address from its dotted string form.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}
	parts := strings.Split(rawID, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("identifier %q contains an empty segment", rawID)
		}
		if !ValidSegment(p) {
			return nil, fmt.Errorf("invalid path segment %q in %q", p, rawID)
		}
	}
	return &Address{Segments: parts}, nil
}

// MustParse is like Parse but panics on error. It is meant for identifiers
// built from already validated names.
func MustParse(rawID string) *Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return addr
}
