// Package usdref classifies a stage's external references ahead of a
// publish. Implicit host references ("op:" paths) and plain file references
// should themselves be published first; turret references resolve through
// the studio resolver and are fine as they are.
package usdref

import (
	"fmt"
	"sort"
	"strings"
)

// Reference schemes.
const (
	implicitPrefix = "op:"
	turretPrefix   = "turret:"
)

// Set is a stage's external references split by kind. Each slice is sorted
// and de-duplicated.
type Set struct {
	Implicit []string
	Turret   []string
	File     []string
}

// IsImplicit reports whether a path is a host-internal implicit reference.
func IsImplicit(path string) bool {
	return strings.HasPrefix(path, implicitPrefix)
}

// IsTurret reports whether a path resolves through the studio resolver.
func IsTurret(path string) bool {
	return strings.HasPrefix(path, turretPrefix)
}

// Classify splits references into implicit, turret, and file kinds.
func Classify(references []string) Set {
	seen := make(map[string]struct{}, len(references))
	var set Set
	for _, ref := range references {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}

		switch {
		case IsImplicit(ref):
			set.Implicit = append(set.Implicit, ref)
		case IsTurret(ref):
			set.Turret = append(set.Turret, ref)
		default:
			set.File = append(set.File, ref)
		}
	}
	sort.Strings(set.Implicit)
	sort.Strings(set.Turret)
	sort.Strings(set.File)
	return set
}

// Empty reports whether the stage carries no external references.
func (s Set) Empty() bool {
	return len(s.Implicit) == 0 && len(s.Turret) == 0 && len(s.File) == 0
}

// NeedsPublishing reports whether any reference points at unpublished data.
func (s Set) NeedsPublishing() bool {
	return len(s.Implicit) > 0 || len(s.File) > 0
}

// Summary renders the operator-facing reference report.
func (s Set) Summary() string {
	var b strings.Builder
	if s.Empty() {
		b.WriteString("USD file to be created will contain no external file references.")
	} else {
		b.WriteString("USD file to be created will contain external file references.")
	}

	writeGroup := func(header string, refs []string) {
		if len(refs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n\n%s:", header)
		for _, ref := range refs {
			fmt.Fprintf(&b, "\n%s", ref)
		}
	}
	writeGroup("Warning - Implicit References (Should be published)", s.Implicit)
	writeGroup("Warning - File References (Should be published)", s.File)
	writeGroup("Turret References", s.Turret)

	return b.String()
}
