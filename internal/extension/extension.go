package extension

import (
	"regexp"
	"strings"
)

// Origin classifies how an installed extension got there.
type Origin int

const (
	// Bundled extensions ship with castd itself: they appear in the
	// application's own dependency manifest.
	Bundled Origin = iota
	// SourceControlled extensions contain VCS metadata; a developer manages
	// them, not the package manager.
	SourceControlled
	// Symlinked extensions are links into a working copy elsewhere.
	Symlinked
	// Extraneous extensions were installed by the operator on top of the
	// bundle. Only these are upgrade candidates.
	Extraneous
)

func (o Origin) String() string {
	switch o {
	case Bundled:
		return "bundled"
	case SourceControlled:
		return "source-controlled"
	case Symlinked:
		return "symlinked"
	case Extraneous:
		return "extraneous"
	default:
		return "unknown"
	}
}

// Record is one installed extension with its classification. Records are
// recomputed on every scan and never persisted.
type Record struct {
	Name             string
	InstalledVersion string
	Origin           Origin
}

var namePattern = regexp.MustCompile(`^castd-(plugin|theme|widget|reward)-[a-z0-9][a-z0-9._-]*$`)

// MatchesName reports whether s follows the extension naming convention.
func MatchesName(s string) bool { return namePattern.MatchString(s) }

// IsTheme reports whether s names a theme package. Theme activation is
// routed through the worker's reset mode rather than plugin activation.
func IsTheme(s string) bool {
	return strings.HasPrefix(s, "castd-theme-") && namePattern.MatchString(s)
}
