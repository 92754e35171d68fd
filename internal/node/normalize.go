package node

import (
	"strings"

	"github.com/samber/lo"
)

// UnknownMarker is appended to labels that carry no recognized flag.
const UnknownMarker = "🏳️ZZ"

// misflagged maps known wrong label spellings to their replacement.
// Both the decoded and the percent-encoded forms are listed because a
// fragment that fails to decode is matched as-is.
var misflagged = []struct {
	from string
	to   string
}{
	{"🇨🇳TW", "🇹🇼TW"},
	{"%F0%9F%87%A8%F0%9F%87%B3TW", "🇹🇼TW"},
}

// Normalizer fixes known label mistakes and marks labels without a region.
type Normalizer struct {
	// Flags are the recognized region flag symbols.
	Flags []string

	// Marker is appended to a label containing none of Flags.
	Marker string
}

// Normalize returns raw with its label normalized. Strings that are not
// recognized nodes are returned unchanged.
func (n Normalizer) Normalize(raw string) string {
	if KindOf(raw) == KindUnknown {
		return raw
	}
	// On a decode error Label still returns the undecoded fragment, which
	// is what the percent-encoded replacements are for.
	label, _ := Label(raw)

	fixed := FixLabel(label)
	if !n.hasFlag(fixed) {
		fixed += n.Marker
	}
	if fixed == label {
		return raw
	}
	return WithLabel(raw, fixed)
}

// FixLabel applies the known label corrections.
func FixLabel(label string) string {
	for _, m := range misflagged {
		label = strings.ReplaceAll(label, m.from, m.to)
	}
	return label
}

func (n Normalizer) hasFlag(label string) bool {
	if n.Marker != "" && strings.Contains(label, n.Marker) {
		return true
	}
	return lo.ContainsBy(n.Flags, func(flag string) bool {
		return flag != "" && strings.Contains(label, flag)
	})
}

// Dedup removes exact duplicates, keeping the first occurrence.
func Dedup(nodes []string) []string {
	return lo.Uniq(nodes)
}
