package post

import "slices"

// Platform identifies the social network a post came from.
type Platform string

const (
	YouTube   Platform = "YouTube"
	Instagram Platform = "Instagram"
	Twitter   Platform = "Twitter"

	// Unknown tags posts whose platform label matched nothing we know.
	Unknown Platform = "Unknown"
)

// Platforms lists the canonical platforms in display order.
var Platforms = []Platform{YouTube, Instagram, Twitter}

// platformAliases maps folded labels to canonical platforms.
var platformAliases = map[string]Platform{
	"youtube":   YouTube,
	"instagram": Instagram,
	"twitter":   Twitter,
	"x":         Twitter,
}

// ParsePlatform maps a raw platform label to a canonical Platform.
// Matching is case-insensitive (and width-insensitive); "x" is an alias for
// Twitter. Unrecognized or empty labels map to Unknown.
func ParsePlatform(label string) Platform {
	if p, ok := platformAliases[Fold(label)]; ok {
		return p
	}
	return Unknown
}

// Aliases returns the folded labels ParsePlatform maps to p, sorted.
// Unknown has none.
func Aliases(p Platform) []string {
	var out []string
	for label, c := range platformAliases {
		if c == p {
			out = append(out, label)
		}
	}
	slices.Sort(out)
	return out
}

// Known reports whether p is one of the three canonical platforms.
func (p Platform) Known() bool {
	return p == YouTube || p == Instagram || p == Twitter
}

// Index returns the position of p in Platforms, or -1 for Unknown.
func (p Platform) Index() int {
	for i, c := range Platforms {
		if c == p {
			return i
		}
	}
	return -1
}
