package pattern

import (
	"regexp"
	"strings"
)

// Kind identifies which matching strategy a target uses
type Kind int

const (
	Literal Kind = iota
	ExtensionWildcard
	Nested
)

// NestedMarker separates the start directory from the target searched at every depth
const NestedMarker = "**/"

// extensionWildcard matches "[dir/][name]*.ext": an optional slash-terminated
// directory, an optional name prefix of word characters and dashes, then a
// single "*" followed by the extension.
var extensionWildcard = regexp.MustCompile(`^(/?(?:[\w\-.]+/)*)([\w\-]*)\*(\.[^*/]+)$`)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case ExtensionWildcard:
		return "extension_wildcard"
	case Nested:
		return "nested"
	default:
		return "unknown"
	}
}

// Pattern is a classified target. Only the fields of its Kind are set.
type Pattern struct {
	Raw  string
	Kind Kind

	// Literal
	Path string

	// ExtensionWildcard: Dir is relative to the directory being searched, Prefix
	// starts the file name, Suffix keeps the dot
	Dir    string
	Prefix string
	Suffix string

	// Nested
	StartDir string
	Target   *Pattern
}

// Classify maps any string to exactly one shape. It never fails; strings that
// match neither stricter shape are literals.
func Classify(raw string) Pattern {
	if p, ok := classifyNested(raw); ok {
		return p
	}
	return classifyTarget(raw)
}

// classifyTarget decides between ExtensionWildcard and Literal. Nested targets
// go through here as well, so a target is never re-derived during the walk.
func classifyTarget(raw string) Pattern {
	if m := extensionWildcard.FindStringSubmatch(raw); m != nil {
		return Pattern{
			Raw:    raw,
			Kind:   ExtensionWildcard,
			Dir:    strings.TrimSuffix(m[1], "/"),
			Prefix: m[2],
			Suffix: m[3],
		}
	}
	return Pattern{Raw: raw, Kind: Literal, Path: raw}
}

func classifyNested(raw string) (Pattern, bool) {
	idx := nestedIndex(raw)
	if idx < 0 {
		return Pattern{}, false
	}

	rest := raw[idx+len(NestedMarker):]
	if rest == "" {
		return Pattern{}, false
	}

	start := strings.TrimSuffix(raw[:idx], "/")
	start = strings.TrimPrefix(start, ".")

	target := classifyTarget(rest)
	return Pattern{
		Raw:      raw,
		Kind:     Nested,
		StartDir: start,
		Target:   &target,
	}, true
}

// nestedIndex returns the index of the first standalone "**/" segment, or -1.
// Standalone means at the start of the string or right after a slash.
func nestedIndex(raw string) int {
	offset := 0
	for {
		i := strings.Index(raw[offset:], NestedMarker)
		if i < 0 {
			return -1
		}
		i += offset
		if i == 0 || raw[i-1] == '/' {
			return i
		}
		offset = i + 1
	}
}

// Matches reports whether name starts with the wildcard prefix and ends with
// its suffix. The "*" may match nothing.
func (p Pattern) Matches(name string) bool {
	return p.Kind == ExtensionWildcard &&
		len(name) >= len(p.Prefix)+len(p.Suffix) &&
		strings.HasPrefix(name, p.Prefix) &&
		strings.HasSuffix(name, p.Suffix)
}
