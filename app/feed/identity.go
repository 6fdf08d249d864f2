package feed

import (
	"cmp"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

type IDScheme string

const (
	// IDSchemeHash derives the id from sha1(link + "-" + tab_key), the same
	// scheme the serving layer uses for manually added items.
	IDSchemeHash IDScheme = "hash"
	// IDSchemeNative uses the feed-provided guid/id, then the link, then
	// title+timestamp, truncated to MaxIDLength.
	IDSchemeNative IDScheme = "native"
)

const MaxIDLength = 128

// RawEntry holds the untouched entry fields identity is derived from.
type RawEntry struct {
	GUID      string
	Link      string
	Title     string
	Timestamp string
}

// NativeKey walks the guid -> link -> title+timestamp chain. It may return
// an empty string; such entries never survive the required-field filter.
func (e RawEntry) NativeKey() string {
	return cmp.Or(e.GUID, e.Link, e.Title+e.Timestamp)
}

func AssignID(entry RawEntry, tabKey string, scheme IDScheme) string {
	switch scheme {
	case IDSchemeNative:
		return truncateID(entry.NativeKey())
	default:
		key := cmp.Or(entry.Link, entry.NativeKey())
		if key == "" {
			return ""
		}
		sum := sha1.Sum([]byte(fmt.Sprintf("%s-%s", key, tabKey)))
		return hex.EncodeToString(sum[:])
	}
}

func ValidIDScheme(scheme IDScheme) bool {
	return scheme == IDSchemeHash || scheme == IDSchemeNative
}

// truncateID cuts s to at most MaxIDLength bytes without splitting a rune.
func truncateID(s string) string {
	if len(s) <= MaxIDLength {
		return s
	}
	cut := MaxIDLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
