package models

import (
	"fmt"
	"strings"
)

// InputKind tags what a raw input refers to.
type InputKind int

const (
	KindVideo InputKind = iota + 1
	KindChannel
	KindPlaylist
	KindSearch
	KindJSON
	KindCSV
	KindLinks
)

var inputKindNames = map[InputKind]string{
	KindVideo:    "video",
	KindChannel:  "channel",
	KindPlaylist: "playlist",
	KindSearch:   "search",
	KindJSON:     "json",
	KindCSV:      "csv",
	KindLinks:    "links",
}

func (k InputKind) String() string {
	if name, ok := inputKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("InputKind(%d)", int(k))
}

// Bulk reports whether the kind carries a list of video references.
func (k InputKind) Bulk() bool {
	return k == KindJSON || k == KindCSV || k == KindLinks
}

// Collection reports whether the kind resolves through a paginated listing.
func (k InputKind) Collection() bool {
	return k == KindChannel || k == KindPlaylist || k == KindSearch
}

// ParseInputKind maps a name such as "playlist" to its InputKind.
func ParseInputKind(s string) (InputKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range inputKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown input kind %q (want video, channel, playlist, search, json, csv or links)", s)
}

// MarshalText lets InputKind appear by name in YAML and JSON.
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *InputKind) UnmarshalText(text []byte) error {
	parsed, err := ParseInputKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
