// Package extract turns raw user input (URLs, bare tokens, bulk lists) into
// YouTube identifiers. Nothing here performs I/O; a miss is reported with a
// false second return value and callers decide whether that is fatal.
package extract

import (
	"regexp"
	"strings"
)

var (
	videoTokenRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// Covers youtu.be short links, watch?v= with v anywhere in the query,
	// and the /embed/, /v/, /e/, /shorts/ and /live/ path forms.
	videoURLRE = regexp.MustCompile(
		`(?i)(?:youtu\.be/|youtube(?:-nocookie)?\.com/(?:(?:embed|v|e|shorts|live)/|(?:watch|attribution_link)?\?(?:[^#\s]*&)?v=))([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

	playlistParamRE = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`)
	playlistTokenRE = regexp.MustCompile(`^(?:PL|UU|LL|FL|OL|RD|OLAK5uy_)[A-Za-z0-9_-]{10,}$`)

	channelURLRE   = regexp.MustCompile(`(?i)youtube\.com/channel/(UC[A-Za-z0-9_-]{22})`)
	channelTokenRE = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

	ownerURLRE    = regexp.MustCompile(`(?i)youtube\.com/(@|c/|user/)?([^/?#\s]+)`)
	handleTokenRE = regexp.MustCompile(`^@[A-Za-z0-9._-]{3,30}$`)
)

// Path segments of youtube.com that never name a channel owner.
var reservedPaths = map[string]bool{
	"watch": true, "playlist": true, "results": true, "embed": true, "shorts": true,
	"live": true, "channel": true, "feed": true, "v": true, "e": true, "hashtag": true,
	"attribution_link": true, "redirect": true, "premium": true, "gaming": true,
}

// VideoID extracts an 11-character video ID from a URL or a bare token.
func VideoID(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if videoTokenRE.MatchString(text) {
		return text, true
	}
	if m := videoURLRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// PlaylistID extracts a playlist ID from a list= parameter or a bare token.
func PlaylistID(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if m := playlistParamRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if playlistTokenRE.MatchString(text) {
		return text, true
	}
	return "", false
}

// ChannelID extracts a UC… channel ID from a /channel/ URL or a bare token.
func ChannelID(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if channelTokenRE.MatchString(text) {
		return text, true
	}
	if m := channelURLRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// Owner extracts the owner name of a channel URL that does not carry a
// channel ID: @handles (returned with the @), /user/ and /c/ names and vanity
// URLs. The name still has to be resolved through a lookup.
func Owner(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if handleTokenRE.MatchString(text) {
		return text, true
	}
	m := ownerURLRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	prefix, name := m[1], m[2]
	if name == "" {
		return "", false
	}
	if prefix == "@" {
		return "@" + name, true
	}
	if prefix == "" && reservedPaths[strings.ToLower(name)] {
		return "", false
	}
	return name, true
}
