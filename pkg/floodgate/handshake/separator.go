package handshake

import (
	"strings"

	"go.minekube.com/floodgate/pkg/floodgate/crypto"
)

// HostnameSeparator separates the segments of a handshake hostname.
const HostnameSeparator = "\x00"

// Separated is a handshake hostname split into the Floodgate token
// and the hostname without it.
type Separated struct {
	// Token is empty if the hostname carries no Floodgate token.
	Token string
	// DataVersion is the version of Token or -1.
	DataVersion int
	Hostname    string
}

// HasToken reports whether a Floodgate token was found.
func (s Separated) HasToken() bool { return s.Token != "" }

// Separate finds the first segment of hostname that starts with the
// Floodgate header and rejoins the remaining segments.
// Trailing empty segments are dropped from the rejoined hostname.
// A hostname without token is returned unchanged.
func Separate(hostname string) Separated {
	segments := strings.Split(hostname, HostnameSeparator)
	tokenIdx, version := -1, -1
	for i, s := range segments {
		if v := crypto.VersionString(s); v != -1 {
			tokenIdx, version = i, v
			break
		}
	}
	if tokenIdx == -1 {
		return Separated{DataVersion: -1, Hostname: hostname}
	}

	token := segments[tokenIdx]
	rest := append(segments[:tokenIdx:tokenIdx], segments[tokenIdx+1:]...)
	for len(rest) != 0 && rest[len(rest)-1] == "" {
		rest = rest[:len(rest)-1]
	}
	return Separated{
		Token:       token,
		DataVersion: version,
		Hostname:    strings.Join(rest, HostnameSeparator),
	}
}

// correctHostname replaces the ip and uuid segments of a hostname
// forwarded by a proxy. Hostnames with less than 3 segments are
// returned unchanged.
func correctHostname(hostname, ip, javaUUID string) string {
	segments := strings.Split(hostname, HostnameSeparator)
	if len(segments) < 3 {
		return hostname
	}
	segments[1] = ip
	segments[2] = javaUUID
	return strings.Join(segments, HostnameSeparator)
}
