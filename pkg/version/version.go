package version

import (
	"net/http"
	"strings"
)

// version is set by build flags:
// -ldflags "-X go.minekube.com/floodgate/pkg/version.version=v1.2.3"
var version = "unknown"

func String() string {
	return version
}

// UserAgent is the user agent of outgoing http requests.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("Floodgate-Go/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("Dirty")
	}
	return s.String()
}

func UserAgentHeader() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent())
	return h
}
