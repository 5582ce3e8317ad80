package voice

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrInvalidURL      = errors.New("voice: invalid stream url")
	ErrMuteUnsupported = errors.New("voice: transport cannot mute")
	ErrClosed          = errors.New("voice: transport closed")
)

// Transport is the adapter between Session and the vendor's call protocol.
//
// Exactly one Transport is live per Session. Join blocks until the call is
// established or fails; events are delivered on the transport's own goroutine
// until Leave returns.
type Transport interface {
	Join(ctx context.Context, joinURL string, events TransportEvents) error
	Leave(ctx context.Context) error
	SetMicMuted(muted bool) error
}

// TransportEvents receives vendor events. Either field may be nil.
type TransportEvents struct {
	Status     func(Status)
	Transcript func(Transcript)
}

// TransportFactory builds a Transport for one call using the vendor API key.
type TransportFactory func(apiKey string) (Transport, error)

// hostSchemes are the schemes that are meaningless without a host.
var hostSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true, "ftp": true}

// ValidStreamURL reports whether s parses as an absolute URL the way a browser
// URL parser would accept it: any scheme, with a host required only for the
// network schemes. "file:///x" and "foo:" pass; "https://" does not.
func ValidStreamURL(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	if hostSchemes[strings.ToLower(u.Scheme)] {
		return u.Host != ""
	}
	return true
}

var apiKeyParam = regexp.MustCompile(`(?i)(api_key|apikey)=([^&]+)`)

// SanitizeURL redacts credentials carried in websocket URLs before logging.
func SanitizeURL(s string) string {
	return apiKeyParam.ReplaceAllString(s, "$1=REDACTED")
}
