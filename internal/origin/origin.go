// Package origin decides which browser origins may talk to tabtrace endpoints.
package origin

import "net/url"

// Allowed reports whether a request origin is accepted. Requests without an
// Origin header (curl, scripts) are allowed.
func Allowed(origin string) bool {
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "chrome-extension":
		return u.Host != ""
	case "http":
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	default:
		return false
	}
}
