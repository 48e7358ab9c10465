// Status line on stdout after a successful copy.
package main

import (
	"io"
	"net/url"
	"strings"
)

// progressOut receives the status line. main sets it to os.Stdout unless
// --silent is given.
var progressOut io.Writer = io.Discard

// shortURL returns a compact display form of a URL: host + trimmed path,
// no scheme. Truncated to 60 characters with "..." if needed.
func shortURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	display := u.Host + u.Path
	display = strings.TrimSuffix(display, "/")
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	return display
}
