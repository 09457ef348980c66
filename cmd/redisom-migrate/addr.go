package main

import (
	"fmt"
	"net/url"
)

// addrFromConnectionURL extracts the "host:port" rueidis dials, mirroring
// the root package's unexported addrFromURL (duplicated here since this
// binary can't import an unexported helper across the module boundary).
func addrFromConnectionURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("connection url %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	return host + ":" + port, nil
}
