/*
File: utils.go
Description: Common helpers for client address parsing, URL host handling and file paths.
*/

package main

import (
	"net"
	"os"
	"strings"
)

// getIPFromRemoteAddr parses the client IP out of an http.Request RemoteAddr
// ("ip:port", "[v6]:port" or a bare address).
func getIPFromRemoteAddr(addr string) net.IP {
	if addr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(strings.Trim(addr, "[]"))
	}
	return net.ParseIP(host)
}

// hostFromNetloc strips userinfo and port from a network location. IPv6 literals
// keep their brackets.
func hostFromNetloc(netloc string) string {
	if i := strings.LastIndexByte(netloc, '@'); i >= 0 {
		netloc = netloc[i+1:]
	}
	if strings.HasPrefix(netloc, "[") {
		if i := strings.IndexByte(netloc, ']'); i >= 0 {
			return netloc[:i+1]
		}
		return netloc
	}
	if i := strings.LastIndexByte(netloc, ':'); i >= 0 {
		return netloc[:i]
	}
	return netloc
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
