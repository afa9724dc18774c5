/*
File: urlsplit.go
Version: 1.1.0
Description: Generic URI component splitting (scheme, netloc, path, query, fragment).
             No normalisation is applied: userinfo, port and scheme case are kept as written,
             since the lexical features are computed over the raw components.
*/

package main

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// urlParts are the five generic URI components.
type urlParts struct {
	Scheme   string
	Netloc   string
	Path     string
	Query    string
	Fragment string
}

const schemeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-."

func isC0OrSpace(r rune) bool {
	return r <= 0x1f || r == ' '
}

// splitURL splits raw into its components. It only fails on a malformed bracketed
// host in the network location.
func splitURL(raw string) (urlParts, error) {
	var p urlParts

	s := strings.TrimLeftFunc(raw, isC0OrSpace)
	s = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(s)

	if i := strings.IndexByte(s, ':'); i > 0 && isASCIILetter(rune(s[0])) {
		valid := true
		for j := 0; j < i; j++ {
			if strings.IndexByte(schemeChars, s[j]) < 0 {
				valid = false
				break
			}
		}
		if valid {
			p.Scheme = s[:i]
			s = s[i+1:]
		}
	}

	if strings.HasPrefix(s, "//") {
		end := len(s)
		for _, delim := range []byte{'/', '?', '#'} {
			if j := strings.IndexByte(s[2:], delim); j >= 0 && j+2 < end {
				end = j + 2
			}
		}
		p.Netloc = s[2:end]
		s = s[end:]

		open := strings.Contains(p.Netloc, "[")
		closed := strings.Contains(p.Netloc, "]")
		if open != closed {
			return p, fmt.Errorf("%w: invalid IPv6 netloc %q", ErrMalformedURL, p.Netloc)
		}
		if open {
			if err := checkBracketedNetloc(p.Netloc); err != nil {
				return p, fmt.Errorf("%w: %v in netloc %q", ErrMalformedURL, err, p.Netloc)
			}
		}
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		p.Fragment = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		p.Query = s[i+1:]
		s = s[:i]
	}
	p.Path = s
	return p, nil
}

var ipvFutureRE = regexp.MustCompile(`(?i)^v[0-9a-f]+\..+$`)

// checkBracketedNetloc validates "[host]" after any userinfo: nothing may precede the
// bracket, only a port may follow it, and host must be an IPv6 address (zone allowed)
// or an IPvFuture literal.
func checkBracketedNetloc(netloc string) error {
	if i := strings.LastIndexByte(netloc, '@'); i >= 0 {
		netloc = netloc[i+1:]
	}
	before, bracketed, found := strings.Cut(netloc, "[")
	if !found {
		return nil
	}
	if before != "" {
		return errors.New("text before bracketed host")
	}
	host, port, _ := strings.Cut(bracketed, "]")
	if port != "" && !strings.HasPrefix(port, ":") {
		return errors.New("text after bracketed host")
	}
	if strings.HasPrefix(host, "v") {
		if !ipvFutureRE.MatchString(host) {
			return fmt.Errorf("invalid IPvFuture address %q", host)
		}
		return nil
	}
	addr, err := netip.ParseAddr(strings.SplitN(host, "%", 2)[0])
	if err != nil {
		return fmt.Errorf("invalid IPv6 address %q", host)
	}
	if !addr.Is6() {
		return fmt.Errorf("IPv4 address %q cannot be bracketed", host)
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
