package utils

import (
	"net"
	"net/http"
	"strings"
	"unicode"
)

// RequestOrigin rebuilds scheme://host as the client saw it. The forwarded
// headers are client-controlled unless a proxy overwrites them, so they are
// read only when trustProxy is set.
func RequestOrigin(r *http.Request, trustProxy bool) string {
	var proto, host string
	if trustProxy {
		proto = firstHeaderValue(r.Header.Get("X-Forwarded-Proto"))
		host = firstHeaderValue(r.Header.Get("X-Forwarded-Host"))
	}
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

// ClientIP prefers the CDN header, then the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); ip != "" {
		return ip
	}
	if ip := firstHeaderValue(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// SafeOneLine strips control characters and collapses whitespace so text
// can be printed on a single line, cut to max runes.
func SafeOneLine(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); max > 0 && len(runes) > max {
		return string(runes[:max])
	}
	return s
}
