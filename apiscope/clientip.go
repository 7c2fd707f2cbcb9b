package apiscope

import (
	"net"
	"strings"
)

var clientIPHeaders = []string{
	"cf-connecting-ip",
	"true-client-ip",
	"x-forwarded-for",
	"x-real-ip",
	"x-cluster-client-ip",
	"fastly-client-ip",
}

// ClientIP resolves the originating client address from proxy headers,
// falling back to the transport peer address. Returns "" when nothing
// resolves to a valid IP.
func ClientIP(headers map[string][]string, remoteAddr string) string {
	canonical := CanonicalHeaders(headers)

	for _, name := range clientIPHeaders {
		if value, ok := canonical[name]; ok {
			if ip := firstIPFromList(value); ip != "" {
				return ip
			}
		}
	}

	if forwarded, ok := canonical["forwarded"]; ok {
		if ip := parseForwardedHeader(forwarded); ip != "" {
			return ip
		}
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	return normalizeIP(host)
}

func firstIPFromList(value string) string {
	for _, part := range strings.Split(value, ",") {
		candidate := strings.Trim(strings.TrimSpace(part), "\"")
		if ip := normalizeIP(candidate); ip != "" {
			return ip
		}
	}
	return ""
}

// parseForwardedHeader pulls the first valid for= element from an RFC 7239
// Forwarded header.
func parseForwardedHeader(value string) string {
	for _, segment := range strings.Split(value, ";") {
		for _, item := range strings.Split(segment, ",") {
			key, val, ok := strings.Cut(item, "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "for") {
				continue
			}
			candidate := strings.Trim(strings.TrimSpace(val), "\"")
			if host, _, err := net.SplitHostPort(candidate); err == nil {
				candidate = host
			}
			if ip := normalizeIP(candidate); ip != "" {
				return ip
			}
		}
	}
	return ""
}

// normalizeIP strips IPv6 brackets and rejects anything that is not an
// address literal.
func normalizeIP(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if value == "" || net.ParseIP(value) == nil {
		return ""
	}
	return value
}
