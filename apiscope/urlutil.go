package apiscope

import (
	"net/url"
	"strings"
)

// PathFromURL extracts the path component from a request URI or a full URL.
// Returns "" when no path can be derived.
func PathFromURL(raw string) string {
	if raw == "" {
		return ""
	}

	path := raw

	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "//") {
		if u, err := url.Parse(raw); err == nil {
			path = preferredPath(u)
		}
	} else if strings.HasPrefix(raw, "/") {
		path = raw
	} else if u, err := url.Parse(raw); err == nil {
		if candidate := preferredPath(u); candidate != "" {
			path = candidate
		}
	}

	path = trimQuery(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func preferredPath(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.EscapedPath() != "" {
		return u.EscapedPath()
	}
	return u.Path
}

func trimQuery(raw string) string {
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

// matchRoute reports whether path matches an ignored-route pattern. A
// trailing '*' turns the pattern into a prefix match.
func matchRoute(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}
