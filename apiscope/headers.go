package apiscope

import "strings"

// CanonicalHeaders lowercases header names and joins repeated values with
// ", " in their original order. Accepts http.Header and fasthttp-derived maps
// alike.
func CanonicalHeaders(h map[string][]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}

// maskHeaders applies the field policy to canonical (lower-cased) headers.
// Excluded names are removed outright. Authorization keeps its scheme so the
// record still shows how the caller authenticated.
func maskHeaders(in map[string]string, policy FieldPolicy, excluded map[string]struct{}) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		if _, drop := excluded[key]; drop {
			continue
		}
		switch {
		case key == "authorization" || key == "proxy-authorization":
			out[key] = maskAuthorization(value)
		case policy.IsSensitive(key):
			out[key] = MaskToken
		default:
			out[key] = value
		}
	}
	return out
}

func maskAuthorization(value string) string {
	scheme, _, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found {
		return MaskToken
	}
	switch strings.ToLower(scheme) {
	case "basic", "bearer", "digest", "token":
		return scheme + " " + MaskToken
	}
	return MaskToken
}

func headerSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out[name] = struct{}{}
	}
	return out
}
