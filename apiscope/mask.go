package apiscope

import "encoding/json"

// DocumentKind tells how a captured body survived masking.
type DocumentKind int

const (
	// DocumentEmpty marks a body with no bytes.
	DocumentEmpty DocumentKind = iota
	// DocumentJSON marks a parsed body whose sensitive fields were masked.
	DocumentJSON
	// DocumentOpaque marks a body passed through unparsed and unmasked.
	DocumentOpaque
)

// Document is the masked form of a captured body. For DocumentJSON the value
// is the masked tree; for DocumentOpaque it is the raw payload as a string or
// a base64 wrapper. Truncated is set when the capture hit the body size limit.
type Document struct {
	Kind      DocumentKind
	Value     any
	Truncated bool
}

// MaskBody parses a captured body and replaces the value of every field whose
// name matches the policy with MaskToken. Bodies longer than limit are cut to
// limit bytes first and flagged. Non-JSON content types and bodies that fail
// to parse come back opaque; masking never fails and never touches raw.
func MaskBody(raw []byte, contentType string, limit int, policy FieldPolicy) Document {
	if len(raw) == 0 {
		return Document{Kind: DocumentEmpty}
	}

	truncated := false
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
		truncated = true
	}

	if !jsonContent(contentType) {
		return Document{Kind: DocumentOpaque, Value: opaquePayload(raw), Truncated: truncated}
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Document{Kind: DocumentOpaque, Value: opaquePayload(raw), Truncated: truncated}
	}

	return Document{Kind: DocumentJSON, Value: maskValue(parsed, policy), Truncated: truncated}
}

func maskValue(value any, policy FieldPolicy) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if policy.IsSensitive(key) {
				out[key] = MaskToken
			} else {
				out[key] = maskValue(val, policy)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskValue(item, policy)
		}
		return out
	default:
		return value
	}
}
