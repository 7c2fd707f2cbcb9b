package apiscope

import "strings"

// MaskToken replaces every value whose field name matches the policy.
const MaskToken = "******"

var defaultMaskedFields = []string{
	"password",
	"pwd",
	"secret",
	"password_confirmation",
	"passwordConfirmation",
	"cc",
	"card_number",
	"cardNumber",
	"ccv",
	"ssn",
	"credit_score",
	"creditScore",
}

// DefaultMaskedFields returns the built-in sensitive field names.
func DefaultMaskedFields() []string {
	out := make([]string, len(defaultMaskedFields))
	copy(out, defaultMaskedFields)
	return out
}

// FieldPolicy decides which field names get masked. Matching is
// case-insensitive and exact; values are never inspected. The zero
// value matches nothing.
type FieldPolicy struct {
	fields map[string]struct{}
}

// NewFieldPolicy builds a policy from the built-in field names plus
// extra ones. Pass includeDefaults=false to start from an empty set.
func NewFieldPolicy(includeDefaults bool, extra []string) FieldPolicy {
	fields := make(map[string]struct{}, len(defaultMaskedFields)+len(extra))
	if includeDefaults {
		for _, name := range defaultMaskedFields {
			fields[strings.ToLower(name)] = struct{}{}
		}
	}
	for _, name := range extra {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fields[strings.ToLower(name)] = struct{}{}
	}
	return FieldPolicy{fields: fields}
}

// IsSensitive reports whether a field with the given name must be masked.
func (p FieldPolicy) IsSensitive(name string) bool {
	if len(p.fields) == 0 {
		return false
	}
	_, ok := p.fields[strings.ToLower(name)]
	return ok
}
