package apiscope

import (
	"net/http"
	"testing"
)

func TestCanonicalHeadersFlattensAndLowercases(t *testing.T) {
	headers := http.Header{}
	headers.Add("Content-Type", "application/json")
	headers.Add("Set-Cookie", "a=1")
	headers.Add("Set-Cookie", "b=2")

	canon := CanonicalHeaders(headers)
	if canon["content-type"] != "application/json" {
		t.Fatalf("expected lowercased content-type, got %q", canon["content-type"])
	}
	if canon["set-cookie"] != "a=1, b=2" {
		t.Fatalf("expected joined set-cookie, got %q", canon["set-cookie"])
	}
	if got := CanonicalHeaders(nil); len(got) != 0 {
		t.Fatalf("expected empty map for nil headers, got %v", got)
	}
}

func TestMaskHeadersKeepsAuthorizationScheme(t *testing.T) {
	policy := NewFieldPolicy(true, []string{"x-session-token"})
	excluded := headerSet([]string{"Cookie"})

	in := map[string]string{
		"authorization":   "Bearer eyJhbGciOi",
		"cookie":          "session=abc",
		"x-session-token": "tok_123",
		"accept":          "application/json",
	}
	out := maskHeaders(in, policy, excluded)

	if out["authorization"] != "Bearer "+MaskToken {
		t.Fatalf("expected scheme-preserving mask, got %q", out["authorization"])
	}
	if _, ok := out["cookie"]; ok {
		t.Fatal("expected excluded header to be removed")
	}
	if out["x-session-token"] != MaskToken {
		t.Fatalf("expected sensitive header masked, got %q", out["x-session-token"])
	}
	if out["accept"] != "application/json" {
		t.Fatalf("expected benign header unchanged, got %q", out["accept"])
	}
}

func TestMaskAuthorizationWithoutScheme(t *testing.T) {
	if got := maskAuthorization("opaque-credential"); got != MaskToken {
		t.Fatalf("expected full mask for schemeless value, got %q", got)
	}
	if got := maskAuthorization("NTLM abcdef"); got != MaskToken {
		t.Fatalf("expected full mask for unknown scheme, got %q", got)
	}
}
