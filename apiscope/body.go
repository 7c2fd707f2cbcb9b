package apiscope

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// DecodeContentEncoding reverses the Content-Encoding applied to a captured
// body so masking sees plaintext. Unknown or broken encodings return the raw
// bytes unchanged.
func DecodeContentEncoding(raw []byte, encoding string) []byte {
	if len(raw) == 0 {
		return raw
	}
	lower := strings.ToLower(encoding)

	if strings.Contains(lower, "gzip") {
		if gr, err := gzip.NewReader(bytes.NewReader(raw)); err == nil {
			data, derr := io.ReadAll(gr)
			if cerr := gr.Close(); cerr != nil {
				return raw
			}
			if derr == nil {
				return data
			}
		}
	}

	if strings.Contains(lower, "deflate") {
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			data, derr := io.ReadAll(zr)
			if cerr := zr.Close(); cerr != nil {
				return raw
			}
			if derr == nil {
				return data
			}
		}
		if fr := flate.NewReader(bytes.NewReader(raw)); fr != nil {
			data, err := io.ReadAll(fr)
			if cerr := fr.Close(); cerr != nil {
				return raw
			}
			if err == nil {
				return data
			}
		}
	}

	if strings.Contains(lower, "br") {
		br := brotli.NewReader(bytes.NewReader(raw))
		if data, err := io.ReadAll(br); err == nil {
			return data
		}
	}

	return raw
}

func opaquePayload(raw []byte) any {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return map[string]string{"base64": base64.StdEncoding.EncodeToString(raw)}
}

func jsonContent(ctype string) bool {
	if ctype == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ctype), "json")
}
