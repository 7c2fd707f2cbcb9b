package apiscope

import (
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

const recordTimestampFormat = "2006-01-02 15:04:05"

// builder turns captured exchanges into wire records. It is pure: all I/O and
// queueing stays in the monitor.
type builder struct {
	projectID string
	policy    FieldPolicy
	excluded  map[string]struct{}
	maxBody   int
	server    ServerInfo
	language  LanguageInfo
}

func newBuilder(cfg Config, policy FieldPolicy) *builder {
	zone, _ := time.Now().Zone()
	return &builder{
		projectID: cfg.ProjectID,
		policy:    policy,
		excluded:  headerSet(cfg.ExcludedHeaders),
		maxBody:   cfg.MaxBodyBytes,
		server: ServerInfo{
			Timezone: zone,
			OS: OSInfo{
				Name:         runtime.GOOS,
				Architecture: runtime.GOARCH,
			},
		},
		language: LanguageInfo{Name: sdkLanguage, Version: runtime.Version()},
	}
}

func (b *builder) build(ex Exchange) Record {
	reqCanonical := CanonicalHeaders(ex.RequestHeaders)
	resCanonical := CanonicalHeaders(ex.ResponseHeaders)

	reqRaw := DecodeContentEncoding(ex.RequestBody, reqCanonical["content-encoding"])
	resRaw := DecodeContentEncoding(ex.ResponseBody, resCanonical["content-encoding"])

	reqDoc := MaskBody(reqRaw, reqCanonical["content-type"], b.maxBody, b.policy)
	resDoc := MaskBody(resRaw, resCanonical["content-type"], b.maxBody, b.policy)

	errs := []RecordError{}
	if ex.Fault != nil {
		errs = append(errs, RecordError{Source: errSourceHandler, Type: ex.Fault.Type, Message: ex.Fault.Message})
	}
	errs = append(errs, bodyFlags(errSourceRequestBody, reqDoc, ex.RequestTruncated)...)
	errs = append(errs, bodyFlags(errSourceResponseBody, resDoc, ex.ResponseTruncated)...)

	size := ex.ResponseSize
	if size == 0 {
		size = int64(len(ex.ResponseBody))
	}

	server := b.server
	server.Software = ex.Software
	server.Protocol = ex.Proto

	return Record{
		RecordID:  uuid.NewString(),
		ProjectID: b.projectID,
		SDK:       sdkLanguage,
		Version:   sdkVersion,
		Data: RecordData{
			Server:   server,
			Language: b.language,
			Request: RequestInfo{
				Timestamp: ex.Start.UTC().Format(recordTimestampFormat),
				IP:        ex.IP,
				URL:       ex.URL,
				UserAgent: ex.UserAgent,
				Method:    strings.ToUpper(ex.Method),
				Headers:   maskHeaders(reqCanonical, b.policy, b.excluded),
				Body:      bodyValue(reqDoc),
			},
			Response: ResponseInfo{
				Headers:    maskHeaders(resCanonical, b.policy, b.excluded),
				Code:       ex.StatusCode,
				Size:       size,
				LoadTimeMS: ex.End.Sub(ex.Start).Milliseconds(),
				Body:       bodyValue(resDoc),
			},
			Errors: errs,
		},
	}
}

func bodyFlags(source string, doc Document, truncated bool) []RecordError {
	var flags []RecordError
	if doc.Kind == DocumentOpaque {
		flags = append(flags, RecordError{
			Source:  source,
			Type:    errTypeUnmaskable,
			Message: "body is not parseable; captured verbatim without masking",
		})
	}
	if doc.Truncated || truncated {
		flags = append(flags, RecordError{
			Source:  source,
			Type:    errTypeTruncated,
			Message: "body exceeded the capture limit and was cut off",
		})
	}
	return flags
}

func bodyValue(doc Document) any {
	if doc.Kind == DocumentEmpty {
		return map[string]any{}
	}
	return doc.Value
}
