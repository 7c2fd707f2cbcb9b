package apiscope

// Record is the unit shipped to the collector. Field names are part of the
// ingest contract and must not change.
type Record struct {
	RecordID  string     `json:"record_id"`
	ProjectID string     `json:"project_id"`
	SDK       string     `json:"sdk"`
	Version   string     `json:"version"`
	Data      RecordData `json:"data"`
}

// RecordData carries the observed exchange plus environment identification.
type RecordData struct {
	Server   ServerInfo    `json:"server"`
	Language LanguageInfo  `json:"language"`
	Request  RequestInfo   `json:"request"`
	Response ResponseInfo  `json:"response"`
	Errors   []RecordError `json:"errors"`
}

// ServerInfo identifies the host serving the observed traffic.
type ServerInfo struct {
	Timezone string `json:"timezone"`
	Software string `json:"software"`
	Protocol string `json:"protocol"`
	OS       OSInfo `json:"os"`
}

// OSInfo identifies the operating system the server runs on.
type OSInfo struct {
	Name         string `json:"name"`
	Release      string `json:"release"`
	Architecture string `json:"architecture"`
}

// LanguageInfo identifies the runtime producing the record.
type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RequestInfo is the masked view of the captured request.
type RequestInfo struct {
	Timestamp string            `json:"timestamp"`
	IP        string            `json:"ip"`
	URL       string            `json:"url"`
	UserAgent string            `json:"user_agent"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      any               `json:"body"`
}

// ResponseInfo is the masked view of the captured response. LoadTimeMS is the
// wall-clock handler latency in milliseconds.
type ResponseInfo struct {
	Headers    map[string]string `json:"headers"`
	Code       int               `json:"code"`
	Size       int64             `json:"size"`
	LoadTimeMS int64             `json:"load_time_ms"`
	Body       any               `json:"body"`
}

// RecordError is one flag attached to a record: a handler fault, an
// unmaskable body, or a truncated capture.
type RecordError struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	errSourceHandler      = "handler"
	errSourceRequestBody  = "request_body"
	errSourceResponseBody = "response_body"

	errTypeUnmaskable = "UNMASKABLE_BODY"
	errTypeTruncated  = "TRUNCATED_BODY"
)

// FaultTypePanic marks faults produced by a recovered handler panic.
const FaultTypePanic = "PANIC"
