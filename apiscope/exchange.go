package apiscope

import "time"

// Fault records a handler failure observed during capture, typically a
// recovered panic. The panic itself is re-raised by the adapter; the fault is
// only what ends up in the telemetry record.
type Fault struct {
	Type    string
	Message string
}

// Exchange is one captured request/response pair, collected by a framework
// adapter and handed to Monitor.Observe. Header maps keep the values in the
// order they arrived; bodies hold at most the configured capture limit, with
// any overflow noted in the Truncated flags. The monitor reads an Exchange
// synchronously and keeps no reference to it afterwards.
type Exchange struct {
	Method    string
	URL       string
	Path      string
	Proto     string
	IP        string
	UserAgent string
	Software  string

	RequestHeaders   map[string][]string
	RequestBody      []byte
	RequestTruncated bool

	StatusCode        int
	ResponseHeaders   map[string][]string
	ResponseBody      []byte
	ResponseTruncated bool
	ResponseSize      int64

	Start time.Time
	End   time.Time

	Fault *Fault
}
