// Package nethttp provides middleware for instrumenting net/http handlers.
package nethttp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/valyala/bytebufferpool"

	apiscope "github.com/apiscopehq/apiscope-go/apiscope"
)

// Middleware returns a net/http middleware that records requests via the
// provided monitor. The wrapped handler's bytes, headers, status and panics
// reach the client exactly as written.
func Middleware(monitor *apiscope.Monitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if monitor == nil || !monitor.Enabled() {
			return next
		}
		cfg := monitor.Config()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if monitor.Ignores(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			var reqBody []byte
			var reqTruncated bool
			if !cfg.DisableRequestBody {
				reqBody, reqTruncated = captureRequestBody(r, cfg.MaxBodyBytes)
			}

			capture := newResponseCapture(w, cfg.MaxBodyBytes, !cfg.DisableResponseBody)
			defer capture.release()

			var recovered any
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						recovered = rec
						capture.ensureStatus(http.StatusInternalServerError)
					}
				}()
				next.ServeHTTP(capture, r)
			}()

			ex := apiscope.Exchange{
				Method:    r.Method,
				URL:       fullURL(r),
				Path:      r.URL.Path,
				Proto:     r.Proto,
				IP:        apiscope.ClientIP(r.Header, r.RemoteAddr),
				UserAgent: r.UserAgent(),
				Software:  "net/http",

				RequestHeaders:   r.Header,
				RequestBody:      reqBody,
				RequestTruncated: reqTruncated,

				StatusCode:        capture.statusCode(),
				ResponseHeaders:   capture.Header(),
				ResponseBody:      capture.captured(),
				ResponseTruncated: capture.truncated(),
				ResponseSize:      capture.written,

				Start: start,
				End:   time.Now(),
			}
			if recovered != nil {
				ex.Fault = &apiscope.Fault{Type: apiscope.FaultTypePanic, Message: stringify(recovered)}
			}

			monitor.Observe(ex)

			if recovered != nil {
				panic(recovered)
			}
		})
	}
}

// captureRequestBody buffers up to limit bytes of the request body and
// splices them back in front of the remaining stream, so the inner handler
// still reads the full body untouched.
func captureRequestBody(r *http.Request, limit int) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	orig := r.Body
	n, _ := io.Copy(buf, io.LimitReader(orig, int64(limit)+1))
	owned := append([]byte(nil), buf.B...)

	r.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(owned), orig),
		closer: orig,
	}

	if n > int64(limit) {
		return owned[:limit], true
	}
	return owned, false
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b replayBody) Close() error { return b.closer.Close() }

type responseCapture struct {
	http.ResponseWriter
	status  int
	limit   int
	body    *bytebufferpool.ByteBuffer
	written int64
}

func newResponseCapture(w http.ResponseWriter, limit int, buffer bool) *responseCapture {
	rc := &responseCapture{ResponseWriter: w, limit: limit}
	if buffer {
		rc.body = bytebufferpool.Get()
	}
	return rc
}

func (rw *responseCapture) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseCapture) Write(b []byte) (int, error) {
	rw.written += int64(len(b))
	if rw.body != nil && rw.body.Len() < rw.limit {
		if room := rw.limit - rw.body.Len(); len(b) > room {
			rw.body.Write(b[:room])
		} else {
			rw.body.Write(b)
		}
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseCapture) captured() []byte {
	if rw.body == nil {
		return nil
	}
	return rw.body.B
}

func (rw *responseCapture) truncated() bool {
	return rw.body != nil && rw.written > int64(rw.limit)
}

func (rw *responseCapture) release() {
	if rw.body != nil {
		bytebufferpool.Put(rw.body)
		rw.body = nil
	}
}

func (rw *responseCapture) ensureStatus(code int) {
	if rw.status == 0 || rw.status < code {
		rw.status = code
	}
}

func (rw *responseCapture) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseCapture) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

func (rw *responseCapture) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := rw.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}

var (
	_ http.Flusher  = (*responseCapture)(nil)
	_ http.Hijacker = (*responseCapture)(nil)
	_ http.Pusher   = (*responseCapture)(nil)
)

func fullURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case error:
		return val.Error()
	default:
		return fmt.Sprint(val)
	}
}
