// Package fasthttp provides middleware for instrumenting github.com/valyala/fasthttp handlers.
package fasthttp

import (
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	apiscope "github.com/apiscopehq/apiscope-go/apiscope"
)

// Middleware wraps a fasthttp handler with traffic capture via the provided
// monitor. The served response and any handler panic pass through unchanged.
func Middleware(monitor *apiscope.Monitor, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if monitor == nil || !monitor.Enabled() {
		return next
	}
	cfg := monitor.Config()

	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		if monitor.Ignores(path) {
			next(ctx)
			return
		}

		start := time.Now()

		reqHeaders := headerValues(ctx.Request.Header.VisitAll)

		var reqBody []byte
		var reqTruncated bool
		if !cfg.DisableRequestBody {
			reqBody, reqTruncated = boundedCopy(ctx.PostBody(), cfg.MaxBodyBytes)
		}

		var recovered any
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					recovered = rec
					ctx.Response.ResetBody()
					ctx.Response.SetStatusCode(fasthttp.StatusInternalServerError)
				}
			}()
			next(ctx)
		}()

		var resBody []byte
		var resTruncated bool
		if !cfg.DisableResponseBody {
			resBody, resTruncated = boundedCopy(ctx.Response.Body(), cfg.MaxBodyBytes)
		}

		ex := apiscope.Exchange{
			Method:    string(ctx.Method()),
			URL:       string(ctx.URI().FullURI()),
			Path:      path,
			Proto:     string(ctx.Request.Header.Protocol()),
			IP:        apiscope.ClientIP(reqHeaders, ctx.RemoteAddr().String()),
			UserAgent: string(ctx.UserAgent()),
			Software:  "fasthttp",

			RequestHeaders:   reqHeaders,
			RequestBody:      reqBody,
			RequestTruncated: reqTruncated,

			StatusCode:        ctx.Response.StatusCode(),
			ResponseHeaders:   headerValues(ctx.Response.Header.VisitAll),
			ResponseBody:      resBody,
			ResponseTruncated: resTruncated,
			ResponseSize:      int64(len(ctx.Response.Body())),

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
	}
}

func boundedCopy(src []byte, limit int) ([]byte, bool) {
	if len(src) == 0 {
		return nil, false
	}
	if limit > 0 && len(src) > limit {
		return append([]byte(nil), src[:limit]...), true
	}
	return append([]byte(nil), src...), false
}

func headerValues(visit func(func(key, value []byte))) map[string][]string {
	headers := make(map[string][]string)
	visit(func(k, v []byte) {
		key := string(k)
		headers[key] = append(headers[key], string(v))
	})
	return headers
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
