package nethttp_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	apiscope "github.com/apiscopehq/apiscope-go/apiscope"
	"github.com/apiscopehq/apiscope-go/nethttp"
)

func ExampleMiddleware() {
	disabled := false
	monitor, err := apiscope.New(apiscope.Config{Enabled: &disabled})
	if err != nil {
		panic(err)
	}

	handler := nethttp.Middleware(monitor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	fmt.Println(rec.Code)
	// Output:
	// 200
}
