package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/gate/{feature}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/gate/{feature}", "402"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/gate/videoCalls", nil))

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusPaymentRequired)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/gate/{feature}", "402"))
	if after-before != 1 {
		t.Fatalf("expected one recorded request, got delta %v", after-before)
	}
}

func TestResponseWriterForwardsFlush(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := newResponseWriter(rr)
	rw.Flush()
	if !rr.Flushed {
		t.Fatalf("expected flush to reach the underlying writer")
	}
}
