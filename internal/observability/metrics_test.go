package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("inspect", "GET", "/health", 200, 12*time.Millisecond)
	RecordRPCMessage("in", "notification")
	RecordCall("nvim_ui_attach", "ok", 3*time.Millisecond)
	RecordRedrawEvent("grid_line")
	RecordRedrawViolation("grid_line")
	RecordFlush()

	logs.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestUnknownResponseCounterIncrements(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(rpcUnknownResponses)
	RecordUnknownResponse()
	if got := testutil.ToFloat64(rpcUnknownResponses); got != before+1 {
		t.Fatalf("unknown responses got=%v want=%v", got, before+1)
	}
}

func TestPendingGaugeTracksDelta(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(rpcPending)
	AddPendingRequests(2)
	AddPendingRequests(-1)
	if got := testutil.ToFloat64(rpcPending); got != before+1 {
		t.Fatalf("pending gauge got=%v want=%v", got, before+1)
	}
	AddPendingRequests(-1)
}

func TestMiddlewareLogsAndCounts(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := InitLoggerTo("gridlink-test", &buf)

	r := gin.New()
	r.Use(RequestLogger(logger), RequestMetricsMiddleware("inspect-test"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusTeapot, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !strings.Contains(buf.String(), "inspect.request") {
		t.Fatalf("request log missing: %q", buf.String())
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("inspect-test", "GET", "/ping", "418")); got != 1 {
		t.Fatalf("http counter got=%v want=1", got)
	}
}
