package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventsDropped_Labels(t *testing.T) {
	before := testutil.ToFloat64(EventsDropped.WithLabelValues("mapMove", ReasonNotTracker))
	EventsDropped.WithLabelValues("mapMove", ReasonNotTracker).Inc()
	after := testutil.ToFloat64(EventsDropped.WithLabelValues("mapMove", ReasonNotTracker))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestHandler_ExposesRelayMetrics(t *testing.T) {
	RoomsActive.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "geosync_rooms_active 3") {
		t.Errorf("metrics output missing geosync_rooms_active gauge")
	}
}
