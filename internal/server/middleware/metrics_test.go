package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordsRouteAndStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients/abc", nil))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var counted int64
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					route, _ := dp.Attributes.Value(attribute.Key("http.route"))
					status, _ := dp.Attributes.Value(attribute.Key("http.response.status_code"))
					if route.AsString() != "/api/clients/{id}" || status.AsString() != "404" {
						t.Errorf("attributes = %v", dp.Attributes.ToSlice())
					}
					counted += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawHistogram = len(data.DataPoints) > 0
			}
		}
	}
	if counted != 2 {
		t.Errorf("request count = %d, want 2", counted)
	}
	if !sawHistogram {
		t.Error("duration histogram should have data points")
	}
}

func TestRouteTemplate_Unmatched(t *testing.T) {
	if got := RouteTemplate(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Errorf("RouteTemplate = %q, want unmatched", got)
	}
}
