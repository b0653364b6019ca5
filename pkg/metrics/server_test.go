package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.DocsRejectedTotal.WithLabelValues("malformed").Inc()
	m.IndexDocuments.Set(3)
	mux := newMux(reg)

	tests := []struct {
		target   string
		wantCode int
		want     []string
	}{
		{"/metrics", http.StatusOK, []string{`docs_rejected_total{reason="malformed"} 1`, "index_documents 3"}},
		{"/", http.StatusOK, []string{`href="/metrics"`}},
		{"/other", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q:\n%s", w, body)
				}
			}
		})
	}
}
