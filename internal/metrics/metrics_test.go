package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-grant/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveTokenRequest(t *testing.T) {
	m := metrics.New()
	m.ObserveTokenRequest("jwt", metrics.ResultIssued, 10*time.Millisecond)
	m.ObserveTokenRequest("jwt", metrics.ResultIssued, 20*time.Millisecond)
	m.ObserveTokenRequest("jwt", metrics.ResultRejected, time.Millisecond)

	n, err := testutil.GatherAndCount(m.Registry(), "jwtgrant_token_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `jwtgrant_token_requests_total{grant_type="jwt",result="issued"} 2`)
	require.Contains(t, string(body), "jwtgrant_token_request_duration_seconds_count")
}
