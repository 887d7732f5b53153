package marketapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance-market/dashboard/internal/market"
)

func fastRetry(n int) Option {
	return WithRetry(RetryConfig{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
}

func TestKPIsSendsSelectionParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/kpis", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2024", q.Get("year"))
		assert.Equal(t, "03", q.Get("quarter"))
		assert.Equal(t, "accumulated", q.Get("view_mode"))
		assert.False(t, q.Has("ramo"))
		assert.False(t, q.Has("top_n"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"primas_emitidas":1e9,"primas_devengadas":8e8,"siniestros_devengados":5e8,"gastos_devengados":2e8,"entities_count":42}`))
	}))
	defer srv.Close()

	client := New(srv.URL + "/api/")
	kpis, err := client.KPIs(context.Background(), market.Query{Year: "2024", Quarter: "03", ViewMode: market.ViewAccumulated, TopN: 15})
	require.NoError(t, err)
	assert.Equal(t, 42, kpis.EntitiesCount)
	assert.InDelta(t, 1e8, kpis.ResultadoTecnico(), 1e-3)
}

func TestCompanyRankingSendsTopN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/companies/ranking", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("top_n"))
		assert.Equal(t, "Vida", r.URL.Query().Get("ramo"))
		_, _ = w.Write([]byte(`{"companies":[{"nombre_corto":"ACME","ramo_nombre_corto":"Vida","subramo_nombre_corto":null,"primas_emitidas":5}],"total":1}`))
	}))
	defer srv.Close()

	ranking, err := New(srv.URL).CompanyRanking(context.Background(), market.Query{Year: "2024", Quarter: "01", Ramo: "Vida", ViewMode: market.ViewCurrent, TopN: 20})
	require.NoError(t, err)
	require.Len(t, ranking.Companies, 1)
	assert.Equal(t, "ACME", ranking.Companies[0].Company)
	assert.Nil(t, ranking.Companies[0].Subramo)
	assert.Equal(t, "Vida", *ranking.Companies[0].Ramo)
}

func TestDistributionPathFollowsGranularity(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"name":"Autos","value":10,"percentage":100}],"total":10}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Distribution(context.Background(), market.Query{Year: "2024", Quarter: "01"}, market.ByRamo)
	require.NoError(t, err)
	dist, err := client.Distribution(context.Background(), market.Query{Year: "2024", Quarter: "01", Ramo: "Autos"}, market.BySubramo)
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/distribution/ramos", "/data/distribution/subramos"}, paths)
	assert.Equal(t, 10.0, dist.Total)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"years":["2024"],"quarters":["01","02","03","04"],"ramos":["Vida"]}`))
	}))
	defer srv.Close()

	opts, err := New(srv.URL, fastRetry(2)).Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"2024"}, opts.Years)
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, fastRetry(2)).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Invalid quarter"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL, fastRetry(3)).KPIs(context.Background(), market.Query{Year: "2024", Quarter: "09"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, apiErr.Body, "Invalid quarter")
	assert.False(t, apiErr.Temporary())
}

func TestMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithRetry(RetryConfig{})).Distribution(context.Background(), market.Query{}, market.ByRamo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

type recordingMetrics struct {
	observed []int
	errors   int
}

func (m *recordingMetrics) ObserveUpstream(_ string, status int, _ time.Duration) {
	m.observed = append(m.observed, status)
}

func (m *recordingMetrics) UpstreamError(string) { m.errors++ }

func TestMetricsAreRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	client := New(srv.URL, WithMetrics(metrics), WithRateLimit(1000, 10))
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	_, err = client.Filters(context.Background())
	require.Error(t, err)

	assert.Equal(t, []int{200, 404}, metrics.observed)
	assert.Equal(t, 1, metrics.errors)
}
