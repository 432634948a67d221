package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnct-tools/container-query/internal/clock"
	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
)

var fixedNow = time.Date(2025, 3, 4, 15, 16, 17, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.UpstreamConfig{
		BaseURL:   srv.URL + "/api/track/GetContainers",
		SiteID:    "PNCT_NJ",
		Timeout:   timeout,
		UserAgent: "container-query-test",
	}
	return NewClient(cfg, zerolog.Nop(), WithClock(clock.NewFixed(fixedNow))), &calls
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestGetContainer_RequestShape(t *testing.T) {
	t.Parallel()

	var got *http.Request
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		respond(http.StatusOK, `{"State":"In Yard"}`)(w, r)
	}, time.Second)

	record, err := c.GetContainer(context.Background(), "MSCU1234567")
	require.NoError(t, err)
	assert.Equal(t, "In Yard", record.Value(domain.FieldState))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/track/GetContainers", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "PNCT_NJ", q.Get("siteId"))
	assert.Equal(t, "MSCU1234567", q.Get("key"))
	assert.Equal(t, "1741101377000", q.Get("_"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "container-query-test", got.Header.Get("User-Agent"))
}

func TestGetContainer_Responses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.Kind
		wantKey  string
	}{
		{name: "object", status: 200, body: `{"State":"In Yard","Available":2}`, wantKey: "In Yard"},
		{name: "array uses first element", status: 200, body: `[{"State":"First"},{"State":"Second"}]`, wantKey: "First"},
		{name: "404", status: 404, body: `not here`, wantKind: domain.KindNotFound},
		{name: "empty array", status: 200, body: `[]`, wantKind: domain.KindNotFound},
		{name: "null", status: 200, body: `null`, wantKind: domain.KindNotFound},
		{name: "empty object", status: 200, body: `{}`, wantKind: domain.KindNotFound},
		{name: "empty body", status: 200, body: ``, wantKind: domain.KindNotFound},
		{name: "scalar", status: 200, body: `"nope"`, wantKind: domain.KindNotFound},
		{name: "array of scalars", status: 200, body: `[1,2]`, wantKind: domain.KindNotFound},
		{name: "invalid json", status: 200, body: `{"State":`, wantKind: domain.KindUpstream},
		{name: "503", status: 503, body: `maintenance`, wantKind: domain.KindUpstream},
		{name: "500", status: 500, body: `boom`, wantKind: domain.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, respond(tt.status, tt.body), time.Second)

			record, err := c.GetContainer(context.Background(), "MSCU1234567")
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKey, record.Value(domain.FieldState))
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Nil(t, record)
		})
	}
}

func TestGetContainer_UpstreamErrorCarriesStatusAndBody(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, respond(http.StatusServiceUnavailable, "  down for maintenance \n"), time.Second)

	_, err := c.GetContainer(context.Background(), "MSCU1234567")

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
	assert.Equal(t, "down for maintenance", upstreamErr.Body)
	assert.Equal(t, "API error: 503 - down for maintenance", err.Error())
}

func TestGetContainer_NumbersKeepTheirRawForm(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, respond(http.StatusOK, `{"Available":2,"DemurrageAmount":125.50}`), time.Second)

	record, err := c.GetContainer(context.Background(), "MSCU1234567")
	require.NoError(t, err)
	assert.True(t, record.IsAvailable())
	assert.Equal(t, json.Number("125.50"), record.Value(domain.FieldDemurrageAmount))
}

func TestGetContainer_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	_, err := c.GetContainer(context.Background(), "MSCU1234567")

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestGetContainer_ConnectionRefused(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&config.UpstreamConfig{BaseURL: url, SiteID: "PNCT_NJ", Timeout: time.Second}, zerolog.Nop())

	_, err := c.GetContainer(context.Background(), "MSCU1234567")
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestGetContainer_CanceledContext(t *testing.T) {
	t.Parallel()
	c, calls := newTestClient(t, respond(http.StatusOK, `{"State":"x"}`), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetContainer(ctx, "MSCU1234567")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}
