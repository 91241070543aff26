package printer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.PrinterConfig{
		StatusURL:      srv.URL + "/api/v1/status",
		JobURL:         srv.URL + "/api/v1/job",
		APIKey:         "key-123",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	return client, srv
}

func TestStatusExtractsNestedState(t *testing.T) {
	var gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.Write([]byte(`{"printer":{"state":"PRINTING","temp_bed":60.1}}`))
	})

	state, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PRINTING", state)
	assert.Equal(t, "key-123", gotKey)
}

func TestStatusMissingStateIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"printer":{}}`))
	})
	_, err := client.Status(context.Background())
	assert.Error(t, err)
}

func TestStatusNon2xxIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	_, err := client.Status(context.Background())
	assert.Error(t, err)
}

func TestStatusMalformedJSONIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := client.Status(context.Background())
	assert.Error(t, err)
}

func TestJobExtractsStateAndDisplayName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"PRINTING","file":{"display_name":"benchy.gcode"}}`))
	})

	job, err := client.Job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PRINTING", job.State)
	assert.Equal(t, "benchy.gcode", job.DisplayName)
}

func TestJobToleratesMissingFileBlock(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"PAUSED"}`))
	})

	job, err := client.Job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAUSED", job.State)
	assert.Empty(t, job.DisplayName)
}
