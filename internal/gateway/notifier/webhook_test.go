package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
)

type capturedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestWebhook(t *testing.T, captured *[]capturedRequest, status int) *Webhook {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := capturedRequest{Method: r.Method, Path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.Body)
		}
		*captured = append(*captured, rec)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	hook, err := NewWebhook(config.NotifyConfig{
		BaseURL:            srv.URL,
		AuthKey:            "key",
		StatusChangedEvent: "status_changed",
		StopPrintingEvent:  "should_stop_printing",
		TimeoutSeconds:     5,
	})
	require.NoError(t, err)
	return hook
}

func TestStatusChangedPostsJSON(t *testing.T) {
	var captured []capturedRequest
	hook := newTestWebhook(t, &captured, http.StatusOK)

	require.NoError(t, hook.StatusChanged(context.Background(), "PRINTING", "benchy.gcode"))
	require.Len(t, captured, 1)
	assert.Equal(t, http.MethodPost, captured[0].Method)
	assert.Equal(t, "/trigger/status_changed/json/with/key/key", captured[0].Path)
	assert.Equal(t, "PRINTING", captured[0].Body["state"])
	assert.Equal(t, "benchy.gcode", captured[0].Body["display_name"])
}

func TestStatusChangedOmitsEmptyDisplayName(t *testing.T) {
	var captured []capturedRequest
	hook := newTestWebhook(t, &captured, http.StatusOK)

	require.NoError(t, hook.StatusChanged(context.Background(), "IDLE", ""))
	require.Len(t, captured, 1)
	_, present := captured[0].Body["display_name"]
	assert.False(t, present)
}

func TestStopPrintingIsBodylessGet(t *testing.T) {
	var captured []capturedRequest
	hook := newTestWebhook(t, &captured, http.StatusOK)

	require.NoError(t, hook.StopPrinting(context.Background()))
	require.Len(t, captured, 1)
	assert.Equal(t, http.MethodGet, captured[0].Method)
	assert.Equal(t, "/trigger/should_stop_printing/with/key/key", captured[0].Path)
	assert.Nil(t, captured[0].Body)
}

func TestNon2xxIsErrorWithoutRetry(t *testing.T) {
	var captured []capturedRequest
	hook := newTestWebhook(t, &captured, http.StatusBadGateway)

	assert.Error(t, hook.StatusChanged(context.Background(), "PRINTING", ""))
	assert.Len(t, captured, 1, "failed sends must not be retried")
}

func TestNewWebhookRequiresAuthKey(t *testing.T) {
	_, err := NewWebhook(config.NotifyConfig{BaseURL: "https://maker.ifttt.com"})
	assert.Error(t, err)
}

func TestComposedURLsParse(t *testing.T) {
	cfg := config.NotifyConfig{
		BaseURL:            "https://maker.ifttt.com",
		AuthKey:            "abc",
		StatusChangedEvent: "status_changed",
		StopPrintingEvent:  "should_stop_printing",
	}
	for _, raw := range []string{cfg.StatusChangedURL(), cfg.StopPrintingURL()} {
		_, err := url.ParseRequestURI(raw)
		assert.NoError(t, err)
	}
}
