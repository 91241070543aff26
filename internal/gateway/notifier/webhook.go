package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/logger"
)

// Webhook posts events to maker-style trigger URLs (IFTTT). Sends are single
// shot: a failed delivery is reported to the caller and never retried here,
// the loop's fixed cadence is the only retry mechanism.
type Webhook struct {
	statusURL  string
	stopURL    string
	httpClient *http.Client
}

type statusPayload struct {
	State       string `json:"state"`
	DisplayName string `json:"display_name,omitempty"`
}

func NewWebhook(cfg config.NotifyConfig) (*Webhook, error) {
	if strings.TrimSpace(cfg.AuthKey) == "" {
		return nil, fmt.Errorf("notify.auth_key cannot be empty")
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Webhook{
		statusURL:  cfg.StatusChangedURL(),
		stopURL:    cfg.StopPrintingURL(),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (w *Webhook) SetHTTPClient(client *http.Client) {
	w.httpClient = client
}

func (w *Webhook) StatusChanged(ctx context.Context, state, displayName string) error {
	body, _ := json.Marshal(statusPayload{State: state, DisplayName: displayName})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.statusURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := w.do(req); err != nil {
		return fmt.Errorf("status webhook failed: %w", err)
	}
	logger.Infof("[notify] sent state=%q display_name=%q", state, displayName)
	return nil
}

func (w *Webhook) StopPrinting(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.stopURL, nil)
	if err != nil {
		return err
	}
	if err := w.do(req); err != nil {
		return fmt.Errorf("stop webhook failed: %w", err)
	}
	logger.Infof("[notify] stop printing webhook triggered")
	return nil
}

func (w *Webhook) do(req *http.Request) error {
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	return nil
}
