package printer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
)

// Client wraps the printer's local HTTP API (PrusaLink style status/job
// endpoints authenticated with an x-api-key header).
type Client struct {
	statusURL  string
	jobURL     string
	apiKey     string
	httpClient *http.Client
}

// Job is the subset of the job endpoint the monitor cares about.
type Job struct {
	State       string
	DisplayName string
}

// NewClient constructs a printer client from configuration.
func NewClient(cfg config.PrinterConfig) (*Client, error) {
	statusURL := strings.TrimSpace(cfg.StatusURL)
	if statusURL == "" {
		return nil, fmt.Errorf("printer.status_url cannot be empty")
	}
	jobURL := strings.TrimSpace(cfg.JobURL)
	if jobURL == "" {
		return nil, fmt.Errorf("printer.job_url cannot be empty")
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		statusURL:  statusURL,
		jobURL:     jobURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Status returns the printer-level state string, e.g. "PRINTING" or "IDLE".
func (c *Client) Status(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.statusURL)
	if err != nil {
		return "", err
	}
	state := gjson.GetBytes(body, "printer.state")
	if !state.Exists() {
		return "", fmt.Errorf("printer status response missing printer.state")
	}
	return state.String(), nil
}

// Job returns the active job's state and display name.
func (c *Client) Job(ctx context.Context) (Job, error) {
	body, err := c.get(ctx, c.jobURL)
	if err != nil {
		return Job{}, err
	}
	return Job{
		State:       gjson.GetBytes(body, "state").String(),
		DisplayName: gjson.GetBytes(body, "file.display_name").String(),
	}, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("printer request failed (%s): %w", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading printer response failed (%s): %w", url, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("printer request failed (%s): status=%d", url, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("printer response is not valid JSON (%s)", url)
	}
	return body, nil
}
