package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/logger"
)

// Uploader pushes captured frames to the cloud snapshot endpoint (Prusa
// Connect style PUT with Token/Fingerprint headers and a raw image body).
type Uploader struct {
	url         string
	token       string
	fingerprint string
	httpClient  *http.Client
}

func NewUploader(cfg config.UploadConfig) (*Uploader, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("upload.url cannot be empty")
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Uploader{
		url:         url,
		token:       strings.TrimSpace(cfg.Token),
		fingerprint: strings.TrimSpace(cfg.Fingerprint),
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (u *Uploader) SetHTTPClient(client *http.Client) {
	u.httpClient = client
}

// Upload sends the file at path as the request body.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot %s failed: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Token", u.token)
	req.Header.Set("Fingerprint", u.fingerprint)
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot upload failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("snapshot upload failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	logger.Debugf("snapshot upload response: %s", strings.TrimSpace(string(body)))
	return nil
}
