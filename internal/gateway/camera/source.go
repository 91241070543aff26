package camera

import (
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

// Source downloads camera frames. The camera endpoint is unauthenticated and
// returns raw JPEG bytes which are written verbatim to the destination slot.
type Source struct {
	url        string
	httpClient *http.Client
}

func NewSource(cfg config.CameraConfig) (*Source, error) {
	url := strings.TrimSpace(cfg.SnapshotURL)
	if url == "" {
		return nil, fmt.Errorf("camera.snapshot_url cannot be empty")
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Source{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (s *Source) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

// Capture downloads one frame into destPath, overwriting whatever the slot
// held before.
func (s *Source) Capture(ctx context.Context, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("snapshot download failed: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading snapshot body failed: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot to %s failed: %w", destPath, err)
	}
	logger.Debugf("snapshot saved to %s (%d bytes)", destPath, len(data))
	return nil
}
