package textextract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchBytes retrieves raw bytes from a URL for modalities (PDF, image)
// that don't need article extraction, just the underlying payload.
func FetchBytes(ctx context.Context, rawURL string, maxBytes int64, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
