package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WaitForHealthy polls the /health endpoint until it returns 200 OK or the context is cancelled.
// baseURL may be an http(s) or ws(s) URL; any path is ignored.
func WaitForHealthy(ctx context.Context, baseURL string) error {
	healthURL := HealthURL(baseURL)
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("invalid health url %q: %w", healthURL, err)
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("health check returned %s", resp.Status)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("server not healthy: %w (last error: %v)", ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

// HealthURL derives the /health endpoint from a server or websocket URL.
func HealthURL(serverURL string) string {
	u := strings.TrimSuffix(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "ws://"):
		u = "http://" + strings.TrimPrefix(u, "ws://")
	case strings.HasPrefix(u, "wss://"):
		u = "https://" + strings.TrimPrefix(u, "wss://")
	}
	u = strings.TrimSuffix(u, "/ws")
	return u + "/health"
}
