package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// probeClient never follows redirects: the service's own first response is
// what gets judged, so a 3xx is healthy regardless of where Location points.
var probeClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// Probe issues a single HTTP GET against url and reports readiness: any
// response with status < 400 arriving before timeout counts as healthy.
func Probe(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := probeClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}
