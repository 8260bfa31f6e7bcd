package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WaitFor polls URL until it answers with Status before the run starts.
type WaitFor struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
}

// waitForService polls a URL until it returns the expected status code or times out
func (r *Runner) waitForService(ctx context.Context, cfg *WaitFor) error {
	url := r.resolver.Resolve(cfg.URL)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	expectedStatus := cfg.Status
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	if r.config.Verbose {
		fmt.Printf("Waiting for %s to return %d (timeout: %v, interval: %v)\n",
			url, expectedStatus, timeout, interval)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: 5 * time.Second, // Per-request timeout
	}

	var lastErr error
	var lastStatus int

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("wait-for: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode == expectedStatus {
				if r.config.Verbose {
					fmt.Printf("Service %s is ready (status: %d)\n", url, resp.StatusCode)
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil && lastStatus == 0 {
				return fmt.Errorf("%w: %s not ready after %v: %v", ErrServiceNotReady, url, timeout, lastErr)
			}
			return fmt.Errorf("%w: %s not ready after %v: got status %d, expected %d",
				ErrServiceNotReady, url, timeout, lastStatus, expectedStatus)
		case <-time.After(interval):
		}
	}
}
