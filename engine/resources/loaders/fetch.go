package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

/** @brief Turns a locator into raw bytes. Locators starting with http://
 * or https:// go over the network, everything else reads the local
 * filesystem. */
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

type clientFetcher struct {
	client *http.Client
}

// NewFetcher creates the default fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) Fetcher {
	return &clientFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *clientFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if isRemote(locator) {
		return f.fetchRemote(ctx, locator)
	}
	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return data, nil
}

func (f *clientFetcher) fetchRemote(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", locator, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %s", locator, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", locator, err)
	}
	return data, nil
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}
