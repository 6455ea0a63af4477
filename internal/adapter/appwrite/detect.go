package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const detectTimeout = 10 * time.Second

// DetectVersion probes an endpoint to confirm it is an Appwrite API and
// returns the server version. /health/version needs no credentials.
func DetectVersion(ctx context.Context, endpoint string) (string, error) {
	endpoint = NormalizeEndpoint(endpoint)

	client := &http.Client{
		Timeout: detectTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/health/version", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var v versionResponse
	if err := json.Unmarshal(body, &v); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if v.Version == "" {
		return "", fmt.Errorf("not an Appwrite endpoint (no version reported)")
	}
	return v.Version, nil
}

// NormalizeEndpoint trims trailing slashes and appends /v1 when the path
// has no version segment, so "https://cloud.appwrite.io" works as input.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return endpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/v1"
	}
	return endpoint
}
