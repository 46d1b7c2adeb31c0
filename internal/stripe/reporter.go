package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.stripe.com"

// Reporter posts metered usage records against a subscription item. The only
// call the engine makes is one form-encoded POST, so the client is minimal.
type Reporter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewReporter builds a usage reporter. endpoint may be empty for the default.
func NewReporter(apiKey, endpoint string) *Reporter {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Reporter{
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ReportUsage increments the subscription item's metered usage.
func (r *Reporter) ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, at time.Time) error {
	form := url.Values{}
	form.Set("quantity", strconv.FormatInt(quantity, 10))
	form.Set("timestamp", strconv.FormatInt(at.Unix(), 10))
	form.Set("action", "increment")

	endpoint := fmt.Sprintf("%s/v1/subscription_items/%s/usage_records", r.endpoint, subscriptionItemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: usage record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var payload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Error.Message != "" {
			return fmt.Errorf("stripe: usage record rejected: %s", payload.Error.Message)
		}
		return fmt.Errorf("stripe: usage record rejected: status %d", resp.StatusCode)
	}

	return nil
}
