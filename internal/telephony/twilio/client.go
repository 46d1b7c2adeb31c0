package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acme/voicedrop/internal/telephony"
)

const defaultBaseURL = "https://api.twilio.com"

// Client places calls through the Twilio REST API. The surface the engine
// needs is a single form-encoded POST, so the client stays minimal.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a Twilio client for one account.
func NewClient(creds telephony.Credentials, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateCall issues the outbound call with asynchronous machine detection.
// Twilio runs its DetectMessageEnd heuristic and reports the verdict to the
// AMD callback later; call setup never blocks on detection.
func (c *Client) CreateCall(ctx context.Context, req telephony.CallRequest) (telephony.CallResponse, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Url", req.VoiceURL)
	form.Set("Method", http.MethodPost)
	form.Set("MachineDetection", "DetectMessageEnd")
	form.Set("AsyncAmd", "true")
	form.Set("AsyncAmdStatusCallback", req.AMDCallbackURL)
	form.Set("AsyncAmdStatusCallbackMethod", http.MethodPost)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return telephony.CallResponse{}, fmt.Errorf("twilio: build request: %w", err)
	}
	httpReq.SetBasicAuth(c.accountSID, c.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return telephony.CallResponse{}, fmt.Errorf("twilio: create call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return telephony.CallResponse{}, fmt.Errorf("twilio: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return telephony.CallResponse{}, fmt.Errorf("twilio: create call failed (%d): %s", apiErr.Code, apiErr.Message)
		}
		return telephony.CallResponse{}, fmt.Errorf("twilio: create call failed: status %d", resp.StatusCode)
	}

	var resource callResource
	if err := json.Unmarshal(body, &resource); err != nil {
		return telephony.CallResponse{}, fmt.Errorf("twilio: decode response: %w", err)
	}
	if resource.SID == "" {
		return telephony.CallResponse{}, fmt.Errorf("twilio: response missing call sid")
	}

	return telephony.CallResponse{SID: resource.SID, Status: resource.Status}, nil
}
