package gateway

import (
	"bytes"
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

// Default transport deadlines. The core enforces no timeout of its own
// beyond these; an expired deadline is classified as a TIMEOUT fault.
const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultRequestTimeout = 25 * time.Second
)

// Client talks to one backend base URL. Construct through a Registry so
// clients are shared per normalized base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	connectTimeout time.Duration
	requestTimeout time.Duration
	fallbackHost   string
	fallbackIP     string
}

// WithTimeouts overrides the connect and overall request deadlines.
func WithTimeouts(connect, request time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.connectTimeout = connect
		c.requestTimeout = request
	}
}

// WithDNSFallback dials the given IP when name resolution for host
// fails. Operational workaround for networks with broken DNS on the
// production host; see resolver.go.
func WithDNSFallback(host, ip string) ClientOption {
	return func(c *clientConfig) {
		c.fallbackHost = host
		c.fallbackIP = ip
	}
}

// NewClient creates a client for the given base URL. The URL is
// normalized so "https://api.example.com" and "https://api.example.com/"
// are the same backend.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := clientConfig{
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		http: &http.Client{
			Timeout: cfg.requestTimeout,
			Transport: &http.Transport{
				DialContext: newFallbackDialer(cfg.connectTimeout, cfg.fallbackHost, cfg.fallbackIP),
			},
		},
	}
}

// NormalizeBaseURL trims whitespace and guarantees a single trailing slash.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/") + "/"
}

// envelope is the uniform response wrapper: data or error, never both.
// data == null with a non-null error is a domain failure even on HTTP 200.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

// call performs one request and decodes the envelope's data into out
// (when out is non-nil). All failure classification happens here.
func (c *Client) call(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	endpoint := c.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyHTTPStatus(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return rejectedFault("Unexpected server response.", err)
	}
	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			msg := "Unexpected empty response."
			if env.Error != nil && strings.TrimSpace(*env.Error) != "" {
				msg = strings.TrimSpace(*env.Error)
			}
			return rejectedFault(msg, nil)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return rejectedFault("Unexpected server response.", err)
		}
	}
	return nil
}

// Login establishes a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var out LoginResult
	if err := c.call(ctx, http.MethodPost, "api/rider/auth/login", "", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchQueue returns the current order queue, newest limit orders.
func (c *Client) FetchQueue(ctx context.Context, token string, limit int) ([]RemoteOrder, error) {
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var out []RemoteOrder
	if err := c.call(ctx, http.MethodGet, "api/rider/queue", token, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyDelivery checks a delivery OTP.
func (c *Client) VerifyDelivery(ctx context.Context, token, orderID, code string) (*VerifyResult, error) {
	body := map[string]string{"orderId": orderID, "code": code}
	var out VerifyResult
	if err := c.call(ctx, http.MethodPost, "api/delivery/verify", token, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmCollection reports cash collected for an order.
func (c *Client) ConfirmCollection(ctx context.Context, token, orderID string) (*CollectionResult, error) {
	body := map[string]string{"orderId": orderID}
	var out CollectionResult
	if err := c.call(ctx, http.MethodPost, "api/delivery/collect", token, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitIncident reports a rider incident.
func (c *Client) SubmitIncident(ctx context.Context, token string, req IncidentRequest) (*IncidentResult, error) {
	var out IncidentResult
	if err := c.call(ctx, http.MethodPost, "api/rider/incidents", token, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateShift declares the rider's availability.
func (c *Client) UpdateShift(ctx context.Context, token, status, note string) (*ShiftResult, error) {
	body := map[string]string{"shiftStatus": status}
	if strings.TrimSpace(note) != "" {
		body["note"] = strings.TrimSpace(note)
	}
	var out ShiftResult
	if err := c.call(ctx, http.MethodPatch, "api/rider/shift", token, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterDeviceToken registers a push token for the session.
func (c *Client) RegisterDeviceToken(ctx context.Context, token, deviceToken, deviceID string) error {
	body := map[string]string{"fcmToken": deviceToken, "platform": "cli"}
	if deviceID != "" {
		body["deviceId"] = deviceID
	}
	return c.call(ctx, http.MethodPost, "api/rider/devices/token", token, nil, body, nil)
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "api/rider/auth/logout", token, nil, struct{}{}, nil)
}
