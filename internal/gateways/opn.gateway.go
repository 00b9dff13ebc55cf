package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/nimasrn/vending-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

// Error carries a non-success gateway response. The raw body is kept so the
// caller can surface the provider's own error detail.
type Error struct {
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Source is a payment method/channel object attached to a charge.
type Source struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ScannableImage struct {
	DownloadURI string `json:"download_uri"`
}

type ScannableCode struct {
	Image ScannableImage `json:"image"`
}

type ChargeSource struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	ScannableCode *ScannableCode `json:"scannable_code,omitempty"`
}

// Charge is the provider's payment attempt object, minor-unit denominated.
type Charge struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Paid     bool          `json:"paid"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	Source   *ChargeSource `json:"source,omitempty"`
}

// QRCodeURI returns the scannable-code image URL the end user scans to pay,
// or "" when the charge carries none.
func (c *Charge) QRCodeURI() string {
	if c.Source == nil || c.Source.ScannableCode == nil {
		return ""
	}
	return c.Source.ScannableCode.Image.DownloadURI
}

type Config struct {
	BaseURL         string
	SecretKey       string
	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

// Client talks to the Opn Payments API. Calls are synchronous with a
// bounded deadline and are never retried; failures propagate to the caller.
type Client struct {
	config *Config
	client *fasthttp.Client
	auth   string
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if config.SecretKey == "" {
		return nil, errors.New("gateway secret key is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	httpClient := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	// basic auth with the secret key and an empty password
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(config.SecretKey+":"))

	logger.Info("Payment gateway client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return &Client{
		config: config,
		client: httpClient,
		auth:   auth,
	}, nil
}

type createSourceRequest struct {
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createChargeRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Source   string `json:"source"`
}

// CreateSource creates a payment source for the given minor-unit amount.
func (c *Client) CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*Source, error) {
	body, err := json.Marshal(createSourceRequest{Type: sourceType, Amount: amount, Currency: currency})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	response, err := c.doRequest(ctx, "create_source", "POST", "/sources", body)
	if err != nil {
		return nil, err
	}

	var src Source
	if err := json.Unmarshal(response, &src); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source response: %w", err)
	}
	return &src, nil
}

// CreateCharge creates a charge against a previously created source.
func (c *Client) CreateCharge(ctx context.Context, amount int64, currency, sourceID string) (*Charge, error) {
	body, err := json.Marshal(createChargeRequest{Amount: amount, Currency: currency, Source: sourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	response, err := c.doRequest(ctx, "create_charge", "POST", "/charges", body)
	if err != nil {
		return nil, err
	}

	var ch Charge
	if err := json.Unmarshal(response, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal charge response: %w", err)
	}
	return &ch, nil
}

// GetCharge fetches the current state of a charge.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	path := fmt.Sprintf("/charges/%s", chargeID)
	response, err := c.doRequest(ctx, "get_charge", "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var ch Charge
	if err := json.Unmarshal(response, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal charge response: %w", err)
	}
	return &ch, nil
}

// doRequest performs one HTTP round trip with a bounded deadline.
func (c *Client) doRequest(ctx context.Context, operation, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := c.config.BaseURL + path
	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", c.auth)

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	startTime := time.Now()
	err := c.client.DoDeadline(req, resp, deadline)
	latency := time.Since(startTime).Seconds()

	if err != nil {
		prom.AddGatewayRequestDuration(operation, "error", latency)
		logger.Warn("Gateway request failed", "operation", operation, "error", err)
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		prom.AddGatewayRequestDuration(operation, "upstream_error", latency)
		bodyCopy := make([]byte, len(resp.Body()))
		copy(bodyCopy, resp.Body())
		logger.Warn("Gateway returned non-success", "operation", operation, "status", statusCode)
		return nil, &Error{StatusCode: statusCode, Body: bodyCopy}
	}

	prom.AddGatewayRequestDuration(operation, "ok", latency)

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
