package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnavailable covers network failures and timeouts: the gateway was
	// never confirmed to have seen the request.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected means the gateway answered with a non-success response.
	ErrRejected = errors.New("payment gateway rejected transaction")
)

// Config carries gateway credentials and endpoints. It is injected into the
// adapter constructor; nothing in this package reads process-wide state.
type Config struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

type InitRequest struct {
	AmountMinor int64
	Email       string
	Reference   string
	// CallbackURL overrides the configured callback (mobile checkout).
	CallbackURL string
	Metadata    map[string]string
}

type InitResponse struct {
	Reference        string
	AuthorizationURL string
}

// Initializer is the slice of the gateway the checkout flow needs.
type Initializer interface {
	InitializeTransaction(ctx context.Context, req InitRequest) (*InitResponse, error)
}

type Paystack struct {
	cfg    Config
	client *http.Client
}

func NewPaystack(cfg Config) *Paystack {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Paystack{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Paystack) InitializeTransaction(ctx context.Context, req InitRequest) (*InitResponse, error) {
	callback := req.CallbackURL
	if callback == "" {
		callback = p.cfg.CallbackURL
	}

	payload := map[string]any{
		"email":        req.Email,
		"amount":       req.AmountMinor,
		"reference":    req.Reference,
		"callback_url": callback,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, raw)
	}

	var parsed struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			Reference        string `json:"reference"`
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRejected, err)
	}
	if !parsed.Status {
		return nil, fmt.Errorf("%w: %s", ErrRejected, parsed.Msg)
	}

	return &InitResponse{
		Reference:        parsed.Data.Reference,
		AuthorizationURL: parsed.Data.AuthorizationURL,
	}, nil
}
