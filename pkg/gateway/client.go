package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voltride/voltride-backend/pkg/config"
)

const requestTimeout = 10 * time.Second

var (
	errBaseURLRequired    = errors.New("gateway base url is required")
	errMerchantIDRequired = errors.New("gateway merchant id is required")
	errSecretRequired     = errors.New("gateway signing secret is required")
)

// Client builds redirect URLs for the external payment gateway and verifies
// the HMAC signatures it attaches to settlement notifications. The gateway
// itself (checkout pages, card processing) is an external system; this wrapper
// is the only integration point the core depends on.
type Client struct {
	baseURL       string
	merchantID    string
	signingSecret string
	httpClient    *http.Client
}

// NewClient validates the gateway credentials and returns the wrapper.
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing gateway base url: %w", err)
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	secret := strings.TrimSpace(cfg.SigningSecret)
	if secret == "" {
		return nil, errSecretRequired
	}
	return &Client{
		baseURL:       baseURL,
		merchantID:    merchantID,
		signingSecret: secret,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}, nil
}

// SigningSecret exposes the shared secret for webhook validation.
func (c *Client) SigningSecret() string {
	return c.signingSecret
}

// NewExternalRef generates a fresh gateway transaction reference.
func (c *Client) NewExternalRef() string {
	return uuid.NewString()
}

// BuildRedirectURL returns the hosted-checkout URL the renter's browser is
// sent to. The external ref and amount are signed so the gateway can verify
// the request originated here.
func (c *Client) BuildRedirectURL(externalRef string, amount int64, orderID uuid.UUID) (string, error) {
	if strings.TrimSpace(externalRef) == "" {
		return "", errors.New("external ref is required")
	}
	if amount <= 0 {
		return "", fmt.Errorf("redirect amount must be positive, got %d", amount)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing gateway base url: %w", err)
	}

	q := u.Query()
	q.Set("merchant_id", c.merchantID)
	q.Set("ref", externalRef)
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("order_id", orderID.String())
	q.Set("signature", c.Sign(externalRef, amount))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Refund sends a refund instruction for a settled transaction. The
// gateway confirms synchronously; any transport error or non-2xx
// response means no money moved.
func (c *Client) Refund(ctx context.Context, externalRef string, amount int64) error {
	if strings.TrimSpace(externalRef) == "" {
		return errors.New("external ref is required")
	}
	if amount <= 0 {
		return fmt.Errorf("refund amount must be positive, got %d", amount)
	}

	payload, err := json.Marshal(map[string]any{
		"merchant_id": c.merchantID,
		"ref":         externalRef,
		"amount":      amount,
		"signature":   c.Sign(externalRef, amount),
	})
	if err != nil {
		return fmt.Errorf("encode refund payload: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "refunds")
	if err != nil {
		return fmt.Errorf("build refund url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send refund instruction: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("gateway declined refund: status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the HMAC-SHA256 signature over ref|amount.
func (c *Client) Sign(externalRef string, amount int64) string {
	mac := hmac.New(sha256.New, []byte(c.signingSecret))
	fmt.Fprintf(mac, "%s|%d", externalRef, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a notification signature in constant time.
func (c *Client) VerifySignature(externalRef string, amount int64, signature string) bool {
	if signature == "" {
		return false
	}
	expected := c.Sign(externalRef, amount)
	return hmac.Equal([]byte(expected), []byte(signature))
}
