package icepay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"icepay-gateway/internal/domains/payment/gateway"
	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// ICEPAY CLIENT
// =====================================================

type Client struct {
	config     *Config
	validator  *Validator
	httpClient *http.Client
}

func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ICEPAY config: %w", err)
	}

	return &Client{
		config:    config,
		validator: NewValidator(config.MerchantID, config.SecretCode),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

var _ gateway.IcepayGateway = (*Client)(nil)

// =====================================================
// CREATE PAYMENT URL
// =====================================================

// CreatePaymentURL posts the payment to the basic-mode endpoint, which
// answers with the URL the payer must be redirected to.
func (c *Client) CreatePaymentURL(ctx context.Context, req gateway.IcepayPaymentRequest) (string, error) {
	if req.PaymentID == "" {
		return "", fmt.Errorf("payment_id is required")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	params := c.buildParams(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GetBasicModeURL(), strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("build basic mode request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("basic mode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil {
		return "", fmt.Errorf("read basic mode response: %w", err)
	}
	text := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("basic mode returned HTTP %d: %s", resp.StatusCode, text)
	}
	if strings.HasPrefix(text, "ERR") {
		return "", fmt.Errorf("basic mode rejected payment: %s", text)
	}

	redirect, err := url.Parse(text)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return "", fmt.Errorf("basic mode returned invalid redirect URL %q", text)
	}

	log.Debug().
		Str("payment_id", req.PaymentID).
		Str("reference", req.Reference).
		Msg("icepay basic mode URL created")

	return redirect.String(), nil
}

func (c *Client) buildParams(req gateway.IcepayPaymentRequest) url.Values {
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = c.config.ReturnURL
	}
	errorURL := req.ErrorURL
	if errorURL == "" {
		errorURL = c.config.CancelURL
	}

	params := url.Values{}
	params.Set(basicMerchantID, c.config.MerchantID)
	params.Set(basicAmount, strconv.FormatInt(req.Amount, 10))
	params.Set(basicCurrency, req.Currency)
	params.Set(basicCountry, req.Country)
	params.Set(basicLanguage, req.Language)
	params.Set(basicOrderID, req.PaymentID)
	params.Set(basicReference, req.Reference)
	params.Set(basicDescription, req.Description)
	params.Set(basicURLCompleted, successURL)
	params.Set(basicURLError, errorURL)
	params.Set(basicVersion, basicModeVersion)
	params.Set(basicChecksum, basicModeChecksum(params, c.config.SecretCode))
	return params
}

// =====================================================
// VALIDATE RESULT
// =====================================================

func (c *Client) ValidateResult(params url.Values, channel model.Channel) (*model.RemoteResult, error) {
	return c.validator.Validate(params, channel)
}

func (c *Client) DisplayLabel() string {
	return c.config.DisplayLabel
}
