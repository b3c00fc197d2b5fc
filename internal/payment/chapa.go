package payment

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/andenet/shop-backend/internal/config"
	"github.com/andenet/shop-backend/internal/models"
	"github.com/andenet/shop-backend/internal/patterns"
)

// VerifyOutcome is the normalized result of a Chapa verification pull.
type VerifyOutcome string

const (
	OutcomeSuccess VerifyOutcome = "success"
	OutcomePending VerifyOutcome = "pending"
	OutcomeFailed  VerifyOutcome = "failed"
)

// ChapaClient talks to the Chapa transaction API. Payment follows a
// redirect/verify flow: Initialize returns a hosted checkout URL and the
// caller later pulls the final status with Verify.
type ChapaClient struct {
	http *resty.Client
}

// NewChapaClient returns a client authenticated with the configured secret key.
func NewChapaClient(cfg config.ChapaConfig) *ChapaClient {
	return &ChapaClient{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetAuthToken(cfg.SecretKey).
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
	}
}

// InitializeRequest is the payload for creating a hosted checkout session.
type InitializeRequest struct {
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url"`
	ReturnURL     string            `json:"return_url"`
	Customization map[string]string `json:"customization,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type chapaEnvelope struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type initializeResponse struct {
	chapaEnvelope
	Data struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponse struct {
	chapaEnvelope
	Data struct {
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		Reference string  `json:"reference"`
		TxRef     string  `json:"tx_ref"`
	} `json:"data"`
}

// VerifyResult carries the normalized outcome plus the provider's own
// transaction details for the client response.
type VerifyResult struct {
	Outcome   VerifyOutcome `json:"outcome"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Reference string        `json:"reference"`
	TxRef     string        `json:"tx_ref"`
}

// Initialize creates a checkout session and returns its URL. Required fields
// are checked before the network call; a provider rejection is returned as a
// ProviderError and transport failures are propagated unmodified.
func (c *ChapaClient) Initialize(ctx context.Context, req InitializeRequest) (string, error) {
	var missing []string
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if req.Currency == "" {
		missing = append(missing, "currency")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return "", models.NewValidationError(missing...)
	}

	var out initializeResponse
	var apiErr chapaEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/transaction/initialize")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", &ProviderError{Provider: "chapa", Message: providerMessage(apiErr.Message, resp), StatusCode: resp.StatusCode()}
	}
	return out.Data.CheckoutURL, nil
}

// Verify pulls the final status of a transaction by its reference.
func (c *ChapaClient) Verify(ctx context.Context, txRef string) (VerifyResult, error) {
	if txRef == "" {
		return VerifyResult{}, models.NewValidationError("tx_ref")
	}

	var out verifyResponse
	var apiErr chapaEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1/transaction/verify/" + txRef)
	if err != nil {
		return VerifyResult{}, err
	}
	if resp.IsError() {
		return VerifyResult{}, &ProviderError{Provider: "chapa", Message: providerMessage(apiErr.Message, resp), StatusCode: resp.StatusCode()}
	}

	result := VerifyResult{
		Amount:    out.Data.Amount,
		Currency:  out.Data.Currency,
		Reference: out.Data.Reference,
		TxRef:     out.Data.TxRef,
	}
	switch out.Data.Status {
	case "success":
		result.Outcome = OutcomeSuccess
	case "pending", "created":
		result.Outcome = OutcomePending
	default:
		result.Outcome = OutcomeFailed
	}
	return result, nil
}

func providerMessage(msg string, resp *resty.Response) string {
	if msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode())
}

const txRefAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const txRefLength = 15

// GenTxRef produces a globally unique client-side transaction reference of
// the form TX-XXXXXXXXXXXXXXX. The reference doubles as the correlation
// handle for verification pulls.
func GenTxRef() (string, error) {
	buf := make([]byte, txRefLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("TX-")
	for _, b := range buf {
		sb.WriteByte(txRefAlphabet[int(b)%len(txRefAlphabet)])
	}
	return sb.String(), nil
}
