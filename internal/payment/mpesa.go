package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/andenet/shop-backend/internal/config"
	"github.com/andenet/shop-backend/internal/models"
	"github.com/andenet/shop-backend/internal/patterns"
)

// MpesaClient talks to the Daraja API. Payment follows a push/callback flow:
// STKPush asks the provider to prompt the payer's phone, and the synchronous
// response only confirms the push was accepted. Settlement arrives later on
// the configured callback URL, keyed by CheckoutRequestID.
type MpesaClient struct {
	http        *resty.Client
	consumerKey string
	consumerSec string
	shortCode   string
	passkey     string
	callbackURL string

	mu       sync.Mutex
	token    string
	tokenExp time.Time

	now func() time.Time
}

// NewMpesaClient returns a Daraja client for the configured short code.
func NewMpesaClient(cfg config.MpesaConfig) *MpesaClient {
	return &MpesaClient{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
		consumerKey: cfg.ConsumerKey,
		consumerSec: cfg.ConsumerSecret,
		shortCode:   cfg.ShortCode,
		passkey:     cfg.Passkey,
		callbackURL: cfg.CallbackURL,
		now:         time.Now,
	}
}

// STKPushRequest carries the order-side inputs of a push payment. PhoneNumber
// must already be in canonical 254XXXXXXXXX form.
type STKPushRequest struct {
	Amount           float64
	PhoneNumber      string
	AccountReference string
	Description      string
}

// STKPushResponse is Daraja's synchronous acknowledgment of a push request.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether the provider accepted the push for processing.
// Acceptance is not settlement; the callback decides that.
func (r *STKPushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// STKPush submits a push-payment request. The amount is rounded to a whole
// unit as Daraja only accepts integer amounts. A non-2xx response becomes a
// ProviderError; transport failures are propagated unmodified. The returned
// response may still carry a non-zero ResponseCode, which the caller must
// treat as a provider-reported rejection.
func (c *MpesaClient) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	var missing []string
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if req.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if req.AccountReference == "" {
		missing = append(missing, "accountReference")
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError(missing...)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := Timestamp(c.now())
	payload := stkPushPayload{
		BusinessShortCode: c.shortCode,
		Password:          Password(c.shortCode, c.passkey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Round(req.Amount)),
		PartyA:            req.PhoneNumber,
		PartyB:            c.shortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.callbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	var out STKPushResponse
	var apiErr darajaError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&out).
		SetError(&apiErr).
		Post("/mpesa/stkpush/v1/processrequest")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		msg := apiErr.ErrorMessage
		if msg == "" {
			msg = resp.String()
		}
		return nil, &ProviderError{Provider: "mpesa", Message: msg, StatusCode: resp.StatusCode()}
	}
	return &out, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken returns a cached OAuth token, fetching a fresh one when the
// cache is empty or within a minute of expiry.
func (c *MpesaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExp) {
		return c.token, nil
	}

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.consumerKey, c.consumerSec).
		SetQueryParam("grant_type", "client_credentials").
		SetResult(&out).
		Get("/oauth/v1/generate")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", &ProviderError{Provider: "mpesa", Message: "token request rejected", StatusCode: resp.StatusCode()}
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("mpesa: empty access token in response")
	}

	ttl := int64(3600)
	if secs, err := strconv.ParseInt(out.ExpiresIn, 10, 64); err == nil && secs > 0 {
		ttl = secs
	}
	c.token = out.AccessToken
	c.tokenExp = c.now().Add(time.Duration(ttl-60) * time.Second)
	return c.token, nil
}

// Timestamp renders t in the YYYYMMDDhhmmss form Daraja expects.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Password derives the STK push password for the given timestamp.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}
