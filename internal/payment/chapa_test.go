package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andenet/shop-backend/internal/config"
	"github.com/andenet/shop-backend/internal/models"
)

func newTestChapa(t *testing.T, handler http.HandlerFunc) *ChapaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChapaClient(config.ChapaConfig{BaseURL: srv.URL, SecretKey: "test-secret"})
}

func TestChapaInitialize(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer test-secret", r.Header.Get("Authorization"))

		var body InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 100.0, body.Amount)
		assert.Equal(t, "ETB", body.Currency)
		assert.Equal(t, "jane@example.com", body.Email)
		assert.Equal(t, "TX-ABC123", body.TxRef)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Hosted Link",
			"status":  "success",
			"data":    map[string]string{"checkout_url": "https://checkout.chapa.co/checkout/payment/xyz"},
		})
	})

	url, err := client.Initialize(context.Background(), InitializeRequest{
		Amount:    100,
		Currency:  "ETB",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		TxRef:     "TX-ABC123",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.chapa.co/checkout/payment/xyz", url)
}

func TestChapaInitializeFailsFastOnMissingFields(t *testing.T) {
	called := false
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.Initialize(context.Background(), InitializeRequest{Amount: 100})

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"currency", "email"}, ve.Fields)
	assert.False(t, called, "no network call should be made on validation failure")
}

func TestChapaInitializeProviderError(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid API Key given", "status": "failed"})
	})

	_, err := client.Initialize(context.Background(), InitializeRequest{
		Amount: 100, Currency: "ETB", Email: "jane@example.com",
	})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "chapa", pe.Provider)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "Invalid API Key given", pe.Message)
}

func TestChapaVerifyOutcomes(t *testing.T) {
	tests := []struct {
		providerStatus string
		want           VerifyOutcome
	}{
		{"success", OutcomeSuccess},
		{"pending", OutcomePending},
		{"created", OutcomePending},
		{"failed", OutcomeFailed},
		{"cancelled", OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.providerStatus, func(t *testing.T) {
			client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/transaction/verify/TX-ABC123", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"message": "Payment details",
					"status":  "success",
					"data": map[string]interface{}{
						"status":   tt.providerStatus,
						"amount":   100.0,
						"currency": "ETB",
						"tx_ref":   "TX-ABC123",
					},
				})
			})

			result, err := client.Verify(context.Background(), "TX-ABC123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, "TX-ABC123", result.TxRef)
		})
	}
}

func TestChapaVerifyRequiresReference(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected")
	})

	_, err := client.Verify(context.Background(), "")

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestGenTxRef(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref, err := GenTxRef()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(ref, "TX-"), "reference %q should carry the TX- prefix", ref)
		assert.Len(t, ref, len("TX-")+txRefLength)
		for _, r := range ref[3:] {
			assert.Contains(t, txRefAlphabet, string(r))
		}

		assert.False(t, seen[ref], "reference %q generated twice", ref)
		seen[ref] = true
	}
}
