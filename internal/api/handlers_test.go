package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andenet/shop-backend/internal/config"
	"github.com/andenet/shop-backend/internal/models"
	"github.com/andenet/shop-backend/internal/orders"
	"github.com/andenet/shop-backend/internal/payment"
	"github.com/andenet/shop-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChapa struct{}

func (stubChapa) Initialize(context.Context, payment.InitializeRequest) (string, error) {
	return "https://checkout.chapa.co/checkout/payment/xyz", nil
}

func (stubChapa) Verify(_ context.Context, txRef string) (payment.VerifyResult, error) {
	return payment.VerifyResult{Outcome: payment.OutcomeSuccess, TxRef: txRef}, nil
}

type stubMpesa struct{}

func (stubMpesa) STKPush(context.Context, payment.STKPushRequest) (*payment.STKPushResponse, error) {
	return &payment.STKPushResponse{ResponseCode: "0", CheckoutRequestID: "ws_CO_1"}, nil
}

type noopCarts struct{}

func (noopCarts) ClearCart(context.Context, string) error { return nil }

const testSecret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemoryOrderStore) {
	t.Helper()
	orderStore := store.NewMemoryOrderStore()
	svc := orders.NewService(orderStore, noopCarts{}, stubChapa{}, stubMpesa{})
	h := NewHandler(svc, "http://localhost:5174")
	auth := NewAuth(config.AuthConfig{JWTSecret: testSecret, AdminEmail: "admin@example.com"})
	return NewRouter(h, auth), orderStore
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestMpesaCallbackAlwaysAcknowledges(t *testing.T) {
	router, orderStore := newTestRouter(t)

	// A handle matching no order must still receive a zero result code, or
	// the provider retries the callback indefinitely.
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_ORPHAN","ResultCode":0,"ResultDesc":"ok"}}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order/mpesa/callback", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack payment.CallbackAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Zero(t, ack.ResultCode)

	all, err := orderStore.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "orphan callbacks must not create or mutate state")
}

func TestMpesaCallbackAcknowledgesMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order/mpesa/callback", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack payment.CallbackAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Zero(t, ack.ResultCode)
}

func TestUserRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order/place", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/order/place", nil)
	req.Header.Set("token", "not-a-jwt")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/order/list", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "user", "email": "admin@example.com",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/order/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	router, orderStore := newTestRouter(t)

	body, err := json.Marshal(models.PlaceOrderRequest{
		Items:  []models.OrderItem{{ProductID: "p1", Quantity: 1, Price: 100}},
		Amount: 100,
		Address: models.Address{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", City: "Addis Ababa",
		},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", userToken(t, "user-1"))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	all, err := orderStore.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "user-1", all[0].UserID)
	assert.Equal(t, models.StatusOrderPlaced, all[0].Status)
}

func TestVerifyChapaNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/order/chapa/verify/TX-UNKNOWN", nil)
	req.Header.Set("token", userToken(t, "user-1"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}
