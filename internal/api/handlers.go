package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/andenet/shop-backend/internal/models"
	"github.com/andenet/shop-backend/internal/orders"
	"github.com/andenet/shop-backend/internal/payment"
	"github.com/andenet/shop-backend/internal/store"
)

// Handler exposes the order/payment flow over HTTP.
type Handler struct {
	svc         *orders.Service
	frontendURL string
}

// NewHandler wires the handlers to the orders service. frontendURL is the
// fallback origin for payment return URLs.
func NewHandler(svc *orders.Service, frontendURL string) *Handler {
	return &Handler{svc: svc, frontendURL: frontendURL}
}

// PlaceOrder handles cash-on-delivery placement.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order placed successfully",
		"orderId": order.ID,
	})
}

// PlaceOrderChapa initiates a redirect-based Chapa payment.
func (h *Handler) PlaceOrderChapa(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return
	}

	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = h.frontendURL
	}

	placement, err := h.svc.PlaceOrderChapa(c.Request.Context(), UserID(c), req, origin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"checkout_url": placement.CheckoutURL,
		"tx_ref":       placement.TxRef,
		"orderId":      placement.OrderID,
	})
}

// PlaceOrderMpesa initiates a push-based M-Pesa payment.
func (h *Handler) PlaceOrderMpesa(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return
	}

	placement, err := h.svc.PlaceOrderMpesa(c.Request.Context(), UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "STK push sent successfully. Please check your phone.",
		"checkoutRequestId": placement.CheckoutRequestID,
		"orderId":           placement.OrderID,
	})
}

// VerifyChapa pulls the provider status for a reference and settles the
// order when the payment succeeded.
func (h *Handler) VerifyChapa(c *gin.Context) {
	txRef := c.Param("tx_ref")

	result, order, err := h.svc.VerifyChapa(c.Request.Context(), txRef)
	if err != nil {
		respondError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":     false,
			"message":     "Payment not successful",
			"transaction": result,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Payment verified successfully",
		"transaction": result,
		"order":       order,
	})
}

// MpesaCallback receives the asynchronous push-payment outcome. The provider
// must always get a success acknowledgment or it retries the callback
// indefinitely, so every internal failure is logged and swallowed.
func (h *Handler) MpesaCallback(c *gin.Context) {
	ack := payment.CallbackAck{ResultCode: 0, ResultDesc: "Success"}

	var envelope payment.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Warn("Malformed M-Pesa callback body: ", err)
		c.JSON(http.StatusOK, ack)
		return
	}

	if err := h.svc.HandleMpesaCallback(c.Request.Context(), envelope.Body.STKCallback); err != nil {
		log.WithField("checkout_request_id", envelope.Body.STKCallback.CheckoutRequestID).
			Warn("M-Pesa callback not applied: ", err)
	}
	c.JSON(http.StatusOK, ack)
}

// MpesaStatus is the read-only settlement snapshot for polling clients.
func (h *Handler) MpesaStatus(c *gin.Context) {
	order, err := h.svc.MpesaStatus(c.Request.Context(), c.Param("checkoutRequestId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"_id":                order.ID,
			"status":             order.Status,
			"payment":            order.Payment,
			"mpesaReceiptNumber": order.MpesaReceiptNumber,
		},
	})
}

// ListOrders returns every order for the admin console.
func (h *Handler) ListOrders(c *gin.Context) {
	all, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": all})
}

// UserOrders returns the caller's orders.
func (h *Handler) UserOrders(c *gin.Context) {
	own, err := h.svc.UserOrders(c.Request.Context(), UserID(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": own})
}

// UpdateStatus is the admin fulfillment status override.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return
	}

	if _, err := h.svc.UpdateStatus(c.Request.Context(), req.OrderID, req.Status); err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) || errors.Is(err, store.ErrNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated"})
}

// respondError maps the error taxonomy onto HTTP responses: validation
// failures carry field detail, provider failures keep the provider's own
// status, missing orders are 404, and anything else is a plain 500.
func respondError(c *gin.Context, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":       false,
			"message":       ve.Error(),
			"missingFields": ve.Fields,
		})
		return
	}

	var pe *payment.ProviderError
	if errors.As(err, &pe) {
		status := pe.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"success": false, "message": pe.Message})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
}
