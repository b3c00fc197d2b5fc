// Package orders holds the payment orchestration logic: it creates orders,
// initiates payment with the chosen provider, and applies verification and
// callback outcomes to order state. It is the only writer of payment states.
package orders

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/andenet/shop-backend/internal/metrics"
	"github.com/andenet/shop-backend/internal/models"
	"github.com/andenet/shop-backend/internal/patterns"
	"github.com/andenet/shop-backend/internal/payment"
	"github.com/andenet/shop-backend/internal/store"
)

// Currency is the settlement currency passed to Chapa. Amounts are
// currency-agnostic everywhere else in the flow.
const Currency = "ETB"

// ChapaGateway is the redirect/verify provider capability.
type ChapaGateway interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (string, error)
	Verify(ctx context.Context, txRef string) (payment.VerifyResult, error)
}

// MpesaGateway is the push/callback provider capability.
type MpesaGateway interface {
	STKPush(ctx context.Context, req payment.STKPushRequest) (*payment.STKPushResponse, error)
}

// Service orchestrates order placement and payment reconciliation.
type Service struct {
	orders store.OrderStore
	carts  store.CartStore
	chapa  ChapaGateway
	mpesa  MpesaGateway

	chapaBreaker  *patterns.ProviderBreaker
	mpesaBreaker  *patterns.ProviderBreaker
	chapaBulkhead *patterns.Bulkhead
	mpesaBulkhead *patterns.Bulkhead

	genTxRef func() (string, error)
}

// NewService wires the orchestrator with its store, cart collaborator and the
// two provider gateways.
func NewService(orders store.OrderStore, carts store.CartStore, chapa ChapaGateway, mpesa MpesaGateway) *Service {
	return &Service{
		orders:        orders,
		carts:         carts,
		chapa:         chapa,
		mpesa:         mpesa,
		chapaBreaker:  patterns.NewProviderBreaker("chapa"),
		mpesaBreaker:  patterns.NewProviderBreaker("mpesa"),
		chapaBulkhead: patterns.NewBulkhead(10, "chapa"),
		mpesaBulkhead: patterns.NewBulkhead(10, "mpesa"),
		genTxRef:      payment.GenTxRef,
	}
}

// PlaceOrder places a cash-on-delivery order. There is no external settlement
// step: the order is created directly in its terminal placement state and the
// payment flag stays false until delivery, outside this system.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req models.PlaceOrderRequest) (*models.Order, error) {
	order := &models.Order{
		UserID:        userID,
		Items:         req.Items,
		Amount:        req.Amount,
		Address:       req.Address,
		PaymentMethod: models.PaymentMethodCOD,
		Payment:       false,
		Status:        models.StatusOrderPlaced,
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodCOD), "validation_failed").Inc()
		return nil, err
	}

	s.clearCart(ctx, userID)
	metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodCOD), "placed").Inc()

	log.WithFields(log.Fields{
		"order_id": created.ID,
		"user_id":  userID,
		"amount":   created.Amount,
	}).Info("Order placed (cash on delivery)")
	return created, nil
}

// ChapaPlacement is returned to the client after a successful Chapa initiation.
type ChapaPlacement struct {
	OrderID     string `json:"orderId"`
	TxRef       string `json:"tx_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// PlaceOrderChapa creates a pending order and opens a Chapa checkout session.
// If initiation fails the order stays pending without a reference: it carries
// no monetary commitment yet and the client may retry with a fresh placement.
func (s *Service) PlaceOrderChapa(ctx context.Context, userID string, req models.PlaceOrderRequest, origin string) (*ChapaPlacement, error) {
	var missing []string
	if req.Address.Email == "" {
		missing = append(missing, "email")
	}
	if req.Address.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if req.Address.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodChapa), "validation_failed").Inc()
		return nil, models.NewValidationError(missing...)
	}

	order := &models.Order{
		UserID:        userID,
		Items:         req.Items,
		Amount:        req.Amount,
		Address:       req.Address,
		PaymentMethod: models.PaymentMethodChapa,
		Payment:       false,
		Status:        models.StatusPendingPayment,
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodChapa), "validation_failed").Inc()
		return nil, err
	}

	txRef, err := s.genTxRef()
	if err != nil {
		return nil, err
	}

	returnURL := origin + "/payment/success?orderId=" + created.ID
	checkoutURL, err := s.initiateChapa(ctx, payment.InitializeRequest{
		Amount:      created.Amount,
		Currency:    Currency,
		Email:       req.Address.Email,
		FirstName:   req.Address.FirstName,
		LastName:    req.Address.LastName,
		TxRef:       txRef,
		CallbackURL: returnURL,
		ReturnURL:   returnURL,
		Customization: map[string]string{
			"title":       "Order Payment",
			"description": "Payment for order " + created.ID,
		},
		Meta: map[string]string{"orderId": created.ID},
	})
	if err != nil {
		metrics.PaymentInitiationsTotal.WithLabelValues("chapa", "error").Inc()
		log.WithFields(log.Fields{
			"order_id": created.ID,
			"user_id":  userID,
		}).Error("Chapa initiation failed: ", err)
		return nil, err
	}

	if _, err := s.orders.Update(ctx, created.ID, store.OrderUpdate{TxRef: &txRef}); err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodChapa), "pending").Inc()
	metrics.PaymentInitiationsTotal.WithLabelValues("chapa", "accepted").Inc()

	log.WithFields(log.Fields{
		"order_id": created.ID,
		"user_id":  userID,
		"tx_ref":   txRef,
	}).Info("Chapa checkout session created")
	return &ChapaPlacement{OrderID: created.ID, TxRef: txRef, CheckoutURL: checkoutURL}, nil
}

// VerifyChapa pulls the transaction status for txRef and, on success,
// settles the matching order. Re-verifying an already settled reference
// re-applies the same terminal state and is therefore harmless.
func (s *Service) VerifyChapa(ctx context.Context, txRef string) (payment.VerifyResult, *models.Order, error) {
	result, err := s.verifyChapa(ctx, txRef)
	if err != nil {
		return payment.VerifyResult{}, nil, err
	}
	if result.Outcome != payment.OutcomeSuccess {
		metrics.PaymentConfirmationsTotal.WithLabelValues("chapa", string(result.Outcome)).Inc()
		return result, nil, nil
	}

	order, err := s.orders.FindByTxRef(ctx, txRef)
	if err != nil {
		metrics.PaymentConfirmationsTotal.WithLabelValues("chapa", "orphaned").Inc()
		return result, nil, err
	}

	settled, err := s.settle(ctx, order.ID, store.OrderUpdate{})
	if err != nil {
		return result, nil, err
	}
	s.clearCart(ctx, order.UserID)

	metrics.PaymentConfirmationsTotal.WithLabelValues("chapa", "paid").Inc()
	metrics.PaymentAmount.Observe(settled.Amount)

	log.WithFields(log.Fields{
		"order_id": settled.ID,
		"tx_ref":   txRef,
	}).Info("Chapa payment verified, order settled")
	return result, settled, nil
}

// MpesaPlacement is returned to the client after the push was accepted.
type MpesaPlacement struct {
	OrderID           string `json:"orderId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	CustomerMessage   string `json:"customerMessage,omitempty"`
}

// PlaceOrderMpesa creates a pending order and pushes a payment prompt to the
// payer's phone. The phone number is normalized before the order exists, so a
// format error never leaves an orphan. A provider-reported rejection deletes
// the just-created order; the client must resubmit.
func (s *Service) PlaceOrderMpesa(ctx context.Context, userID string, req models.PlaceOrderRequest) (*MpesaPlacement, error) {
	if req.PhoneNumber == "" {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodMpesa), "validation_failed").Inc()
		return nil, models.NewValidationError("phoneNumber")
	}
	phone, err := payment.NormalizePhone(req.PhoneNumber)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodMpesa), "validation_failed").Inc()
		return nil, err
	}

	order := &models.Order{
		UserID:        userID,
		Items:         req.Items,
		Amount:        req.Amount,
		Address:       req.Address,
		PaymentMethod: models.PaymentMethodMpesa,
		Payment:       false,
		Status:        models.StatusPendingPayment,
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodMpesa), "validation_failed").Inc()
		return nil, err
	}

	resp, err := s.initiateMpesa(ctx, payment.STKPushRequest{
		Amount:           created.Amount,
		PhoneNumber:      phone,
		AccountReference: created.ID,
		Description:      "Payment for order " + created.ID,
	})
	if err != nil {
		// The push never went out or was refused outright; remove the
		// order so no unpayable pending record lingers.
		s.discard(ctx, created.ID)
		metrics.PaymentInitiationsTotal.WithLabelValues("mpesa", "error").Inc()
		log.WithFields(log.Fields{
			"order_id": created.ID,
			"user_id":  userID,
		}).Error("M-Pesa STK push failed: ", err)
		return nil, err
	}
	if !resp.Accepted() {
		s.discard(ctx, created.ID)
		metrics.PaymentInitiationsTotal.WithLabelValues("mpesa", "rejected").Inc()
		log.WithFields(log.Fields{
			"order_id":      created.ID,
			"response_code": resp.ResponseCode,
		}).Warn("M-Pesa STK push rejected: ", resp.ResponseDescription)
		return nil, &payment.ProviderError{
			Provider:   "mpesa",
			Message:    resp.ResponseDescription,
			StatusCode: http.StatusBadRequest,
		}
	}

	if _, err := s.orders.Update(ctx, created.ID, store.OrderUpdate{CheckoutRequestID: &resp.CheckoutRequestID}); err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(models.PaymentMethodMpesa), "pending").Inc()
	metrics.PaymentInitiationsTotal.WithLabelValues("mpesa", "accepted").Inc()

	log.WithFields(log.Fields{
		"order_id":            created.ID,
		"user_id":             userID,
		"checkout_request_id": resp.CheckoutRequestID,
	}).Info("M-Pesa STK push accepted")
	return &MpesaPlacement{
		OrderID:           created.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// HandleMpesaCallback applies an asynchronous push-payment outcome. A handle
// matching no order changes nothing; the HTTP layer acknowledges the provider
// regardless of the returned error, which exists only for logging.
func (s *Service) HandleMpesaCallback(ctx context.Context, cb payment.STKCallback) error {
	order, err := s.orders.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		metrics.PaymentConfirmationsTotal.WithLabelValues("mpesa", "orphaned").Inc()
		return err
	}

	if cb.ResultCode != 0 {
		failed := models.StatusPaymentFailed
		if _, err := s.orders.Update(ctx, order.ID, store.OrderUpdate{Status: &failed}); err != nil {
			return err
		}
		metrics.PaymentConfirmationsTotal.WithLabelValues("mpesa", "failed").Inc()
		log.WithFields(log.Fields{
			"order_id":            order.ID,
			"checkout_request_id": cb.CheckoutRequestID,
			"result_code":         cb.ResultCode,
		}).Warn("M-Pesa payment failed: ", cb.ResultDesc)
		return nil
	}

	receipt := cb.ReceiptNumber()
	settled, err := s.settle(ctx, order.ID, store.OrderUpdate{MpesaReceiptNumber: &receipt})
	if err != nil {
		return err
	}
	s.clearCart(ctx, order.UserID)

	metrics.PaymentConfirmationsTotal.WithLabelValues("mpesa", "paid").Inc()
	metrics.PaymentAmount.Observe(settled.Amount)

	log.WithFields(log.Fields{
		"order_id":            settled.ID,
		"checkout_request_id": cb.CheckoutRequestID,
		"receipt":             receipt,
	}).Info("M-Pesa payment confirmed, order settled")
	return nil
}

// MpesaStatus is the read-only settlement snapshot clients poll while waiting
// for a callback.
func (s *Service) MpesaStatus(ctx context.Context, checkoutRequestID string) (*models.Order, error) {
	return s.orders.FindByCheckoutRequestID(ctx, checkoutRequestID)
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// UserOrders returns the caller's orders, newest first.
func (s *Service) UserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// UpdateStatus is the administrative fulfillment override. Only known
// lifecycle labels are accepted.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, &models.ValidationError{Message: "unknown order status: " + string(status), Fields: []string{"status"}}
	}
	return s.orders.Update(ctx, orderID, store.OrderUpdate{Status: &status})
}

// settle marks an order paid. Extra fields in upd (such as a provider
// receipt) are merged in the same atomic write.
func (s *Service) settle(ctx context.Context, orderID string, upd store.OrderUpdate) (*models.Order, error) {
	paid := models.StatusPaid
	settled := true
	upd.Status = &paid
	upd.Payment = &settled
	return s.orders.Update(ctx, orderID, upd)
}

// clearCart is fire-and-forget: settlement never fails because the cart
// could not be cleared.
func (s *Service) clearCart(ctx context.Context, userID string) {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		log.WithField("user_id", userID).Warn("Failed to clear cart: ", err)
	}
}

// discard removes a just-created order after a failed initiation.
func (s *Service) discard(ctx context.Context, orderID string) {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		log.WithField("order_id", orderID).Warn("Failed to delete rejected order: ", err)
	}
}

func (s *Service) initiateChapa(ctx context.Context, req payment.InitializeRequest) (string, error) {
	var checkoutURL string
	err := s.chapaBulkhead.Execute(func() error {
		res, err := s.chapaBreaker.Execute(func() (interface{}, error) {
			return s.chapa.Initialize(ctx, req)
		})
		if err != nil {
			return err
		}
		checkoutURL = res.(string)
		return nil
	})
	return checkoutURL, err
}

func (s *Service) verifyChapa(ctx context.Context, txRef string) (payment.VerifyResult, error) {
	var result payment.VerifyResult
	err := s.chapaBulkhead.Execute(func() error {
		res, err := s.chapaBreaker.Execute(func() (interface{}, error) {
			return s.chapa.Verify(ctx, txRef)
		})
		if err != nil {
			return err
		}
		result = res.(payment.VerifyResult)
		return nil
	})
	return result, err
}

func (s *Service) initiateMpesa(ctx context.Context, req payment.STKPushRequest) (*payment.STKPushResponse, error) {
	var resp *payment.STKPushResponse
	err := s.mpesaBulkhead.Execute(func() error {
		res, err := s.mpesaBreaker.Execute(func() (interface{}, error) {
			return s.mpesa.STKPush(ctx, req)
		})
		if err != nil {
			return err
		}
		resp = res.(*payment.STKPushResponse)
		return nil
	})
	return resp, err
}
