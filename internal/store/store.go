// Package store persists order documents and exposes the lookups the payment
// flow needs, including indexed lookups by provider payment reference.
package store

import (
	"context"
	"errors"

	"github.com/andenet/shop-backend/internal/models"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// OrderUpdate is a partial field merge against one order. Nil fields are left
// untouched. The store applies the merge atomically per record but does not
// enforce the payment/status invariant; the orders service owns that.
type OrderUpdate struct {
	Status             *models.OrderStatus
	Payment            *bool
	TxRef              *string
	CheckoutRequestID  *string
	MpesaReceiptNumber *string
}

// OrderStore is the durable storage of order records.
type OrderStore interface {
	// Create assigns identity and creation time, validates required
	// attributes, and persists the order.
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Update(ctx context.Context, id string, upd OrderUpdate) (*models.Order, error)
	// FindByTxRef and FindByCheckoutRequestID resolve provider payment
	// references on the confirmation hot path; both are indexed.
	FindByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// CartStore clears a user's cart after an order is placed or settled.
type CartStore interface {
	ClearCart(ctx context.Context, userID string) error
}
