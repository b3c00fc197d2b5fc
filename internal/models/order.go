package models

import "time"

// PaymentMethod identifies how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "COD"
	PaymentMethodChapa PaymentMethod = "Chapa"
	PaymentMethodMpesa PaymentMethod = "M-Pesa"
)

// OrderStatus is the order lifecycle label. Payment states are written only by
// the orders service; fulfillment states are set through the admin status endpoint.
type OrderStatus string

const (
	StatusOrderPlaced    OrderStatus = "Order placed"
	StatusPendingPayment OrderStatus = "Pending payment"
	StatusPaid           OrderStatus = "Paid"
	StatusPaymentFailed  OrderStatus = "Payment failed"
	StatusPacking        OrderStatus = "Packing"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for delivery"
	StatusDelivered      OrderStatus = "Delivered"
)

// KnownStatuses lists every status the API accepts on admin updates.
var KnownStatuses = []OrderStatus{
	StatusOrderPlaced,
	StatusPendingPayment,
	StatusPaid,
	StatusPaymentFailed,
	StatusPacking,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

// ValidStatus reports whether s is one of the known lifecycle labels.
func ValidStatus(s OrderStatus) bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderItem is a client-supplied snapshot of a product at purchase time.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId" binding:"required"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity" binding:"required,gt=0"`
	Size      string  `json:"size,omitempty" bson:"size,omitempty"`
}

// Address is the shipping and contact block attached to an order.
type Address struct {
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Email     string `json:"email" bson:"email"`
	Street    string `json:"street" bson:"street"`
	City      string `json:"city" bson:"city"`
	State     string `json:"state" bson:"state"`
	Zipcode   string `json:"zipcode" bson:"zipcode"`
	Country   string `json:"country" bson:"country"`
	Phone     string `json:"phone" bson:"phone"`
}

// Order is the persisted order document. At most one of TxRef and
// CheckoutRequestID is ever set, determined by the payment method.
type Order struct {
	ID                 string        `json:"id" bson:"_id"`
	UserID             string        `json:"userId" bson:"userId"`
	Items              []OrderItem   `json:"items" bson:"items"`
	Amount             float64       `json:"amount" bson:"amount"`
	Address            Address       `json:"address" bson:"address"`
	Status             OrderStatus   `json:"status" bson:"status"`
	PaymentMethod      PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	Payment            bool          `json:"payment" bson:"payment"`
	Date               time.Time     `json:"date" bson:"date"`
	TxRef              string        `json:"tx_ref,omitempty" bson:"tx_ref,omitempty"`
	CheckoutRequestID  string        `json:"checkoutRequestId,omitempty" bson:"checkoutRequestId,omitempty"`
	MpesaReceiptNumber string        `json:"mpesaReceiptNumber,omitempty" bson:"mpesaReceiptNumber,omitempty"`
}

// MissingFields returns the names of required attributes that are absent or
// invalid. An empty result means the order is storable.
func (o *Order) MissingFields() []string {
	var missing []string
	if o.UserID == "" {
		missing = append(missing, "userId")
	}
	if len(o.Items) == 0 {
		missing = append(missing, "items")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			missing = append(missing, "items.quantity")
			break
		}
	}
	if o.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if o.Address == (Address{}) {
		missing = append(missing, "address")
	}
	if o.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	}
	return missing
}

// PlaceOrderRequest is the body shared by the three order placement endpoints.
// PhoneNumber is only consulted on the M-Pesa path.
type PlaceOrderRequest struct {
	Items       []OrderItem `json:"items" binding:"required,dive"`
	Amount      float64     `json:"amount" binding:"required,gt=0"`
	Address     Address     `json:"address" binding:"required"`
	PhoneNumber string      `json:"phoneNumber"`
}

// UpdateStatusRequest is the admin status override body.
type UpdateStatusRequest struct {
	OrderID string      `json:"orderId" binding:"required"`
	Status  OrderStatus `json:"status" binding:"required"`
}
