package types

import (
	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/pkg/enums"
)

// OrderCustomer identifies who placed the order.
type OrderCustomer struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Notes string `json:"notes,omitempty"`
}

// OrderAddress is the delivery target captured at checkout.
type OrderAddress struct {
	Label      string   `json:"label" validate:"required"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Complement string   `json:"complement,omitempty"`
}

// OrderItem is one priced cart line inside an order. TotalPrice must equal
// UnitPrice times Quantity; the storefront enforces this at creation and the
// queue does not re-validate it downstream.
type OrderItem struct {
	LineID     string          `json:"lineId" validate:"required"`
	ProductID  string          `json:"productId" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Selection  CartSelection   `json:"selection,omitempty"`
}

// CartTotals aggregates the cart at creation time.
type CartTotals struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count" validate:"gte=0"`
}

// OrderRequest is the payload sent to the orders backend.
type OrderRequest struct {
	Customer OrderCustomer     `json:"customer" validate:"required"`
	Items    []OrderItem       `json:"items" validate:"required,min=1,dive"`
	Totals   CartTotals        `json:"totals"`
	Address  OrderAddress      `json:"address" validate:"required"`
	Status   enums.OrderStatus `json:"status" validate:"required"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// Order is the persisted order as returned by the backend.
type Order struct {
	ID        string            `json:"id"`
	Status    enums.OrderStatus `json:"status"`
	Customer  OrderCustomer     `json:"customer"`
	Items     []OrderItem       `json:"items"`
	Totals    CartTotals        `json:"totals"`
	Address   OrderAddress      `json:"address"`
	CreatedAt Timestamp         `json:"createdAt"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// MetadataString returns the named metadata value when it is a string.
func (o Order) MetadataString(key string) (string, bool) {
	if o.Metadata == nil {
		return "", false
	}
	value, ok := o.Metadata[key].(string)
	return value, ok
}
