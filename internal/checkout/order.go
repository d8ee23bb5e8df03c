package checkout

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/pkg/auth"
	"github.com/compunet/storefront/pkg/enums"
	"github.com/compunet/storefront/pkg/types"
)

// Order is the order-creation request sent to the commerce API.
type Order struct {
	Billing       Billing             `json:"billingData"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentData   PaymentDetails      `json:"paymentData"`
	Items         []OrderItem         `json:"items"`
	Total         json.Number         `json:"total"`

	// IdempotencyKey is sent as a header, not in the body.
	IdempotencyKey string `json:"-"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ID       types.ProductID `json:"id"`
	Quantity int             `json:"quantity"`
	Price    json.Number     `json:"price"`
}

func orderItems(lines []cart.LineItem) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ID:       line.ID,
			Quantity: line.Quantity,
			Price:    jsonNumber(line.UnitPrice),
		})
	}
	return items
}

func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Receipt is what the commerce API returned for a created order.
type Receipt struct {
	OrderID string          `json:"orderId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Submitter places orders. The order gateway implements it.
type Submitter interface {
	Submit(ctx context.Context, order Order, cred auth.Credential) (Receipt, error)
}
