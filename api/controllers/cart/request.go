package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/api/validators"
	cartsvc "github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/pkg/types"
)

const maxProductNameLen = 255

type productPayload struct {
	ID       types.ProductID `json:"id" validate:"required"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Image    string          `json:"image"`
}

// UnmarshalJSON accepts the full catalog product. Fields the cart does not
// keep, such as stock or description, are ignored.
func (p *productPayload) UnmarshalJSON(data []byte) error {
	type plain productPayload
	return json.Unmarshal(data, (*plain)(p))
}

type addItemRequest struct {
	Product  productPayload `json:"product"`
	Quantity *int           `json:"quantity"`
}

func (r addItemRequest) toProduct() cartsvc.Product {
	return cartsvc.Product{
		ID:       r.Product.ID,
		Name:     validators.SanitizeString(r.Product.Name, maxProductNameLen),
		Price:    r.Product.Price,
		ImageURL: r.Product.ImageURL,
		Image:    r.Product.Image,
	}
}

// quantity defaults to one; the store clamps anything below that.
func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
