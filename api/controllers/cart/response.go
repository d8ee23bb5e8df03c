package cart

import (
	cartsvc "github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/shopper"
)

type addItemResponse struct {
	Item cartsvc.LineItem `json:"item"`
	Cart shopper.CartView `json:"cart"`
}

type toggleResponse struct {
	Selected bool             `json:"selected"`
	Cart     shopper.CartView `json:"cart"`
}
