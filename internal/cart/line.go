package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/pkg/types"
)

// Product is the catalog payload passed to AddItem.
type Product struct {
	ID       types.ProductID `json:"id" validate:"required"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	Image    string          `json:"image,omitempty"`
}

// LineItem is one product entry in the cart. The JSON shape is the durable
// format stored under the "cart" key.
type LineItem struct {
	ID        types.ProductID `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ImageNormalizer turns a product's image reference into an absolute URL.
type ImageNormalizer struct {
	StorageBaseURL string
	Placeholder    string
}

const (
	defaultStorageBaseURL = "http://localhost:8000"
	defaultPlaceholder    = "https://via.placeholder.com/50"
)

// Normalize applies, in order: explicit image_url, absolute or data URI image,
// relative storage path, placeholder.
func (n ImageNormalizer) Normalize(p Product) string {
	if url := strings.TrimSpace(p.ImageURL); url != "" {
		return url
	}
	image := strings.TrimSpace(p.Image)
	if image == "" {
		return n.placeholder()
	}
	if strings.HasPrefix(image, "http") || strings.HasPrefix(image, "data:") {
		return image
	}
	return n.baseURL() + "/storage/products/" + strings.TrimLeft(image, "/")
}

func (n ImageNormalizer) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(n.StorageBaseURL), "/")
	if base == "" {
		return defaultStorageBaseURL
	}
	return base
}

func (n ImageNormalizer) placeholder() string {
	if n.Placeholder == "" {
		return defaultPlaceholder
	}
	return n.Placeholder
}
