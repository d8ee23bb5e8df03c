package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/pkg/types"
)

func TestImageNormalizer(t *testing.T) {
	n := ImageNormalizer{StorageBaseURL: "https://api.tienda.pe/", Placeholder: "https://via.placeholder.com/50"}
	tests := []struct {
		name string
		in   Product
		want string
	}{
		{"image_url wins", Product{ImageURL: "https://cdn/x.png", Image: "y.png"}, "https://cdn/x.png"},
		{"absolute image kept", Product{Image: "http://img/x.png"}, "http://img/x.png"},
		{"https image kept", Product{Image: "https://img/x.png"}, "https://img/x.png"},
		{"data uri kept", Product{Image: "data:image/png;base64,AAA"}, "data:image/png;base64,AAA"},
		{"relative rewritten", Product{Image: "abc.jpg"}, "https://api.tienda.pe/storage/products/abc.jpg"},
		{"leading slash trimmed", Product{Image: "/abc.jpg"}, "https://api.tienda.pe/storage/products/abc.jpg"},
		{"missing uses placeholder", Product{}, "https://via.placeholder.com/50"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := n.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestImageNormalizerDefaults(t *testing.T) {
	var n ImageNormalizer
	if got := n.Normalize(Product{Image: "a.png"}); got != "http://localhost:8000/storage/products/a.png" {
		t.Fatalf("unexpected default base: %q", got)
	}
	if got := n.Normalize(Product{}); got != "https://via.placeholder.com/50" {
		t.Fatalf("unexpected default placeholder: %q", got)
	}
}

func TestSnapshotAggregates(t *testing.T) {
	snap := Snapshot{
		Lines: []LineItem{
			{ID: types.ParseProductID("1"), UnitPrice: decimal.NewFromInt(50), Quantity: 2},
			{ID: types.ParseProductID("2"), UnitPrice: decimal.RequireFromString("30.25"), Quantity: 1},
		},
		Selection: Selection{"2": {}},
	}
	if snap.Count() != 3 {
		t.Fatalf("expected count 3, got %d", snap.Count())
	}
	if !snap.Total().Equal(decimal.RequireFromString("130.25")) {
		t.Fatalf("unexpected total %s", snap.Total())
	}
	if !snap.PartiallySelected() || snap.AllSelected() {
		t.Fatal("expected partial selection")
	}
	if lines := snap.SelectedLines(); len(lines) != 1 || lines[0].ID != types.ParseProductID("2") {
		t.Fatalf("unexpected selected lines %+v", lines)
	}

	empty := Snapshot{}
	if empty.AllSelected() || empty.PartiallySelected() {
		t.Fatal("empty cart is neither all nor partially selected")
	}
}
