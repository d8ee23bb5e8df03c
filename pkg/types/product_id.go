package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProductID is the opaque catalog identifier of a product. The commerce API
// emits numeric ids; string ids are accepted as well. An id is written back
// in the JSON kind it was read with, so "007" stays a string and 42 stays a
// number. Two ids name the same product when their Key matches.
type ProductID struct {
	value   string
	numeric bool
}

// ParseProductID builds a string-kind id, as found in URL paths.
func ParseProductID(raw string) ProductID {
	return ProductID{value: strings.TrimSpace(raw)}
}

// NumericProductID builds a number-kind id.
func NumericProductID(n int64) ProductID {
	return ProductID{value: strconv.FormatInt(n, 10), numeric: true}
}

// String implements fmt.Stringer.
func (p ProductID) String() string {
	return p.value
}

// Key is the identity used for lookups regardless of the JSON kind.
func (p ProductID) Key() string {
	return p.value
}

// IsZero reports whether the identifier is empty.
func (p ProductID) IsZero() bool {
	return p.value == ""
}

// IsNumeric reports whether the id was read from a JSON number.
func (p ProductID) IsNumeric() bool {
	return p.numeric
}

// MarshalJSON emits the id in the kind it arrived with.
func (p ProductID) MarshalJSON() ([]byte, error) {
	if p.numeric {
		return []byte(p.value), nil
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ProductID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ParseProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a number or string: %w", err)
	}
	*p = ProductID{value: n.String(), numeric: true}
	return nil
}
