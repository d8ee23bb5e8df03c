package enums

import "fmt"

// DocumentType selects the fiscal receipt issued for an order.
type DocumentType string

const (
	// DocumentTypeBoleta is the individual receipt identified by an 8-digit DNI.
	DocumentTypeBoleta DocumentType = "boleta"
	// DocumentTypeFactura is the business invoice identified by an 11-digit RUC.
	DocumentTypeFactura DocumentType = "factura"
)

var validDocumentTypes = []DocumentType{
	DocumentTypeBoleta,
	DocumentTypeFactura,
}

// String implements fmt.Stringer.
func (d DocumentType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocumentType.
func (d DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// DocumentLength returns the exact digit count of the identity document.
func (d DocumentType) DocumentLength() int {
	if d == DocumentTypeFactura {
		return 11
	}
	return 8
}

// DocumentLabel names the identity document on forms.
func (d DocumentType) DocumentLabel() string {
	if d == DocumentTypeFactura {
		return "RUC"
	}
	return "DNI"
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	for _, candidate := range validDocumentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
