package enums

import "fmt"

// CardBank is the issuing bank picked for card payments.
type CardBank string

const (
	CardBankBCP       CardBank = "BCP"
	CardBankInterbank CardBank = "Interbank"
	CardBankBBVA      CardBank = "BBVA"
)

var validCardBanks = []CardBank{
	CardBankBCP,
	CardBankInterbank,
	CardBankBBVA,
}

// String implements fmt.Stringer.
func (b CardBank) String() string {
	return string(b)
}

// IsValid reports whether the value is a known CardBank.
func (b CardBank) IsValid() bool {
	for _, candidate := range validCardBanks {
		if candidate == b {
			return true
		}
	}
	return false
}

// CardBanks lists the selectable banks in display order.
func CardBanks() []CardBank {
	out := make([]CardBank, len(validCardBanks))
	copy(out, validCardBanks)
	return out
}

// ParseCardBank converts raw input into a CardBank.
func ParseCardBank(value string) (CardBank, error) {
	for _, candidate := range validCardBanks {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card bank %q", value)
}
