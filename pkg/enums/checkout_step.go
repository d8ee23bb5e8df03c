package enums

// CheckoutStep indexes the fixed wizard sequence.
type CheckoutStep int

const (
	CheckoutStepBilling      CheckoutStep = 0
	CheckoutStepPayment      CheckoutStep = 1
	CheckoutStepConfirmation CheckoutStep = 2
)

// LastCheckoutStep is the final interactive step.
const LastCheckoutStep = CheckoutStepConfirmation

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	switch s {
	case CheckoutStepBilling:
		return "billing_info"
	case CheckoutStepPayment:
		return "payment_method"
	case CheckoutStepConfirmation:
		return "confirmation"
	}
	return "unknown"
}

// Title is the stepper label shown to shoppers.
func (s CheckoutStep) Title() string {
	switch s {
	case CheckoutStepBilling:
		return "Identificación y Comprobante"
	case CheckoutStepPayment:
		return "Método de Pago"
	case CheckoutStepConfirmation:
		return "Confirmación"
	}
	return ""
}

// CheckoutStatus tracks whether the wizard is still running.
type CheckoutStatus string

const (
	CheckoutStatusActive    CheckoutStatus = "active"
	CheckoutStatusSubmitted CheckoutStatus = "submitted"
	CheckoutStatusAbandoned CheckoutStatus = "abandoned"
)

// String implements fmt.Stringer.
func (c CheckoutStatus) String() string {
	return string(c)
}

// IsTerminal reports whether no further transitions are allowed.
func (c CheckoutStatus) IsTerminal() bool {
	return c == CheckoutStatusSubmitted || c == CheckoutStatusAbandoned
}
