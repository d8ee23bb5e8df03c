package checkout

import (
	"time"

	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/pricing"
	"github.com/compunet/storefront/pkg/enums"
)

// View is the read model of a Session. Card secrets are masked.
type View struct {
	ID                 string               `json:"id"`
	Status             enums.CheckoutStatus `json:"status"`
	Step               enums.CheckoutStep   `json:"step"`
	StepName           string               `json:"stepName"`
	StepTitle          string               `json:"stepTitle"`
	Items              []cart.LineItem      `json:"items"`
	Totals             pricing.Display      `json:"totals"`
	Billing            Billing              `json:"billingData"`
	DocumentLabel      string               `json:"documentLabel"`
	PaymentMethod      enums.PaymentMethod  `json:"paymentMethod"`
	PaymentMethodLabel string               `json:"paymentMethodLabel"`
	PaymentData        PaymentDetails       `json:"paymentData"`
	Banks              []enums.CardBank     `json:"banks"`
	Submitting         bool                 `json:"submitting"`
	LastError          string               `json:"lastError,omitempty"`
	Receipt            *Receipt             `json:"receipt,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// View renders the session for display.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payment PaymentDetails
	if details := s.paymentDetails(); details != nil {
		payment = details.masked()
	}
	return View{
		ID:                 s.id,
		Status:             s.status,
		Step:               s.step,
		StepName:           s.step.String(),
		StepTitle:          s.step.Title(),
		Items:              s.Items(),
		Totals:             s.Totals().Display(s.opts.Currency),
		Billing:            s.billing,
		DocumentLabel:      s.billing.Type.DocumentLabel(),
		PaymentMethod:      s.method,
		PaymentMethodLabel: s.method.Label(),
		PaymentData:        payment,
		Banks:              enums.CardBanks(),
		Submitting:         s.submitting,
		LastError:          s.lastError,
		Receipt:            s.receipt,
		CreatedAt:          s.createdAt,
	}
}
