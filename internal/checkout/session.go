// Package checkout implements the three-step checkout wizard: billing info,
// payment method and confirmation. A Session is created from a cart snapshot
// and never outlives the wizard.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/pricing"
	"github.com/compunet/storefront/pkg/auth"
	"github.com/compunet/storefront/pkg/enums"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
)

// GenericFailureMessage is shown when a submission fails without a usable message.
const GenericFailureMessage = "Error al procesar el pedido"

// Options tune a Session.
type Options struct {
	// Permissive lets Next advance without validating the current step.
	Permissive bool
	TaxRate    decimal.Decimal
	Currency   string
	Now        func() time.Time
}

// WithDefaults fills a zero tax rate, currency or clock. Callers that price
// the cart outside a Session use it so both agree on the rate.
func (o Options) WithDefaults() Options {
	if o.TaxRate.IsZero() {
		o.TaxRate = pricing.DefaultTaxRate()
	}
	if o.Currency == "" {
		o.Currency = pricing.DefaultCurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is one run of the checkout wizard. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id             string
	idempotencyKey string
	opts           Options
	createdAt      time.Time

	status enums.CheckoutStatus
	step   enums.CheckoutStep
	items  []cart.LineItem

	billing Billing
	method  enums.PaymentMethod
	card    CardDetails
	wallet  WalletDetails

	submitting bool
	lastError  string
	receipt    *Receipt
}

// Enter starts a checkout over the selected lines of snap. An empty selection
// is refused with EMPTY_SELECTION and a redirect hint back to the cart.
func Enter(snap cart.Snapshot, opts Options) (*Session, error) {
	items := snap.SelectedLines()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptySelection, "no items selected for checkout").
			WithDetails(map[string]any{"redirect": "/cart"})
	}
	opts = opts.WithDefaults()
	return &Session{
		id:             uuid.NewString(),
		idempotencyKey: uuid.NewString(),
		opts:           opts,
		createdAt:      opts.Now(),
		status:         enums.CheckoutStatusActive,
		step:           enums.CheckoutStepBilling,
		items:          items,
		billing:        Billing{Type: enums.DocumentTypeBoleta},
		method:         enums.PaymentMethodCard,
	}, nil
}

func (s *Session) ID() string { return s.id }

// IdempotencyKey is constant for the session so retries of the same order
// are recognised by the commerce API.
func (s *Session) IdempotencyKey() string { return s.idempotencyKey }

func (s *Session) Status() enums.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Step() enums.CheckoutStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Items returns a copy of the snapshot taken at entry.
func (s *Session) Items() []cart.LineItem {
	out := make([]cart.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Totals prices the snapshot.
func (s *Session) Totals() pricing.Totals {
	return pricing.ComputeLines(s.items, s.opts.TaxRate)
}

// requireEditable must be called with mu held.
func (s *Session) requireEditable() error {
	if s.status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is "+s.status.String())
	}
	if s.submitting {
		return pkgerrors.New(pkgerrors.CodeSubmissionPending, "order submission already in progress")
	}
	return nil
}

// UpdateBilling applies billing edits. A document type change clears the
// document number before any document edit in the same update is applied.
func (s *Session) UpdateBilling(update BillingUpdate) ([]FieldResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable(); err != nil {
		return nil, err
	}

	var results []FieldResult
	if update.Type != nil {
		docType, err := enums.ParseDocumentType(*update.Type)
		if err == nil {
			if docType != s.billing.Type {
				s.billing.Type = docType
				s.billing.Document = ""
			}
		}
		results = append(results, FieldResult{Field: "type", Accepted: err == nil, Value: s.billing.Type.String()})
	}
	if update.Document != nil {
		value, ok := NormalizeDocument(*update.Document, s.billing.Type)
		if ok {
			s.billing.Document = value
		}
		results = append(results, FieldResult{Field: "document", Accepted: ok, Value: s.billing.Document})
	}
	if update.Name != nil {
		s.billing.Name = *update.Name
		results = append(results, FieldResult{Field: "name", Accepted: true, Value: s.billing.Name})
	}
	if update.Address != nil {
		s.billing.Address = *update.Address
		results = append(results, FieldResult{Field: "address", Accepted: true, Value: s.billing.Address})
	}
	if update.Email != nil {
		s.billing.Email = *update.Email
		results = append(results, FieldResult{Field: "email", Accepted: true, Value: s.billing.Email})
	}
	return results, nil
}

// UpdatePayment applies the payment method choice and field edits. Drafts of
// both methods are kept so switching back and forth loses nothing.
func (s *Session) UpdatePayment(update PaymentUpdate) ([]FieldResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable(); err != nil {
		return nil, err
	}

	var results []FieldResult
	if update.Method != nil {
		method, err := enums.ParsePaymentMethod(*update.Method)
		if err == nil {
			s.method = method
		}
		results = append(results, FieldResult{Field: "paymentMethod", Accepted: err == nil, Value: s.method.String()})
	}
	if update.CardNumber != nil {
		value, ok := NormalizeCardNumber(*update.CardNumber)
		if ok {
			s.card.Number = value
		}
		results = append(results, FieldResult{Field: "cardNumber", Accepted: ok, Value: s.card.Number})
	}
	if update.Expiry != nil {
		s.card.Expiry = NormalizeExpiry(*update.Expiry)
		results = append(results, FieldResult{Field: "expiry", Accepted: true, Value: s.card.Expiry})
	}
	if update.CVV != nil {
		value, ok := NormalizeCVV(*update.CVV)
		if ok {
			s.card.CVV = value
		}
		results = append(results, FieldResult{Field: "cvv", Accepted: ok, Value: MaskCVV(s.card.CVV)})
	}
	if update.Bank != nil {
		bank, err := enums.ParseCardBank(*update.Bank)
		if err == nil {
			s.card.Bank = bank
		}
		results = append(results, FieldResult{Field: "bank", Accepted: err == nil, Value: s.card.Bank.String()})
	}
	if update.WalletPhone != nil {
		value, ok := NormalizeWalletPhone(*update.WalletPhone)
		if ok {
			s.wallet.Phone = value
		}
		results = append(results, FieldResult{Field: "yapeNumber", Accepted: ok, Value: s.wallet.Phone})
	}
	if update.ApprovalCode != nil {
		s.wallet.ApprovalCode = *update.ApprovalCode
		results = append(results, FieldResult{Field: "yapeCode", Accepted: true, Value: s.wallet.ApprovalCode})
	}
	return results, nil
}

// paymentDetails must be called with mu held.
func (s *Session) paymentDetails() PaymentDetails {
	switch s.method {
	case enums.PaymentMethodCard:
		return s.card
	case enums.PaymentMethodWallet:
		return s.wallet
	}
	return nil
}

// stepErrors must be called with mu held.
func (s *Session) stepErrors(step enums.CheckoutStep) map[string]string {
	switch step {
	case enums.CheckoutStepBilling:
		return validateBilling(s.billing)
	case enums.CheckoutStepPayment:
		return validatePayment(s.paymentDetails())
	}
	return nil
}

func invalidStep(step enums.CheckoutStep, details map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, step.Title()+": datos incompletos").WithDetails(details)
}

// Next advances one step. In strict mode the current step must be complete.
func (s *Session) Next() (enums.CheckoutStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable(); err != nil {
		return s.step, err
	}
	if s.step >= enums.LastCheckoutStep {
		return s.step, pkgerrors.New(pkgerrors.CodeStateConflict, "already at the confirmation step")
	}
	if !s.opts.Permissive {
		if details := s.stepErrors(s.step); len(details) > 0 {
			return s.step, invalidStep(s.step, details)
		}
	}
	s.step++
	return s.step, nil
}

// Back returns to the previous step. At the first step it does nothing.
func (s *Session) Back() (enums.CheckoutStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEditable(); err != nil {
		return s.step, err
	}
	if s.step > enums.CheckoutStepBilling {
		s.step--
	}
	return s.step, nil
}

// Abandon discards the wizard. Abandoning an abandoned session is a no-op.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.status == enums.CheckoutStatusAbandoned:
		return nil
	case s.status == enums.CheckoutStatusSubmitted:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already submitted")
	case s.submitting:
		return pkgerrors.New(pkgerrors.CodeSubmissionPending, "order submission already in progress")
	}
	s.status = enums.CheckoutStatusAbandoned
	return nil
}

// Order builds the order request from the current state.
func (s *Session) Order() Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderLocked()
}

func (s *Session) orderLocked() Order {
	return Order{
		Billing:        s.billing,
		PaymentMethod:  s.method,
		PaymentData:    s.paymentDetails(),
		Items:          orderItems(s.items),
		Total:          jsonNumber(s.Totals().GrandTotal),
		IdempotencyKey: s.idempotencyKey,
	}
}

// Confirm submits the order. It is only valid at the confirmation step and
// only one submission may be in flight. On failure the session stays at the
// confirmation step with its data intact so the shopper can retry.
func (s *Session) Confirm(ctx context.Context, submitter Submitter, cred auth.Credential) (Receipt, error) {
	if submitter == nil {
		return Receipt{}, pkgerrors.New(pkgerrors.CodeInternal, "order submitter required")
	}

	s.mu.Lock()
	if err := s.requireEditable(); err != nil {
		s.mu.Unlock()
		return Receipt{}, err
	}
	if s.step != enums.CheckoutStepConfirmation {
		s.mu.Unlock()
		return Receipt{}, pkgerrors.New(pkgerrors.CodeStateConflict, "confirm is only allowed at the confirmation step")
	}
	if !s.opts.Permissive {
		for _, step := range []enums.CheckoutStep{enums.CheckoutStepBilling, enums.CheckoutStepPayment} {
			if details := s.stepErrors(step); len(details) > 0 {
				s.mu.Unlock()
				return Receipt{}, invalidStep(step, details)
			}
		}
	}
	order := s.orderLocked()
	s.submitting = true
	s.lastError = ""
	s.mu.Unlock()

	receipt, err := submitter.Submit(ctx, order, cred)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil {
			typed = pkgerrors.Wrap(pkgerrors.CodeSubmission, err, GenericFailureMessage)
		}
		s.lastError = typed.Message()
		return Receipt{}, typed
	}
	s.status = enums.CheckoutStatusSubmitted
	s.receipt = &receipt
	return receipt, nil
}
