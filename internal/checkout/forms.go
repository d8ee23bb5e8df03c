package checkout

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/compunet/storefront/pkg/enums"
)

// Billing identifies who the receipt is issued to.
type Billing struct {
	Type     enums.DocumentType `json:"type" validate:"required"`
	Document string             `json:"document" validate:"required,numeric"`
	Name     string             `json:"name" validate:"required"`
	Address  string             `json:"address" validate:"required"`
	Email    string             `json:"email" validate:"required"`
}

// PaymentDetails is the method-specific part of an order: CardDetails or
// WalletDetails.
type PaymentDetails interface {
	Method() enums.PaymentMethod
	masked() PaymentDetails
}

// CardDetails are the fields of a card payment.
type CardDetails struct {
	Number string         `json:"cardNumber" validate:"required"`
	Expiry string         `json:"expiry" validate:"required"`
	CVV    string         `json:"cvv" validate:"required"`
	Bank   enums.CardBank `json:"bank,omitempty"`
}

func (CardDetails) Method() enums.PaymentMethod { return enums.PaymentMethodCard }

func (c CardDetails) masked() PaymentDetails {
	c.Number = MaskCardNumber(c.Number)
	c.CVV = MaskCVV(c.CVV)
	return c
}

// WalletDetails are the fields of a mobile-wallet (Yape/Plin) payment.
type WalletDetails struct {
	Phone        string `json:"yapeNumber" validate:"required"`
	ApprovalCode string `json:"yapeCode" validate:"required"`
}

func (WalletDetails) Method() enums.PaymentMethod { return enums.PaymentMethodWallet }

func (w WalletDetails) masked() PaymentDetails { return w }

// BillingUpdate carries the billing fields a shopper edited. Nil fields are
// left untouched.
type BillingUpdate struct {
	Type     *string `json:"type,omitempty"`
	Document *string `json:"document,omitempty"`
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// PaymentUpdate carries the payment method and field edits.
type PaymentUpdate struct {
	Method       *string `json:"paymentMethod,omitempty"`
	CardNumber   *string `json:"cardNumber,omitempty"`
	Expiry       *string `json:"expiry,omitempty"`
	CVV          *string `json:"cvv,omitempty"`
	Bank         *string `json:"bank,omitempty"`
	WalletPhone  *string `json:"yapeNumber,omitempty"`
	ApprovalCode *string `json:"yapeCode,omitempty"`
}

// FieldResult reports whether an edit was kept. Rejected edits leave the
// previous value in place.
type FieldResult struct {
	Field    string `json:"field"`
	Accepted bool   `json:"accepted"`
	Value    string `json:"value"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// fieldErrors runs struct validation and returns field -> message.
func fieldErrors(v any) map[string]string {
	details := map[string]string{}
	err := validate.Struct(v)
	if err == nil {
		return details
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		details["_"] = err.Error()
		return details
	}
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "numeric":
			details[fe.Field()] = "must contain only digits"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return details
}

func validateBilling(b Billing) map[string]string {
	details := fieldErrors(b)
	if !b.Type.IsValid() {
		details["type"] = "is invalid"
		return details
	}
	if _, bad := details["document"]; !bad && len(b.Document) != b.Type.DocumentLength() {
		details["document"] = "must have " + strconv.Itoa(b.Type.DocumentLength()) + " digits"
	}
	return details
}

func validatePayment(details PaymentDetails) map[string]string {
	if details == nil {
		return map[string]string{"paymentMethod": "is required"}
	}
	return fieldErrors(details)
}
