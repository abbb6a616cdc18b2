package models

// PaymentMethod is how a payment was collected.
type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "Virement"
	PaymentMethodCash     PaymentMethod = "Espèces"
	PaymentMethodCheque   PaymentMethod = "Chèque"
	PaymentMethodCard     PaymentMethod = "Carte"
	PaymentMethodOther    PaymentMethod = "Autre"
)

// ParsePaymentMethod maps free text to a known method, falling back to Other.
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(s) {
	case PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCheque, PaymentMethodCard:
		return PaymentMethod(s)
	}
	switch s {
	case "transfer", "virement":
		return PaymentMethodTransfer
	case "cash", "especes":
		return PaymentMethodCash
	case "cheque", "check":
		return PaymentMethodCheque
	case "card", "carte":
		return PaymentMethodCard
	}
	return PaymentMethodOther
}

// Payment tied to an invoice.
type Payment struct {
	ID        string        `json:"id"`
	Date      string        `json:"date"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
}
