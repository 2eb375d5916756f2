package enums

// PaymentMethodType is the kind of a saved payment reference. Only display
// metadata is stored, never card numbers.
type PaymentMethodType string

const (
	PaymentMethodCard           PaymentMethodType = "card"
	PaymentMethodPayPal         PaymentMethodType = "paypal"
	PaymentMethodBankTransfer   PaymentMethodType = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethodType = "cash_on_delivery"
)

var paymentMethodTypes = newSet("payment method type",
	PaymentMethodCard, PaymentMethodPayPal, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery)

func (t PaymentMethodType) IsValid() bool { return paymentMethodTypes.has(t) }

// NeedsCardDetails reports whether brand, last four and expiry are required.
func (t PaymentMethodType) NeedsCardDetails() bool { return t == PaymentMethodCard }

func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	return paymentMethodTypes.parse(value)
}
