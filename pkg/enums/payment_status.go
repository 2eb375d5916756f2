package enums

// PaymentStatus is the money side of an order, moved by staff only.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = newSet("payment status",
	PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded)

func (s PaymentStatus) IsValid() bool { return paymentStatuses.has(s) }

// Final reports whether the status accepts no further change. Money that
// went back to the customer is not collected again on the same order.
func (s PaymentStatus) Final() bool {
	return s == PaymentStatusRefunded
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse(value)
}
