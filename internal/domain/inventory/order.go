package inventory

// PaymentState is the payment lifecycle state of an order. States outside the
// listed ones are accepted and treated like any other not yet depleted state.
type PaymentState string

const (
	PaymentStateCart                PaymentState = "cart"
	PaymentStateUnpaid              PaymentState = "unpaid"
	PaymentStateAwaitingPayment     PaymentState = "awaiting_payment"
	PaymentStatePartiallyAuthorized PaymentState = "partially_authorized"
	PaymentStateAuthorized          PaymentState = "authorized"
	PaymentStatePartiallyPaid       PaymentState = "partially_paid"
	PaymentStateCancelled           PaymentState = "cancelled"
	PaymentStatePaid                PaymentState = "paid"
	PaymentStatePartiallyRefunded   PaymentState = "partially_refunded"
	PaymentStateRefunded            PaymentState = "refunded"
)

// WasPhysicallyDepleted reports whether stock for an order in this state has
// already left on-hand. Only fully paid and fully refunded orders qualify;
// partially refunded orders still count as held.
func (s PaymentState) WasPhysicallyDepleted() bool {
	return s == PaymentStatePaid || s == PaymentStateRefunded
}

// OrderItem is one line of an order. Several items may share a Variant.
type OrderItem struct {
	Variant  *Variant
	Quantity int
}

type Order struct {
	ID           string
	Items        []OrderItem
	PaymentState PaymentState
}
