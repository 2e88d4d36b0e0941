package command

import "github.com/example/ec-inventory/internal/domain/inventory"

// Variant Commands
type RegisterVariant struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Tracked bool   `json:"tracked"`
	OnHand  int    `json:"on_hand"`
}

type RestockVariant struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

type SetTracking struct {
	Code    string `json:"code"`
	Tracked bool   `json:"tracked"`
}

// Order Commands
type OrderCommand struct {
	OrderID      string                 `json:"order_id"`
	PaymentState inventory.PaymentState `json:"payment_state"`
	Items        []inventory.OrderLine  `json:"items"`
}

type HoldOrder OrderCommand

type SellOrder OrderCommand

type CancelOrder OrderCommand

func (c OrderCommand) request() inventory.OrderRequest {
	return inventory.OrderRequest{
		OrderID:      c.OrderID,
		PaymentState: c.PaymentState,
		Lines:        c.Items,
	}
}

// Order lifecycle message types published on the order topic.
const (
	OrderPlaced    = "order.placed"
	OrderPaid      = "order.paid"
	OrderCancelled = "order.cancelled"
)

// OrderMessage is the payload of an order lifecycle message.
type OrderMessage struct {
	Type string `json:"type"`
	OrderCommand
}
