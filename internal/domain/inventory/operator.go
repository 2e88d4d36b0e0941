package inventory

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const (
	FieldOnHand = "on_hand"
	FieldOnHold = "on_hold"
)

// Clamp records a sell that asked for more units than a field held. The
// field was set to zero and Shortfall units went unaccounted.
type Clamp struct {
	VariantCode string `json:"variant_code"`
	Field       string `json:"field"`
	Requested   int    `json:"requested"`
	Shortfall   int    `json:"shortfall"`
}

// Operator adjusts variant quantities across an order's lifecycle.
// It does no locking or persistence; callers must hand it variants they hold
// exclusively and that reflect the latest stored state.
type Operator struct {
	logger  *zap.Logger
	clamped metric.Int64Counter
}

func NewOperator(logger *zap.Logger, meter metric.Meter) *Operator {
	logger = logger.With(zap.String("component", "inventory_operator"))

	counter, err := meter.Int64Counter(
		"inventory.sell.clamped",
		metric.WithDescription("Sell adjustments clamped at zero"),
		metric.WithUnit("{clamp}"),
	)
	if err != nil {
		logger.Warn("failed to create clamp counter", zap.Error(err))
		counter = noop.Int64Counter{}
	}

	return &Operator{logger: logger, clamped: counter}
}

// Hold reserves the ordered quantity of every tracked variant.
func (o *Operator) Hold(_ context.Context, order *Order) {
	for _, item := range order.Items {
		if !item.Variant.Tracked {
			continue
		}
		item.Variant.OnHold += item.Quantity
	}
}

// Sell deducts the ordered quantity from both on-hold and on-hand. Neither
// field goes below zero. Clamps are returned and reported to telemetry.
func (o *Operator) Sell(ctx context.Context, order *Order) []Clamp {
	var clamps []Clamp
	for _, item := range order.Items {
		v := item.Variant
		if !v.Tracked {
			continue
		}

		var clamp *Clamp
		v.OnHold, clamp = o.decrease(ctx, order.ID, v, FieldOnHold, v.OnHold, item.Quantity)
		if clamp != nil {
			clamps = append(clamps, *clamp)
		}
		v.OnHand, clamp = o.decrease(ctx, order.ID, v, FieldOnHand, v.OnHand, item.Quantity)
		if clamp != nil {
			clamps = append(clamps, *clamp)
		}
	}
	return clamps
}

func (o *Operator) decrease(ctx context.Context, orderID string, v *Variant, field string, current, quantity int) (int, *Clamp) {
	if current >= quantity {
		return current - quantity, nil
	}

	clamp := &Clamp{
		VariantCode: v.Code,
		Field:       field,
		Requested:   quantity,
		Shortfall:   quantity - current,
	}
	o.logger.Warn("sell quantity exceeds stock, clamping to zero",
		zap.String("order_id", orderID),
		zap.String("variant", v.Code),
		zap.String("field", field),
		zap.Int("requested", quantity),
		zap.Int("shortfall", clamp.Shortfall),
	)
	o.clamped.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
	return 0, clamp
}

// Cancel undoes an order's effect on stock. Orders whose stock already left
// on-hand get it back; all others release their hold.
func (o *Operator) Cancel(_ context.Context, order *Order) error {
	if order.PaymentState.WasPhysicallyDepleted() {
		o.giveBack(order)
		return nil
	}
	return o.release(order)
}

// release checks every tracked variant before touching any of them, so a
// failed release changes nothing.
func (o *Operator) release(order *Order) error {
	requested := make(map[*Variant]int, len(order.Items))
	for _, item := range order.Items {
		v := item.Variant
		if !v.Tracked {
			continue
		}
		requested[v] += item.Quantity
		if v.OnHold-requested[v] < 0 {
			return &InsufficientOnHoldError{
				VariantName: v.displayName(),
				OnHold:      v.OnHold,
				Requested:   requested[v],
			}
		}
	}

	for _, item := range order.Items {
		if item.Variant.Tracked {
			item.Variant.OnHold -= item.Quantity
		}
	}
	return nil
}

func (o *Operator) giveBack(order *Order) {
	for _, item := range order.Items {
		if item.Variant.Tracked {
			item.Variant.OnHand += item.Quantity
		}
	}
}
