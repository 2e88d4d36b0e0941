package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-inventory/internal/domain/aggregate"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/example/ec-inventory/internal/domain/inventory"

// OrderLine is one requested variant and quantity of an order.
type OrderLine struct {
	VariantCode string `json:"variant_code"`
	Quantity    int    `json:"quantity"`
}

// OrderRequest identifies an order by id and carries what the operator needs.
type OrderRequest struct {
	OrderID      string       `json:"order_id"`
	PaymentState PaymentState `json:"payment_state"`
	Lines        []OrderLine  `json:"items"`
}

func (r OrderRequest) validate() error {
	if len(r.Lines) == 0 {
		return ErrEmptyOrder
	}
	for _, line := range r.Lines {
		if strings.TrimSpace(line.VariantCode) == "" {
			return fmt.Errorf("%w: variant code is required", ErrInvalidArgument)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w (variant %s, got %d)", ErrInvalidQuantity, line.VariantCode, line.Quantity)
		}
	}
	return nil
}

func (r OrderRequest) variantCodes() []string {
	codes := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		codes = append(codes, line.VariantCode)
	}
	return uniqueSorted(codes)
}

// OrderResult is the post-operation state of every variant in the order.
type OrderResult struct {
	OrderID  string    `json:"order_id"`
	Variants []Variant `json:"variants"`
	Clamps   []Clamp   `json:"clamps,omitempty"`
}

type orderOp string

const (
	opHold   orderOp = "hold"
	opSell   orderOp = "sell"
	opCancel orderOp = "cancel"
)

// Service loads variants from the event store, runs the operator on them and
// appends the resulting events. Writers of one variant are serialised in
// process; concurrent processes are resolved by version conflicts and retry.
type Service struct {
	eventStore store.EventStoreInterface
	variants   *aggregate.Repository[*Variant]
	operator   *Operator
	logger     *zap.Logger
	tracer     trace.Tracer
	locks      *variantLocks
	maxRetries int
}

func NewService(es store.EventStoreInterface, operator *Operator, logger *zap.Logger, maxRetries int) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	variants := aggregate.NewRepository(es, AggregateType, func(code string) *Variant {
		return &Variant{Code: code}
	})
	return &Service{
		eventStore: es,
		variants:   variants,
		operator:   operator,
		logger:     logger.With(zap.String("component", "inventory_service")),
		tracer:     otel.Tracer(tracerName),
		locks:      newVariantLocks(),
		maxRetries: maxRetries,
	}
}

// RegisterVariant creates a new variant with an initial on-hand quantity.
func (s *Service) RegisterVariant(ctx context.Context, code, name string, tracked bool, onHand int) (*Variant, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: variant code is required", ErrInvalidArgument)
	}
	if onHand < 0 {
		return nil, fmt.Errorf("%w: on hand must not be negative", ErrInvalidArgument)
	}

	unlock := s.locks.lock([]string{code})
	defer unlock()

	_, found, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrVariantExists, code)
	}

	event := VariantCreated{
		Code:      code,
		Name:      name,
		Tracked:   tracked,
		OnHand:    onHand,
		CreatedAt: time.Now(),
	}
	stored, err := s.eventStore.Append(ctx, store.PendingEvent{
		AggregateID:     code,
		AggregateType:   AggregateType,
		EventType:       EventVariantCreated,
		ExpectedVersion: 0,
		Data:            event,
	})
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, fmt.Errorf("%w: %s", ErrVariantExists, code)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("variant registered",
		zap.String("variant", code),
		zap.Bool("tracked", tracked),
		zap.Int("on_hand", onHand),
	)
	return &Variant{
		Code:    code,
		Name:    name,
		Tracked: tracked,
		OnHand:  onHand,
		Version: stored.Version,
	}, nil
}

// Restock adds received units to a variant's on-hand quantity.
func (s *Service) Restock(ctx context.Context, code string, quantity int) (*Variant, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.updateVariant(ctx, code, func(v *Variant) (string, any) {
		v.OnHand += quantity
		return EventVariantRestocked, VariantRestocked{
			Code:        v.Code,
			Quantity:    quantity,
			OnHand:      v.OnHand,
			RestockedAt: time.Now(),
		}
	})
}

// SetTracked switches inventory tracking for a variant. Setting the current
// value is a no-op.
func (s *Service) SetTracked(ctx context.Context, code string, tracked bool) (*Variant, error) {
	return s.updateVariant(ctx, code, func(v *Variant) (string, any) {
		if v.Tracked == tracked {
			return "", nil
		}
		v.Tracked = tracked
		return EventVariantTrackingChanged, VariantTrackingChanged{
			Code:      v.Code,
			Tracked:   tracked,
			ChangedAt: time.Now(),
		}
	})
}

// GetVariant returns the current state of a variant from the event store.
func (s *Service) GetVariant(ctx context.Context, code string) (*Variant, error) {
	v, found, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, code)
	}
	return v, nil
}

// Hold reserves stock for a placed order.
func (s *Service) Hold(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	return s.applyOrder(ctx, opHold, req)
}

// Sell deducts stock for a paid order.
func (s *Service) Sell(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	return s.applyOrder(ctx, opSell, req)
}

// Cancel returns stock for a cancelled order according to its payment state.
func (s *Service) Cancel(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	return s.applyOrder(ctx, opCancel, req)
}

func (s *Service) applyOrder(ctx context.Context, op orderOp, req OrderRequest) (*OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "inventory."+string(op), trace.WithAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("order.payment_state", string(req.PaymentState)),
		attribute.Int("order.items", len(req.Lines)),
	))
	defer span.End()

	result, err := s.applyOrderLocked(ctx, op, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("inventory.clamps", len(result.Clamps)))
	return result, nil
}

func (s *Service) applyOrderLocked(ctx context.Context, op orderOp, req OrderRequest) (*OrderResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	variantCodes := req.variantCodes()
	unlock := s.locks.lock(variantCodes)
	defer unlock()

	var result *OrderResult
	err := s.withRetry(ctx, string(op), func() error {
		var err error
		result, err = s.tryApplyOrder(ctx, op, req, variantCodes)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order applied",
		zap.String("op", string(op)),
		zap.String("order_id", req.OrderID),
		zap.Int("items", len(req.Lines)),
		zap.Int("clamps", len(result.Clamps)),
	)
	return result, nil
}

func (s *Service) tryApplyOrder(ctx context.Context, op orderOp, req OrderRequest, variantCodes []string) (*OrderResult, error) {
	variants := make(map[string]*Variant, len(variantCodes))
	before := make(map[string]Variant, len(variantCodes))
	for _, code := range variantCodes {
		v, err := s.GetVariant(ctx, code)
		if err != nil {
			return nil, err
		}
		variants[code] = v
		before[code] = *v
	}

	order := &Order{ID: req.OrderID, PaymentState: req.PaymentState}
	quantities := make(map[string]int, len(variantCodes))
	for _, line := range req.Lines {
		order.Items = append(order.Items, OrderItem{Variant: variants[line.VariantCode], Quantity: line.Quantity})
		quantities[line.VariantCode] += line.Quantity
	}

	var clamps []Clamp
	switch op {
	case opHold:
		s.operator.Hold(ctx, order)
	case opSell:
		clamps = s.operator.Sell(ctx, order)
	case opCancel:
		if err := s.operator.Cancel(ctx, order); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	var pending []store.PendingEvent
	for _, code := range variantCodes {
		v := variants[code]
		variantClamps := clampsFor(clamps, code)
		if *v == before[code] && len(variantClamps) == 0 {
			continue
		}
		eventType, data := orderEvent(op, order, v, quantities[code], variantClamps, now)
		pending = append(pending, store.PendingEvent{
			AggregateID:     code,
			AggregateType:   AggregateType,
			EventType:       eventType,
			ExpectedVersion: before[code].Version,
			Data:            data,
		})
	}

	if len(pending) > 0 {
		stored, err := s.eventStore.AppendBatch(ctx, pending)
		if err != nil {
			return nil, err
		}
		for _, event := range stored {
			v := variants[event.AggregateID]
			v.Version = event.Version
			s.snapshot(ctx, v)
		}
	}

	result := &OrderResult{OrderID: req.OrderID, Clamps: clamps}
	for _, code := range variantCodes {
		result.Variants = append(result.Variants, *variants[code])
	}
	return result, nil
}

func orderEvent(op orderOp, order *Order, v *Variant, quantity int, clamps []Clamp, now time.Time) (string, any) {
	switch op {
	case opHold:
		return EventInventoryHeld, InventoryHeld{
			Code: v.Code, OrderID: order.ID, Quantity: quantity, OnHold: v.OnHold, HeldAt: now,
		}
	case opSell:
		return EventInventorySold, InventorySold{
			Code: v.Code, OrderID: order.ID, Quantity: quantity, OnHand: v.OnHand, OnHold: v.OnHold, Clamps: clamps, SoldAt: now,
		}
	default:
		if order.PaymentState.WasPhysicallyDepleted() {
			return EventInventoryGivenBack, InventoryGivenBack{
				Code: v.Code, OrderID: order.ID, Quantity: quantity, OnHand: v.OnHand, GivenBackAt: now,
			}
		}
		return EventInventoryReleased, InventoryReleased{
			Code: v.Code, OrderID: order.ID, Quantity: quantity, OnHold: v.OnHold, ReleasedAt: now,
		}
	}
}

func clampsFor(clamps []Clamp, code string) []Clamp {
	var out []Clamp
	for _, c := range clamps {
		if c.VariantCode == code {
			out = append(out, c)
		}
	}
	return out
}

// updateVariant runs a single-variant change under its lock with conflict
// retries. mutate returns an empty event type when nothing changed.
func (s *Service) updateVariant(ctx context.Context, code string, mutate func(v *Variant) (string, any)) (*Variant, error) {
	unlock := s.locks.lock([]string{code})
	defer unlock()

	var result *Variant
	err := s.withRetry(ctx, "update", func() error {
		v, err := s.GetVariant(ctx, code)
		if err != nil {
			return err
		}
		expected := v.Version

		eventType, data := mutate(v)
		if eventType == "" {
			result = v
			return nil
		}

		stored, err := s.eventStore.Append(ctx, store.PendingEvent{
			AggregateID:     code,
			AggregateType:   AggregateType,
			EventType:       eventType,
			ExpectedVersion: expected,
			Data:            data,
		})
		if err != nil {
			return err
		}
		v.Version = stored.Version
		s.snapshot(ctx, v)
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withRetry reruns fn while the event store reports a version conflict.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt+1, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Debug("version conflict, retrying", zap.String("op", op), zap.Int("attempt", attempt+1))
	}
}

func (s *Service) load(ctx context.Context, code string) (*Variant, bool, error) {
	return s.variants.Load(ctx, code)
}

func (s *Service) snapshot(ctx context.Context, v *Variant) {
	saved, err := s.variants.SnapshotIfDue(ctx, v)
	if err != nil {
		s.logger.Warn("failed to create snapshot", zap.String("variant", v.Code), zap.Error(err))
		return
	}
	if saved {
		s.logger.Debug("snapshot saved", zap.String("variant", v.Code), zap.Int("version", v.Version))
	}
}
