package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-inventory/internal/domain/inventory"
	"go.uber.org/zap"
)

// ErrMalformedMessage marks an order message that cannot be decoded.
var ErrMalformedMessage = errors.New("malformed order message")

// Retryable reports whether a failed order message may succeed when handled
// again. Undecodable messages and orders the domain rejects never will.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedMessage),
		errors.Is(err, inventory.ErrInvalidArgument),
		errors.Is(err, inventory.ErrVariantNotFound),
		errors.Is(err, inventory.ErrVariantExists):
		return false
	}
	return true
}

type Handler struct {
	inventorySvc *inventory.Service
	logger       *zap.Logger
}

func NewHandler(inventorySvc *inventory.Service, logger *zap.Logger) *Handler {
	return &Handler{
		inventorySvc: inventorySvc,
		logger:       logger.With(zap.String("component", "command_handler")),
	}
}

// RegisterVariant creates a variant (read store is updated asynchronously via Kafka)
func (h *Handler) RegisterVariant(ctx context.Context, cmd RegisterVariant) (*inventory.Variant, error) {
	return h.inventorySvc.RegisterVariant(ctx, cmd.Code, cmd.Name, cmd.Tracked, cmd.OnHand)
}

func (h *Handler) RestockVariant(ctx context.Context, cmd RestockVariant) (*inventory.Variant, error) {
	return h.inventorySvc.Restock(ctx, cmd.Code, cmd.Quantity)
}

func (h *Handler) SetTracking(ctx context.Context, cmd SetTracking) (*inventory.Variant, error) {
	return h.inventorySvc.SetTracked(ctx, cmd.Code, cmd.Tracked)
}

func (h *Handler) HoldOrder(ctx context.Context, cmd HoldOrder) (*inventory.OrderResult, error) {
	return h.inventorySvc.Hold(ctx, OrderCommand(cmd).request())
}

func (h *Handler) SellOrder(ctx context.Context, cmd SellOrder) (*inventory.OrderResult, error) {
	return h.inventorySvc.Sell(ctx, OrderCommand(cmd).request())
}

func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*inventory.OrderResult, error) {
	return h.inventorySvc.Cancel(ctx, OrderCommand(cmd).request())
}

// HandleOrderEvent is a kafka.MessageHandler for the order lifecycle topic.
// Placed orders are held, paid orders sold and cancelled orders cancelled.
func (h *Handler) HandleOrderEvent(ctx context.Context, key, value []byte) error {
	var msg OrderMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.OrderID == "" {
		msg.OrderID = string(key)
	}

	var (
		result *inventory.OrderResult
		err    error
	)
	switch msg.Type {
	case OrderPlaced:
		result, err = h.HoldOrder(ctx, HoldOrder(msg.OrderCommand))
	case OrderPaid:
		result, err = h.SellOrder(ctx, SellOrder(msg.OrderCommand))
	case OrderCancelled:
		result, err = h.CancelOrder(ctx, CancelOrder(msg.OrderCommand))
	default:
		h.logger.Debug("ignoring order message", zap.String("type", msg.Type), zap.String("order_id", msg.OrderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", msg.Type, msg.OrderID, err)
	}

	h.logger.Info("order message handled",
		zap.String("type", msg.Type),
		zap.String("order_id", msg.OrderID),
		zap.Int("variants", len(result.Variants)),
	)
	return nil
}
