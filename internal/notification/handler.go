package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/email"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/readmodel"
	"go.uber.org/zap"
)

// AlertSender delivers drift alerts.
type AlertSender interface {
	SendDriftAlert(to, orderID string, lines []email.ClampLine) error
}

// Handler turns clamped sells into drift alert mails.
type Handler struct {
	sender    AlertSender
	readStore store.ReadStoreInterface
	alertTo   string
	logger    *zap.Logger
}

// NewHandler creates a notification handler. readStore may be nil, in which
// case alerts show variant codes only.
func NewHandler(sender AlertSender, readStore store.ReadStoreInterface, alertTo string, logger *zap.Logger) *Handler {
	return &Handler{
		sender:    sender,
		readStore: readStore,
		alertTo:   alertTo,
		logger:    logger.With(zap.String("component", "notifier")),
	}
}

// HandleEvent processes an event from Kafka or Kinesis.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	if event.EventType != inventory.EventInventorySold {
		return nil
	}
	return h.handleSold(event)
}

func (h *Handler) handleSold(event store.Event) error {
	var e inventory.InventorySold
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to decode %s: %w", event.EventType, err)
	}
	if len(e.Clamps) == 0 {
		return nil
	}

	lines := make([]email.ClampLine, len(e.Clamps))
	for i, c := range e.Clamps {
		lines[i] = email.ClampLine{
			VariantCode: c.VariantCode,
			VariantName: h.variantName(c.VariantCode),
			Field:       c.Field,
			Requested:   c.Requested,
			Shortfall:   c.Shortfall,
		}
	}

	if err := h.sender.SendDriftAlert(h.alertTo, e.OrderID, lines); err != nil {
		h.logger.Error("failed to send drift alert",
			zap.String("order_id", e.OrderID),
			zap.String("variant", e.Code),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("drift alert sent",
		zap.String("order_id", e.OrderID),
		zap.String("variant", e.Code),
		zap.Int("clamps", len(lines)),
	)
	return nil
}

func (h *Handler) variantName(code string) string {
	if h.readStore == nil {
		return ""
	}
	data, ok := h.readStore.Get(store.CollectionVariants, code)
	if !ok {
		return ""
	}
	if rm, ok := data.(*readmodel.VariantReadModel); ok {
		return rm.Name
	}
	return ""
}
