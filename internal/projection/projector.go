package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ec-inventory/internal/domain/inventory"
	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/readmodel"
	"go.uber.org/zap"
)

// Projector keeps the variants read collection in step with Variant events.
type Projector struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *zap.Logger) *Projector {
	return &Projector{
		readStore: readStore,
		logger:    logger.With(zap.String("component", "projector")),
	}
}

// HandleEvent is a kafka.MessageHandler. Events at or below the stored
// version are skipped, so redelivery is harmless.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return p.Apply(ctx, event)
}

// Apply projects a single stored event.
func (p *Projector) Apply(_ context.Context, event store.Event) error {
	if event.AggregateType != inventory.AggregateType {
		return nil
	}

	variant := &inventory.Variant{Code: event.AggregateID}
	if current, ok := p.readStore.Get(store.CollectionVariants, event.AggregateID); ok {
		rm := current.(*readmodel.VariantReadModel)
		if event.Version <= rm.Version {
			p.logger.Debug("skipping already projected event",
				zap.String("variant", event.AggregateID),
				zap.Int("version", event.Version),
				zap.Int("projected", rm.Version),
			)
			return nil
		}
		variant = &inventory.Variant{
			Code:    rm.Code,
			Name:    rm.Name,
			Tracked: rm.Tracked,
			OnHand:  rm.OnHand,
			OnHold:  rm.OnHold,
			Version: rm.Version,
		}
	} else if event.EventType != inventory.EventVariantCreated {
		p.logger.Warn("projecting event for unknown variant",
			zap.String("variant", event.AggregateID),
			zap.String("event_type", event.EventType),
		)
	}

	if err := variant.ApplyEvent(event); err != nil {
		return fmt.Errorf("failed to apply %s to %s: %w", event.EventType, event.AggregateID, err)
	}

	updatedAt := event.Timestamp
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	rm := &readmodel.VariantReadModel{
		Code:      variant.Code,
		Name:      variant.Name,
		Tracked:   variant.Tracked,
		OnHand:    variant.OnHand,
		OnHold:    variant.OnHold,
		Available: variant.Available(),
		Version:   variant.Version,
		UpdatedAt: updatedAt,
	}
	p.readStore.Set(store.CollectionVariants, rm.Code, rm)

	p.logger.Debug("projected event",
		zap.String("variant", rm.Code),
		zap.String("event_type", event.EventType),
		zap.Int("version", rm.Version),
	)
	return nil
}

// Publish lets the projector stand in for a broker, projecting synchronously
// on append. Used when the API runs on the in-memory event store.
func (p *Projector) Publish(ctx context.Context, _ string, event any) error {
	stored, ok := event.(store.Event)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return p.Apply(ctx, stored)
}

// Replay rebuilds the read side from every stored event.
func (p *Projector) Replay(ctx context.Context, eventStore store.EventStoreInterface) (int, error) {
	events, err := eventStore.GetAllEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load events: %w", err)
	}
	for _, event := range events {
		if err := p.Apply(ctx, event); err != nil {
			return 0, err
		}
	}
	p.logger.Info("replayed events", zap.Int("count", len(events)))
	return len(events), nil
}
