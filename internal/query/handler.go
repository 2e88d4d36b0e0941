package query

import (
	"strings"

	"github.com/example/ec-inventory/internal/infrastructure/store"
	"github.com/example/ec-inventory/internal/readmodel"
)

type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

// GetVariant returns the projected counters of one variant.
func (h *Handler) GetVariant(code string) (*readmodel.VariantReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionVariants, code)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.VariantReadModel), true
}

// ListFilter narrows ListVariants. The zero value lists everything.
type ListFilter struct {
	TrackedOnly bool
	// LowStock keeps variants whose available quantity is at or below it.
	LowStock *int
	Prefix   string
}

// ListVariants returns variants ordered by code.
func (h *Handler) ListVariants(filter ListFilter) []*readmodel.VariantReadModel {
	items := h.readStore.GetAll(store.CollectionVariants)
	variants := make([]*readmodel.VariantReadModel, 0, len(items))
	for _, item := range items {
		v := item.(*readmodel.VariantReadModel)
		if filter.TrackedOnly && !v.Tracked {
			continue
		}
		if filter.LowStock != nil && v.Available > *filter.LowStock {
			continue
		}
		if filter.Prefix != "" && !strings.HasPrefix(v.Code, filter.Prefix) {
			continue
		}
		variants = append(variants, v)
	}
	return variants
}
