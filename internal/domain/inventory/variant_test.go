package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariant_Available(t *testing.T) {
	tests := []struct {
		name     string
		variant  Variant
		expected int
	}{
		{"nothing held", Variant{OnHand: 10}, 10},
		{"partly held", Variant{OnHand: 10, OnHold: 4}, 6},
		{"fully held", Variant{OnHand: 3, OnHold: 3}, 0},
		{"held beyond stock", Variant{OnHand: 2, OnHold: 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.variant.Available())
		})
	}
}
