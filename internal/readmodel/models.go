package readmodel

import "time"

// VariantReadModel is the read model for a stock-keeping unit's counters
type VariantReadModel struct {
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Tracked   bool      `json:"tracked" db:"tracked"`
	OnHand    int       `json:"on_hand" db:"on_hand"`
	OnHold    int       `json:"on_hold" db:"on_hold"`
	Available int       `json:"available" db:"available"` // see inventory.Variant.Available
	Version   int       `json:"version" db:"version"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
