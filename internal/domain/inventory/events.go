package inventory

import "time"

const (
	EventVariantCreated         = "VariantCreated"
	EventVariantRestocked       = "VariantRestocked"
	EventVariantTrackingChanged = "VariantTrackingChanged"
	EventInventoryHeld          = "InventoryHeld"
	EventInventorySold          = "InventorySold"
	EventInventoryReleased      = "InventoryReleased"
	EventInventoryGivenBack     = "InventoryGivenBack"
)

// Every event carries the absolute quantities after the change, so replaying
// a stream never depends on arithmetic done at write time.

type VariantCreated struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Tracked   bool      `json:"tracked"`
	OnHand    int       `json:"on_hand"`
	CreatedAt time.Time `json:"created_at"`
}

type VariantRestocked struct {
	Code        string    `json:"code"`
	Quantity    int       `json:"quantity"`
	OnHand      int       `json:"on_hand"`
	RestockedAt time.Time `json:"restocked_at"`
}

type VariantTrackingChanged struct {
	Code      string    `json:"code"`
	Tracked   bool      `json:"tracked"`
	ChangedAt time.Time `json:"changed_at"`
}

type InventoryHeld struct {
	Code     string    `json:"code"`
	OrderID  string    `json:"order_id"`
	Quantity int       `json:"quantity"`
	OnHold   int       `json:"on_hold"`
	HeldAt   time.Time `json:"held_at"`
}

type InventorySold struct {
	Code     string    `json:"code"`
	OrderID  string    `json:"order_id"`
	Quantity int       `json:"quantity"`
	OnHand   int       `json:"on_hand"`
	OnHold   int       `json:"on_hold"`
	Clamps   []Clamp   `json:"clamps,omitempty"`
	SoldAt   time.Time `json:"sold_at"`
}

type InventoryReleased struct {
	Code       string    `json:"code"`
	OrderID    string    `json:"order_id"`
	Quantity   int       `json:"quantity"`
	OnHold     int       `json:"on_hold"`
	ReleasedAt time.Time `json:"released_at"`
}

type InventoryGivenBack struct {
	Code        string    `json:"code"`
	OrderID     string    `json:"order_id"`
	Quantity    int       `json:"quantity"`
	OnHand      int       `json:"on_hand"`
	GivenBackAt time.Time `json:"given_back_at"`
}
