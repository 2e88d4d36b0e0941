package inventory

import (
	"encoding/json"

	"github.com/example/ec-inventory/internal/infrastructure/store"
)

const AggregateType = "Variant"

// Variant is a stock keeping unit. OnHold counts units reserved by orders
// that have not yet been deducted from OnHand.
type Variant struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Tracked bool   `json:"tracked"`
	OnHand  int    `json:"on_hand"`
	OnHold  int    `json:"on_hold"`
	Version int    `json:"version"`
}

func (v *Variant) GetID() string { return v.Code }

func (v *Variant) GetVersion() int { return v.Version }

func (v *Variant) SetVersion(version int) { v.Version = version }

// Available is what can still be sold without dipping into held units.
func (v *Variant) Available() int {
	if v.OnHand < v.OnHold {
		return 0
	}
	return v.OnHand - v.OnHold
}

func (v *Variant) displayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Code
}

// ApplyEvent applies a single event to the variant state
func (v *Variant) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventVariantCreated:
		var data VariantCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Code = data.Code
		v.Name = data.Name
		v.Tracked = data.Tracked
		v.OnHand = data.OnHand
		v.OnHold = 0
	case EventVariantRestocked:
		var data VariantRestocked
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.OnHand = data.OnHand
	case EventVariantTrackingChanged:
		var data VariantTrackingChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Tracked = data.Tracked
	case EventInventoryHeld:
		var data InventoryHeld
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.OnHold = data.OnHold
	case EventInventorySold:
		var data InventorySold
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.OnHand = data.OnHand
		v.OnHold = data.OnHold
	case EventInventoryReleased:
		var data InventoryReleased
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.OnHold = data.OnHold
	case EventInventoryGivenBack:
		var data InventoryGivenBack
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.OnHand = data.OnHand
	}
	v.Version = event.Version
	return nil
}
