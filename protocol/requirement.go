package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Requirement keys understood by the matching engine.
const (
	RequirementTradingPartners = "trading_partners"
	RequirementEnergyType      = "energy_type"
	RequirementEnergy          = "energy"
	RequirementPrice           = "price"
)

// Requirement is one constraint dict attached to a bid or an offer.
// All present keys of one Requirement must hold together; a list of
// requirements holds when any one of them does.
type Requirement struct {
	// TradingPartners lists preferred counterparty ids. nil means the key is absent.
	TradingPartners []string
	// EnergyType lists accepted energy sources. nil means the key is absent.
	EnergyType []string
	// Energy is the maximum energy this requirement accepts for one match.
	Energy *decimal.Decimal
	// Price is the maximum total price this requirement accepts for one match.
	Price *decimal.Decimal
	// Unsupported keeps keys the engine does not know, with their raw values.
	Unsupported map[string]any
}

// MarshalJSON encodes the requirement back into its dict form.
func (r Requirement) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(r.Unsupported))
	for key, value := range r.Unsupported {
		out[key] = value
	}
	if r.TradingPartners != nil {
		out[RequirementTradingPartners] = r.TradingPartners
	}
	if r.EnergyType != nil {
		out[RequirementEnergyType] = r.EnergyType
	}
	if r.Energy != nil {
		out[RequirementEnergy] = *r.Energy
	}
	if r.Price != nil {
		out[RequirementPrice] = *r.Price
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a requirement dict. Non-numeric energy or price values
// are rejected instead of being coerced.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	req := Requirement{}
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case RequirementTradingPartners:
			partners, err := decodeStrings(value)
			if err != nil {
				return fmt.Errorf("requirement %q: %w", key, err)
			}
			req.TradingPartners = partners
		case RequirementEnergyType:
			types, err := decodeStrings(value)
			if err != nil {
				return fmt.Errorf("requirement %q: %w", key, err)
			}
			req.EnergyType = types
		case RequirementEnergy, RequirementPrice:
			var d decimal.Decimal
			if err := json.Unmarshal(value, &d); err != nil {
				return fmt.Errorf("requirement %q: %w", key, err)
			}
			if key == RequirementEnergy {
				req.Energy = &d
			} else {
				req.Price = &d
			}
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("requirement %q: %w", key, err)
			}
			if req.Unsupported == nil {
				req.Unsupported = make(map[string]any)
			}
			req.Unsupported[key] = v
		}
	}

	*r = req
	return nil
}

// decodeStrings accepts either a list of strings or a single string.
func decodeStrings(value json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}

	var single string
	if err := json.Unmarshal(value, &single); err != nil {
		return nil, fmt.Errorf("expected a list of strings: %w", err)
	}
	return []string{single}, nil
}
