package credits

// Plan represents a purchasable credit package
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int64  `json:"credits"`
	PriceCents  int64  `json:"price_cents"`
	PriceID     string `json:"price_id"`
	Description string `json:"description"`
	Popular     bool   `json:"popular"`
}

var plans = []*Plan{
	{
		ID:          "basic",
		Name:        "Basic package",
		Credits:     100,
		PriceCents:  999,
		PriceID:     "price_basic_credits",
		Description: "100 credits for flight searches",
	},
	{
		ID:          "standard",
		Name:        "Standard package",
		Credits:     500,
		PriceCents:  3999,
		PriceID:     "price_standard_credits",
		Description: "500 credits for flight searches",
		Popular:     true,
	},
	{
		ID:          "premium",
		Name:        "Premium package",
		Credits:     1000,
		PriceCents:  6999,
		PriceID:     "price_premium_credits",
		Description: "1000 credits for flight searches",
	},
}

// Plans returns the catalogue of purchasable credit packages
func Plans() []*Plan {
	out := make([]*Plan, len(plans))
	for i, plan := range plans {
		cpy := *plan
		out[i] = &cpy
	}
	return out
}

// PlanByID looks up a plan by its ID. Returns nil if it does not exist.
func PlanByID(id string) *Plan {
	for _, plan := range plans {
		if plan.ID == id {
			cpy := *plan
			return &cpy
		}
	}
	return nil
}
