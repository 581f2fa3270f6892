package costcalc

import "fmt"

// CoinsuranceAmount is the successful result of Coinsurance.
type CoinsuranceAmount struct {
	Success           bool    `json:"success"`
	CoinsuranceAmount float64 `json:"coinsurance_amount"`
	Explanation       string  `json:"explanation"`
}

func (CoinsuranceAmount) Succeeded() bool { return true }

// Coinsurance applies coinsurance_percent (default 20) to amount (default 0).
func Coinsurance(p Params) Result {
	amount, err := p.Float("amount", 0)
	if err != nil {
		return fail(err)
	}
	percent, err := p.Float("coinsurance_percent", DefaultCoinsurancePercent)
	if err != nil {
		return fail(err)
	}

	share := amount * (percent / 100)
	if err := checkFinite(share); err != nil {
		return fail(err)
	}

	return CoinsuranceAmount{
		Success:           true,
		CoinsuranceAmount: round(share, 2),
		Explanation:       fmt.Sprintf("%s%% of %s is %s", formatPercent(percent), money(amount), money(share)),
	}
}
