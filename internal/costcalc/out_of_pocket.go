package costcalc

import (
	"fmt"
	"math"
)

// DefaultCoinsurancePercent applies whenever coinsurance_percent is omitted.
const DefaultCoinsurancePercent = 20

// OutOfPocketCost is the successful result of OutOfPocket.
type OutOfPocketCost struct {
	Success            bool    `json:"success"`
	OutOfPocketCost    float64 `json:"out_of_pocket_cost"`
	DeductiblePortion  float64 `json:"deductible_portion"`
	CoinsurancePortion float64 `json:"coinsurance_portion"`
	Explanation        string  `json:"explanation"`
}

func (OutOfPocketCost) Succeeded() bool { return true }

// OutOfPocket estimates what the patient pays for a procedure given their
// deductible status and coinsurance rate.
//
// Parameters: procedure_cost, deductible, deductible_paid (default 0) and
// coinsurance_percent (default 20). The percentage is not clamped.
func OutOfPocket(p Params) Result {
	res, err := computeOutOfPocket(p)
	if err != nil {
		return fail(err)
	}
	return res
}

func computeOutOfPocket(p Params) (OutOfPocketCost, error) {
	procedureCost, err := p.Float("procedure_cost", 0)
	if err != nil {
		return OutOfPocketCost{}, err
	}
	deductible, err := p.Float("deductible", 0)
	if err != nil {
		return OutOfPocketCost{}, err
	}
	deductiblePaid, err := p.Float("deductible_paid", 0)
	if err != nil {
		return OutOfPocketCost{}, err
	}
	coinsurancePercent, err := p.Float("coinsurance_percent", DefaultCoinsurancePercent)
	if err != nil {
		return OutOfPocketCost{}, err
	}

	remaining := math.Max(0, deductible-deductiblePaid)

	var (
		total, deductiblePortion, coinsurancePortion float64
		explanation                                  string
	)

	if procedureCost <= remaining {
		// Still inside the deductible: the whole bill counts toward it.
		total = procedureCost
		deductiblePortion = procedureCost
		explanation = fmt.Sprintf("You will pay the full %s which goes toward your remaining %s deductible.",
			money(procedureCost), money(remaining))
	} else {
		deductiblePortion = remaining
		afterDeductible := procedureCost - remaining
		coinsurancePortion = afterDeductible * (coinsurancePercent / 100)
		total = deductiblePortion + coinsurancePortion

		if remaining > 0 {
			explanation = fmt.Sprintf("You will pay %s toward your deductible, plus %s%% coinsurance (%s) on the remaining %s, for a total of %s.",
				money(deductiblePortion), formatPercent(coinsurancePercent), money(coinsurancePortion), money(afterDeductible), money(total))
		} else {
			explanation = fmt.Sprintf("Your deductible is met. You will pay %s%% coinsurance (%s) on the %s procedure cost.",
				formatPercent(coinsurancePercent), money(coinsurancePortion), money(procedureCost))
		}
	}

	if err := checkFinite(total, deductiblePortion, coinsurancePortion); err != nil {
		return OutOfPocketCost{}, err
	}

	return OutOfPocketCost{
		Success:            true,
		OutOfPocketCost:    round(total, 2),
		DeductiblePortion:  round(deductiblePortion, 2),
		CoinsurancePortion: round(coinsurancePortion, 2),
		Explanation:        explanation,
	}, nil
}
