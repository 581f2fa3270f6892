package action

import "healthcost-actions/internal/costcalc"

// API paths the action group exposes.
const (
	PathOutOfPocketCost = "/calculateOutOfPocketCost"
	PathComparePrices   = "/comparePrices"
	PathCoinsurance     = "/calculateCoinsurance"
)

// Operation binds an API path to the calculator that serves it.
type Operation struct {
	Path string
	// Name labels spans, metrics and logs.
	Name string
	Calc costcalc.Calculator
}

func (d *Dispatcher) buildOperations() map[string]Operation {
	ops := []Operation{
		{
			Path: PathOutOfPocketCost,
			Name: "calculate_out_of_pocket_cost",
			Calc: costcalc.OutOfPocket,
		},
		{
			Path: PathComparePrices,
			Name: "compare_hospital_prices",
			Calc: func(p costcalc.Params) costcalc.Result {
				return costcalc.ComparePrices(p, costcalc.WithLenientJSON(d.opts.LenientJSON))
			},
		},
		{
			Path: PathCoinsurance,
			Name: "calculate_coinsurance",
			Calc: costcalc.Coinsurance,
		},
	}

	byPath := make(map[string]Operation, len(ops))
	for _, op := range ops {
		byPath[op.Path] = op
	}
	return byPath
}
