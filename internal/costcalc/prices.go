package costcalc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoPrices is reported when hospital_prices is omitted or empty.
var ErrNoPrices = errors.New("No hospital prices provided")

// PriceComparison is the successful result of ComparePrices.
type PriceComparison struct {
	Success              bool    `json:"success"`
	LowestPriceHospital  string  `json:"lowest_price_hospital"`
	LowestPrice          float64 `json:"lowest_price"`
	HighestPriceHospital string  `json:"highest_price_hospital"`
	HighestPrice         float64 `json:"highest_price"`
	PotentialSavings     float64 `json:"potential_savings"`
	SavingsPercent       float64 `json:"savings_percent"`
	Comparison           string  `json:"comparison"`
	Explanation          string  `json:"explanation"`
}

func (PriceComparison) Succeeded() bool { return true }

// HospitalPrice is one entry of the hospital_prices object, in document order.
type HospitalPrice struct {
	Hospital string
	Price    float64
}

type compareOptions struct {
	lenient bool
}

// CompareOption tunes ComparePrices.
type CompareOption func(*compareOptions)

// WithLenientJSON makes ComparePrices repair malformed hospital_prices JSON
// (single quotes, trailing commas, missing braces) before giving up.
func WithLenientJSON(enabled bool) CompareOption {
	return func(o *compareOptions) {
		o.lenient = enabled
	}
}

// ComparePrices ranks the hospitals in the hospital_prices parameter, a JSON
// object of hospital name to price, and reports the spread between the
// cheapest and the most expensive one. Ties resolve to the entry that appears
// first in the object.
func ComparePrices(p Params, opts ...CompareOption) Result {
	var o compareOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := comparePrices(p.String("hospital_prices", "{}"), o)
	if err != nil {
		return fail(err)
	}
	return res
}

func comparePrices(raw string, o compareOptions) (PriceComparison, error) {
	prices, err := DecodeHospitalPrices(raw)
	if err != nil && o.lenient {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return PriceComparison{}, fmt.Errorf("%w (repair failed: %v)", err, repairErr)
		}
		prices, err = DecodeHospitalPrices(repaired)
	}
	if err != nil {
		return PriceComparison{}, err
	}
	if len(prices) == 0 {
		return PriceComparison{}, ErrNoPrices
	}

	lowest, highest := prices[0], prices[0]
	for _, hp := range prices[1:] {
		if hp.Price < lowest.Price {
			lowest = hp
		}
		if hp.Price > highest.Price {
			highest = hp
		}
	}

	savings := highest.Price - lowest.Price
	if highest.Price == 0 {
		return PriceComparison{}, fmt.Errorf("division by zero: highest price at %s is 0", highest.Hospital)
	}
	savingsPercent := savings / highest.Price * 100
	if err := checkFinite(savings, savingsPercent); err != nil {
		return PriceComparison{}, err
	}

	sorted := slices.Clone(prices)
	slices.SortStableFunc(sorted, func(a, b HospitalPrice) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	})

	lines := make([]string, 0, len(sorted))
	for _, hp := range sorted {
		lines = append(lines, fmt.Sprintf("%s: %s", hp.Hospital, money(hp.Price)))
	}

	return PriceComparison{
		Success:              true,
		LowestPriceHospital:  lowest.Hospital,
		LowestPrice:          round(lowest.Price, 2),
		HighestPriceHospital: highest.Hospital,
		HighestPrice:         round(highest.Price, 2),
		PotentialSavings:     round(savings, 2),
		SavingsPercent:       round(savingsPercent, 1),
		Comparison:           strings.Join(lines, "\n"),
		Explanation: fmt.Sprintf("The lowest price is %s at %s. You could save %s (%.1f%%) compared to the highest price of %s at %s.",
			money(lowest.Price), lowest.Hospital, money(savings), savingsPercent, money(highest.Price), highest.Hospital),
	}, nil
}

// DecodeHospitalPrices decodes a JSON object of hospital name to price,
// keeping document order. A repeated name keeps its first position and its
// last value. null and [] decode to no prices.
func DecodeHospitalPrices(raw string) ([]HospitalPrice, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, decodeErr(err)
	}

	var prices []HospitalPrice
	switch t := tok.(type) {
	case nil:
	case json.Delim:
		switch t {
		case '[':
			if dec.More() {
				return nil, errors.New("hospital_prices must be a JSON object")
			}
			if _, err := dec.Token(); err != nil {
				return nil, decodeErr(err)
			}
		case '{':
			prices, err = decodePriceObject(dec)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("hospital_prices must be a JSON object")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("hospital_prices: unexpected data after JSON value")
	}

	return prices, nil
}

func decodePriceObject(dec *json.Decoder) ([]HospitalPrice, error) {
	var prices []HospitalPrice
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, decodeErr(err)
		}
		name, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, decodeErr(err)
		}
		price, err := parsePrice(name, value)
		if err != nil {
			return nil, err
		}

		if i, ok := index[name]; ok {
			prices[i].Price = price
			continue
		}
		index[name] = len(prices)
		prices = append(prices, HospitalPrice{Hospital: name, Price: price})
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, decodeErr(err)
	}
	return prices, nil
}

func parsePrice(name string, value json.RawMessage) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, decodeErr(err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("price for %s is not a number: %s", name, value)
	}
	price, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("price for %s is out of range: %s", name, n)
	}
	return price, nil
}

func decodeErr(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("invalid hospital_prices JSON: %w", err)
}
