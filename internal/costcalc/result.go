package costcalc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the outcome of one calculator invocation. It is serialised as-is
// into the response envelope body.
type Result interface {
	Succeeded() bool
}

// Failure is the result every calculator returns when its inputs cannot be
// converted or its arithmetic cannot complete.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (Failure) Succeeded() bool { return false }

func fail(err error) Failure {
	return Failure{Success: false, Error: err.Error()}
}

// Calculator is the shape shared by every operation the dispatcher can route to.
type Calculator func(Params) Result

// round rounds v to the given number of decimal places using the shortest
// correctly rounded decimal representation, so 2.675 stays 2.67 like its
// binary value says.
func round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// formatPercent renders a percentage the way the explanations have always
// shown it: integral values keep a trailing ".0" ("20.0%").
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("result is not a finite number")
		}
	}
	return nil
}
