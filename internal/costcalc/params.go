package costcalc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is the flattened parameter set of one invocation. Values are kept
// exactly as they arrived on the wire; numeric conversion happens in the
// calculator that reads them.
type Params map[string]string

// Lookup returns the raw value for name and whether it was supplied.
func (p Params) Lookup(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// String returns the raw value for name, or def when it is absent.
func (p Params) String(name, def string) string {
	if v, ok := p.Lookup(name); ok {
		return v
	}
	return def
}

// Float parses the value for name as a finite float64. Absent parameters
// yield def. A present but unparsable value yields a *ParseError.
func (p Params) Float(name string, def float64) (float64, error) {
	raw, ok := p.Lookup(name)
	if !ok {
		return def, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParseError{Param: name, Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Param: name, Value: raw, Err: errNotFinite}
	}

	return v, nil
}

var errNotFinite = errors.New("not a finite number")

// ParseError reports a parameter whose wire value could not be converted to
// a number.
type ParseError struct {
	Param string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not convert %s to a number: %q", e.Param, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
