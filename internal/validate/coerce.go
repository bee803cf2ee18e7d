package validate

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// maxNumericLen bounds numeric strings before they reach the decimal parser;
// exponent forms like "1e999999999" would otherwise allocate huge integers.
const (
	maxNumericLen = 64
	maxExponent   = 32
)

var errNotNumeric = errors.New("not numeric")

// toDecimal converts the numeric shapes that arrive from JSON decoding, Go
// callers, and previously normalized records into a decimal. Booleans, empty
// strings, and non-finite floats are rejected rather than defaulted.
func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case json.Number:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int8:
		return decimal.NewFromInt(int64(x)), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return decimal.NewFromInt(int64(x)), nil
	case uint16:
		return decimal.NewFromInt(int64(x)), nil
	case uint32:
		return decimal.NewFromInt(int64(x)), nil
	case uint64:
		return fromUint(x), nil
	}
	return decimal.Zero, errNotNumeric
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxNumericLen {
		return decimal.Zero, errNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if e := d.Exponent(); e < -maxExponent || e > maxExponent {
		return decimal.Zero, errNotNumeric
	}
	return d, nil
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errNotNumeric
	}
	return decimal.NewFromFloat(f), nil
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}
