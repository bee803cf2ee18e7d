package validate

import (
	"encoding/json"
	"reflect"

	"github.com/shopspring/decimal"
)

// Record is a normalized, validated record ready for transmission. Values are
// int64 (identifiers), decimal.Decimal (money and quantities) or string (text,
// dates, enums).
type Record map[string]any

// Int returns an identifier field.
func (r Record) Int(name string) (int64, bool) {
	v, ok := r[name].(int64)
	return v, ok
}

// Decimal returns a money or quantity field.
func (r Record) Decimal(name string) (decimal.Decimal, bool) {
	v, ok := r[name].(decimal.Decimal)
	return v, ok
}

// String returns a text, date, or enum field.
func (r Record) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

// Clone returns a shallow copy; values are immutable so this is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal compares two records, treating decimals by value.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for k, a := range r {
		b, ok := o[k]
		if !ok {
			return false
		}
		da, aDec := a.(decimal.Decimal)
		db, bDec := b.(decimal.Decimal)
		if aDec || bDec {
			if !aDec || !bDec || !da.Equal(db) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// MarshalJSON emits decimals as JSON numbers rather than quoted strings.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if d, ok := v.(decimal.Decimal); ok {
			out[k] = json.Number(d.String())
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}
