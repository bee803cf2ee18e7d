// Package schemas declares the validation schema of every financial record
// kind the gateway accepts, composed from the shared primitives in
// internal/validate.
//
// Schemas are built once at package init and are immutable afterwards. Field
// names match the upstream REST contract exactly (snake_case); any other key
// is rejected as an unknown field.
package schemas

import (
	"sort"

	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// Schema names. These are also the keys used by the resource table in
// internal/domain.
const (
	Purchase    = "purchase"
	Sale        = "sale"
	CashReceipt = "cash_receipt"
	CashPayment = "cash_payment"
	Expense     = "expense"
	Contract    = "contract"
)

// Text ceilings, in runes.
const (
	maxDescription = 500
	maxNotes       = 500
	maxCategory    = 200
	maxReference   = 100
)

var registry = map[string]*validate.Schema{}

func register(s *validate.Schema) *validate.Schema {
	if _, dup := registry[s.Name()]; dup {
		panic("schemas: duplicate schema " + s.Name())
	}
	registry[s.Name()] = s
	return s
}

// Lookup returns the schema registered under name.
func Lookup(name string) (*validate.Schema, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names returns every registered schema name in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Catalog describes every registered schema, sorted by name.
func Catalog() []validate.SchemaInfo {
	names := Names()
	out := make([]validate.SchemaInfo, 0, len(names))
	for _, n := range names {
		out = append(out, registry[n].Describe())
	}
	return out
}
