package domain

import (
	"sort"

	"github.com/tbourn/agritrade-gateway/internal/schemas"
)

// Resource describes one upstream collection the gateway fronts.
type Resource struct {
	// Name is the gateway-facing name and the root of its cache keys.
	Name string `json:"name"`
	// Path is the upstream collection path, with trailing slash for
	// collections.
	Path string `json:"path"`
	// Schema names the record schema used for create/update; empty for
	// read-only resources.
	Schema string `json:"schema,omitempty"`
	// Singleton resources have no list/detail split (e.g. the dashboard).
	Singleton bool `json:"singleton,omitempty"`
	// Dependents are derived resources whose cached views are invalidated
	// alongside this one on any mutation.
	Dependents []string `json:"dependents,omitempty"`
}

// Writable reports whether the resource accepts submissions.
func (r Resource) Writable() bool { return r.Schema != "" }

// InvalidationRoots returns the cache roots a mutation of r must invalidate:
// r itself followed by its dependents.
func (r Resource) InvalidationRoots() []string {
	return append([]string{r.Name}, r.Dependents...)
}

// Resource names.
const (
	Purchases    = "purchases"
	Sales        = "sales"
	CashReceipts = "cash_receipts"
	CashPayments = "cash_payments"
	Expenses     = "expenses"
	Contracts    = "contracts"
	Inventory    = "inventory"
	Dashboard    = "dashboard"
	Crops        = "crops"
	Contacts     = "contacts"
	Seasons      = "seasons"
)

var resources = map[string]Resource{
	Purchases:    {Name: Purchases, Path: "/purchases/", Schema: schemas.Purchase, Dependents: []string{Dashboard, Inventory}},
	Sales:        {Name: Sales, Path: "/sales/", Schema: schemas.Sale, Dependents: []string{Dashboard, Inventory}},
	CashReceipts: {Name: CashReceipts, Path: "/treasury/cash-receipts/", Schema: schemas.CashReceipt, Dependents: []string{Dashboard, Sales}},
	CashPayments: {Name: CashPayments, Path: "/treasury/cash-payments/", Schema: schemas.CashPayment, Dependents: []string{Dashboard, Purchases}},
	Expenses:     {Name: Expenses, Path: "/treasury/expenses/", Schema: schemas.Expense, Dependents: []string{Dashboard}},
	Contracts:    {Name: Contracts, Path: "/contracts/", Schema: schemas.Contract, Dependents: []string{Dashboard}},
	Inventory:    {Name: Inventory, Path: "/inventory/"},
	Dashboard:    {Name: Dashboard, Path: "/dashboard/summary", Singleton: true},
	Crops:        {Name: Crops, Path: "/crops/"},
	Contacts:     {Name: Contacts, Path: "/contacts/"},
	Seasons:      {Name: Seasons, Path: "/seasons/"},
}

// LookupResource returns the resource registered under name.
func LookupResource(name string) (Resource, bool) {
	r, ok := resources[name]
	return r, ok
}

// Resources returns every resource sorted by name.
func Resources() []Resource {
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
