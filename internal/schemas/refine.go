package schemas

import (
	"errors"
	"fmt"

	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// notExceeding builds the "paid must not exceed total" refinement shared by
// purchases and sales. When the total field is absent the total is derived as
// quantity_kg * unit_price.
func notExceeding(paidField, totalField string) validate.Refinement {
	return validate.Refinement{
		Name:  paidField + " <= " + totalField,
		Field: paidField,
		Check: func(rec validate.Record) error {
			paid, ok := rec.Decimal(paidField)
			if !ok {
				return nil
			}
			if total, ok := rec.Decimal(totalField); ok {
				if paid.GreaterThan(total) {
					return fmt.Errorf("must not exceed %s", totalField)
				}
				return nil
			}
			qty, okQ := rec.Decimal("quantity_kg")
			price, okP := rec.Decimal("unit_price")
			if okQ && okP && paid.GreaterThan(qty.Mul(price)) {
				return errors.New("must not exceed quantity_kg * unit_price")
			}
			return nil
		},
	}
}

// notBefore requires later >= earlier when both dates are present. Dates are
// normalized to YYYY-MM-DD so lexical order is calendar order.
func notBefore(later, earlier string) validate.Refinement {
	return validate.Refinement{
		Name:  later + " >= " + earlier,
		Field: later,
		Check: func(rec validate.Record) error {
			l, okL := rec.String(later)
			e, okE := rec.String(earlier)
			if okL && okE && l < e {
				return fmt.Errorf("must not be before %s", earlier)
			}
			return nil
		},
	}
}
