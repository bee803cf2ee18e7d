// Package validate implements the declarative validation layer used for every
// financial record the gateway forwards upstream.
//
// A Schema is an ordered list of Fields, each holding a chain of Rules, plus
// cross-field Refinements that run once every field has passed. Validation is
// a pure function of (schema, raw input): it never mutates the input, never
// panics on user data, and either returns a fully normalized Record or the
// complete set of per-field messages.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// RuleKind classifies a rule for reporting and catalog purposes.
type RuleKind string

const (
	KindRequired  RuleKind = "required"
	KindType      RuleKind = "type"
	KindRange     RuleKind = "range"
	KindPrecision RuleKind = "precision"
	KindLength    RuleKind = "length"
	KindPattern   RuleKind = "pattern"
)

// MaxSafeInteger is the largest integer a double-precision client can hold
// exactly (2^53 - 1). Amounts at or above it are rejected.
const MaxSafeInteger int64 = 1<<53 - 1

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var maxSafe = decimal.NewFromInt(MaxSafeInteger)

// Rule is a single named constraint. Apply receives the value produced by the
// previous rule in the chain and returns the (possibly coerced) value, or an
// error whose text is the user-facing message.
//
// A failing KindType rule stops the chain for that field, since later rules
// expect the coerced type. Failures of any other kind are collected and the
// chain continues with the last good value.
type Rule struct {
	Kind  RuleKind
	Name  string
	Apply func(v any) (any, error)
}

// DecimalType coerces numbers and numeric-looking strings to decimal.Decimal.
func DecimalType() Rule {
	return Rule{Kind: KindType, Name: "number", Apply: func(v any) (any, error) {
		d, err := toDecimal(v)
		if err != nil {
			return nil, errors.New("expected a number")
		}
		return d, nil
	}}
}

// IntegerType coerces to int64. Fractional values and values outside the
// safe-integer range are type errors.
func IntegerType() Rule {
	return Rule{Kind: KindType, Name: "integer", Apply: func(v any) (any, error) {
		d, err := toDecimal(v)
		if err != nil || !d.IsInteger() {
			return nil, errors.New("expected an integer")
		}
		if d.Abs().GreaterThan(maxSafe) {
			return nil, fmt.Errorf("must be at most %d", MaxSafeInteger)
		}
		return d.IntPart(), nil
	}}
}

// StringType accepts only strings and normalizes them to trimmed NFC text.
func StringType() Rule {
	return Rule{Kind: KindType, Name: "string", Apply: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("expected a string")
		}
		return norm.NFC.String(strings.TrimSpace(s)), nil
	}}
}

// DateType accepts YYYY-MM-DD strings (or time.Time) and normalizes to the
// canonical string form.
func DateType() Rule {
	return Rule{Kind: KindType, Name: "date", Apply: func(v any) (any, error) {
		switch x := v.(type) {
		case time.Time:
			return x.Format(DateLayout), nil
		case string:
			t, err := time.Parse(DateLayout, strings.TrimSpace(x))
			if err != nil {
				return nil, errors.New("expected a date (YYYY-MM-DD)")
			}
			return t.Format(DateLayout), nil
		}
		return nil, errors.New("expected a date (YYYY-MM-DD)")
	}}
}

// Positive requires a decimal strictly greater than zero.
func Positive() Rule {
	return Rule{Kind: KindRange, Name: "> 0", Apply: func(v any) (any, error) {
		d := v.(decimal.Decimal)
		if !d.IsPositive() {
			return nil, errors.New("must be greater than 0")
		}
		return d, nil
	}}
}

// NonNegative requires a decimal greater than or equal to zero.
func NonNegative() Rule {
	return Rule{Kind: KindRange, Name: ">= 0", Apply: func(v any) (any, error) {
		d := v.(decimal.Decimal)
		if d.IsNegative() {
			return nil, errors.New("must be greater than or equal to 0")
		}
		return d, nil
	}}
}

// BelowSafeInteger rejects decimals at or beyond MaxSafeInteger.
func BelowSafeInteger() Rule {
	return Rule{Kind: KindRange, Name: fmt.Sprintf("< %d", MaxSafeInteger), Apply: func(v any) (any, error) {
		d := v.(decimal.Decimal)
		if !d.LessThan(maxSafe) {
			return nil, fmt.Errorf("must be less than %d", MaxSafeInteger)
		}
		return d, nil
	}}
}

// Places rejects decimals with a nonzero digit beyond the given number of
// fractional places. Accepted values are rescaled to exactly that many places,
// never rounded.
func Places(places int32) Rule {
	return Rule{Kind: KindPrecision, Name: fmt.Sprintf("<= %d decimal places", places), Apply: func(v any) (any, error) {
		d := v.(decimal.Decimal)
		r := d.Round(places)
		if !r.Equal(d) {
			return nil, fmt.Errorf("must have at most %d decimal places", places)
		}
		return r, nil
	}}
}

// PositiveInt requires an int64 greater than zero.
func PositiveInt() Rule {
	return Rule{Kind: KindRange, Name: "> 0", Apply: func(v any) (any, error) {
		n := v.(int64)
		if n <= 0 {
			return nil, errors.New("must be a positive integer")
		}
		return n, nil
	}}
}

// MaxLen caps the rune length of a string.
func MaxLen(n int) Rule {
	return Rule{Kind: KindLength, Name: fmt.Sprintf("<= %d chars", n), Apply: func(v any) (any, error) {
		s := v.(string)
		if utf8.RuneCountInString(s) > n {
			return nil, fmt.Errorf("must be at most %d characters", n)
		}
		return s, nil
	}}
}

// NotBlank rejects empty strings (after trimming by StringType).
func NotBlank() Rule {
	return Rule{Kind: KindLength, Name: "not blank", Apply: func(v any) (any, error) {
		s := v.(string)
		if s == "" {
			return nil, errors.New("must not be empty")
		}
		return s, nil
	}}
}

// Enum restricts a string to a fixed set of values.
func Enum(values ...string) Rule {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	msg := "must be one of: " + strings.Join(values, ", ")
	return Rule{Kind: KindPattern, Name: "one of " + strings.Join(values, "|"), Apply: func(v any) (any, error) {
		s := v.(string)
		if _, ok := allowed[s]; !ok {
			return nil, errors.New(msg)
		}
		return s, nil
	}}
}

// Pattern requires a string to match re. desc names the expected shape in the
// error message.
func Pattern(re *regexp.Regexp, desc string) Rule {
	return Rule{Kind: KindPattern, Name: re.String(), Apply: func(v any) (any, error) {
		s := v.(string)
		if !re.MatchString(s) {
			return nil, errors.New("must match " + desc)
		}
		return s, nil
	}}
}
