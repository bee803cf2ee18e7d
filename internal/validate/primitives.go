package validate

// Shared primitives. Record schemas compose these rather than assembling rule
// chains by hand, so the same field kind behaves identically everywhere.

// Identifier is a positive integer id.
func Identifier() []Rule {
	return []Rule{IntegerType(), PositiveInt()}
}

// Money is a strictly positive amount with at most 2 decimal places.
func Money() []Rule {
	return []Rule{DecimalType(), Positive(), BelowSafeInteger(), Places(2)}
}

// NonNegativeMoney is Money where zero is legal (e.g. amount paid).
func NonNegativeMoney() []Rule {
	return []Rule{DecimalType(), NonNegative(), BelowSafeInteger(), Places(2)}
}

// Quantity is a positive weight in kilograms, to the gram.
func Quantity() []Rule {
	return []Rule{DecimalType(), Positive(), BelowSafeInteger(), Places(3)}
}

// Text is free text with a rune ceiling.
func Text(max int) []Rule {
	return []Rule{StringType(), MaxLen(max)}
}

// Label is non-empty text with a rune ceiling.
func Label(max int) []Rule {
	return []Rule{StringType(), NotBlank(), MaxLen(max)}
}

// Date is a calendar date in YYYY-MM-DD form.
func Date() []Rule {
	return []Rule{DateType()}
}

// OneOf is a string drawn from a fixed set.
func OneOf(values ...string) []Rule {
	return []Rule{StringType(), Enum(values...)}
}
