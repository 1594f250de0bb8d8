package domain

import "github.com/shopspring/decimal"

// Amounts are stored as NUMERIC(15,2).
const (
	AmountScale       = 2
	maxIntegralDigits = 13
)

var MaxAmount = decimal.New(1, maxIntegralDigits).Sub(decimal.New(1, -AmountScale))

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewError(ErrInvalidOperation, "amount must be greater than zero")
	}
	// Magnitude is checked on digits and exponent first: comparing a value
	// like 1e30000000 rescales it into a bignum of that many digits.
	integralDigits := int64(amount.NumDigits()) + int64(amount.Exponent())
	if integralDigits > maxIntegralDigits {
		return NewError(ErrInvalidOperation, "amount must not exceed %s", MaxAmount.StringFixed(AmountScale))
	}
	if integralDigits <= -AmountScale {
		return NewError(ErrInvalidOperation, "amount must have at most %d decimal places", AmountScale)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return NewError(ErrInvalidOperation, "amount must have at most %d decimal places", AmountScale)
	}
	if amount.GreaterThan(MaxAmount) {
		return NewError(ErrInvalidOperation, "amount must not exceed %s", MaxAmount.StringFixed(AmountScale))
	}
	return nil
}
