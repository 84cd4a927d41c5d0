package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"account-ledger/internal/errors"
)

// MoneyScale is the number of fractional digits the NUMERIC(20, 4) columns
// keep. Anything finer would be rounded by the database and drift from the
// journal.
const MoneyScale = 4

// CheckScale rejects values that cannot be stored without rounding.
func CheckScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return errors.NewValidationError(fmt.Sprintf("%s must have at most %d decimal places", field, MoneyScale)).
			WithDetails(d.String())
	}
	return nil
}
