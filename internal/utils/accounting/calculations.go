package accounting

import (
	"fmt"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ValidateLineAmounts enforces the structural rules for one imported line:
// amounts must be non-negative and a line may not carry both a debit and a
// credit. Violations reject the whole batch.
func ValidateLineAmounts(lineNumber int, debit, credit decimal.Decimal) error {
	if debit.IsNegative() || credit.IsNegative() {
		return fmt.Errorf("line %d: debit and credit amounts must be non-negative", lineNumber)
	}
	if debit.IsPositive() && credit.IsPositive() {
		return fmt.Errorf("line %d: a line may not carry both a debit and a credit", lineNumber)
	}
	return nil
}

// LineNet computes the debit-positive net amount for one line.
func LineNet(debit, credit decimal.Decimal) decimal.Decimal {
	return debit.Sub(credit)
}

// Totals sums the debit and credit columns across lines.
func Totals(lines []domain.TrialBalanceLine) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// IsBalanced reports whether the difference between total debits and total
// credits falls within the tolerance. The difference itself is recorded
// regardless, so an unbalanced import stays investigable.
func IsBalanced(totalDebits, totalCredits, tolerance decimal.Decimal) bool {
	return totalDebits.Sub(totalCredits).Abs().LessThanOrEqual(tolerance)
}

// IsMaterial reports whether a net amount meets the materiality threshold.
func IsMaterial(net, threshold decimal.Decimal) bool {
	return net.Abs().GreaterThanOrEqual(threshold)
}
