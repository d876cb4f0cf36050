package accounting

import (
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateLineAmounts(t *testing.T) {
	tests := []struct {
		name    string
		debit   string
		credit  string
		wantErr bool
	}{
		{name: "debit only", debit: "100.00", credit: "0", wantErr: false},
		{name: "credit only", debit: "0", credit: "250.50", wantErr: false},
		{name: "zero balance line", debit: "0", credit: "0", wantErr: false},
		{name: "negative debit", debit: "-1.00", credit: "0", wantErr: true},
		{name: "negative credit", debit: "0", credit: "-0.01", wantErr: true},
		{name: "both sides populated", debit: "10.00", credit: "5.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLineAmounts(7, decimal.RequireFromString(tt.debit), decimal.RequireFromString(tt.credit))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "line 7")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLineNet(t *testing.T) {
	assert.True(t, decimal.RequireFromString("100.00").Equal(LineNet(decimal.RequireFromString("100.00"), decimal.Zero)))
	assert.True(t, decimal.RequireFromString("-250.50").Equal(LineNet(decimal.Zero, decimal.RequireFromString("250.50"))))
}

func TestTotals(t *testing.T) {
	lines := []domain.TrialBalanceLine{
		{Debit: decimal.RequireFromString("100.00"), Credit: decimal.Zero},
		{Debit: decimal.RequireFromString("900.02"), Credit: decimal.Zero},
		{Debit: decimal.Zero, Credit: decimal.RequireFromString("1000.00")},
	}
	debits, credits := Totals(lines)
	assert.True(t, decimal.RequireFromString("1000.02").Equal(debits))
	assert.True(t, decimal.RequireFromString("1000.00").Equal(credits))
}

func TestIsBalanced(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")

	// Equal totals are balanced.
	assert.True(t, IsBalanced(
		decimal.RequireFromString("1000.00"),
		decimal.RequireFromString("1000.00"),
		tolerance,
	))

	// A 0.02 difference exceeds a 0.01 tolerance.
	assert.False(t, IsBalanced(
		decimal.RequireFromString("1000.02"),
		decimal.RequireFromString("1000.00"),
		tolerance,
	))

	// A difference exactly at the tolerance is balanced.
	assert.True(t, IsBalanced(
		decimal.RequireFromString("1000.01"),
		decimal.RequireFromString("1000.00"),
		tolerance,
	))

	// The check is symmetric.
	assert.False(t, IsBalanced(
		decimal.RequireFromString("1000.00"),
		decimal.RequireFromString("1000.02"),
		tolerance,
	))
}

func TestIsMaterial(t *testing.T) {
	threshold := decimal.RequireFromString("10000")

	assert.True(t, IsMaterial(decimal.RequireFromString("10000"), threshold))
	assert.True(t, IsMaterial(decimal.RequireFromString("-15000.50"), threshold))
	assert.False(t, IsMaterial(decimal.RequireFromString("9999.99"), threshold))
}
