package domain_test

import (
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccounts() []domain.Account {
	return []domain.Account{
		{AccountID: "a1", Code: "1000", Name: "Assets", AccountType: domain.Asset, Level: 1, IsLeaf: false, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a2", Code: "1100", Name: "Cash and Cash Equivalents", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: false, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a3", Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1100", Level: 3, IsLeaf: true, NormalBalance: domain.NormalDebit, ConceptTag: "us-gaap:Cash", IsActive: true},
		{AccountID: "a4", Code: "1120", Name: "Petty Cash", AccountType: domain.Asset, ParentCode: "1100", Level: 3, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a5", Code: "1200", Name: "Accounts Receivable", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a6", Code: "2000", Name: "Liabilities", AccountType: domain.Liability, Level: 1, IsLeaf: false, NormalBalance: domain.NormalCredit, IsActive: true},
		{AccountID: "a7", Code: "2100", Name: "Accounts Payable", AccountType: domain.Liability, ParentCode: "2000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalCredit, IsActive: true},
		{AccountID: "a8", Code: "1300", Name: "Legacy Inventory", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: false},
	}
}

func TestTaxonomy_Resolve(t *testing.T) {
	tax := domain.NewTaxonomy(testAccounts())

	acct, ok := tax.Resolve("1110")
	require.True(t, ok)
	assert.Equal(t, "Operating Cash", acct.Name)
	assert.Equal(t, 3, acct.Level)

	_, ok = tax.Resolve("9999")
	assert.False(t, ok)
}

func TestTaxonomy_Children_CodeOrdered(t *testing.T) {
	tax := domain.NewTaxonomy(testAccounts())

	kids := tax.Children("1000")
	require.Len(t, kids, 3)
	assert.Equal(t, "1100", kids[0].Code)
	assert.Equal(t, "1200", kids[1].Code)
	assert.Equal(t, "1300", kids[2].Code)

	assert.Empty(t, tax.Children("1110"))
	assert.Empty(t, tax.Children("9999"))
}

func TestTaxonomy_LeafDescendants(t *testing.T) {
	tax := domain.NewTaxonomy(testAccounts())

	leaves := tax.LeafDescendants("1000")
	require.Len(t, leaves, 4)
	assert.Equal(t, "1110", leaves[0].Code)
	assert.Equal(t, "1120", leaves[1].Code)
	assert.Equal(t, "1200", leaves[2].Code)
	assert.Equal(t, "1300", leaves[3].Code)

	// A leaf is its own only leaf descendant.
	self := tax.LeafDescendants("2100")
	require.Len(t, self, 1)
	assert.Equal(t, "2100", self[0].Code)

	assert.Nil(t, tax.LeafDescendants("9999"))
}

func TestTaxonomy_IsMappable(t *testing.T) {
	tax := domain.NewTaxonomy(testAccounts())

	assert.True(t, tax.IsMappable("1110"))
	assert.False(t, tax.IsMappable("1100"), "non-leaf accounts are not mapping targets")
	assert.False(t, tax.IsMappable("1300"), "inactive accounts are not mapping targets")
	assert.False(t, tax.IsMappable("9999"))
}

func TestTaxonomy_ResolveConcept(t *testing.T) {
	tax := domain.NewTaxonomy(testAccounts())

	tagged := tax.ResolveConcept("us-gaap:Cash")
	require.Len(t, tagged, 1)
	assert.Equal(t, "1110", tagged[0].Code)

	assert.Empty(t, tax.ResolveConcept("us-gaap:Unknown"))
}
