package workers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindParties_RecitalSentence(t *testing.T) {
	text := "This agreement is between Acme Corporation and Globex Inc."
	parties := findParties(text)
	require.Len(t, parties, 2)
	assert.Equal(t, Party{Name: "Acme Corporation", Role: "Party"}, parties[0])
	assert.Equal(t, Party{Name: "Globex Inc", Role: "Party"}, parties[1])
}

func TestFindParties_Designation(t *testing.T) {
	text := `Acme Corporation ("Vendor"), a Delaware corporation.`
	parties := findParties(text)
	require.Len(t, parties, 1)
	assert.Equal(t, "Acme Corporation", parties[0].Name)
	assert.Equal(t, "Vendor", parties[0].Role)
}

func TestFindParties_GenericDesignation(t *testing.T) {
	text := `Wayne Enterprises ("Supplier"), agrees to deliver the goods.`
	parties := findParties(text)
	require.Len(t, parties, 1)
	assert.Equal(t, "Wayne Enterprises", parties[0].Name)
	assert.Equal(t, "Supplier", parties[0].Role)
}

func TestFindParties_DeduplicatesByName(t *testing.T) {
	text := "This agreement is between Acme Corp and Beta LLC. " +
		"This agreement is between Acme Corp and Gamma Ltd."
	parties := findParties(text)
	require.Len(t, parties, 3)

	names := make([]string, len(parties))
	for i, p := range parties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Acme Corp", "Beta LLC", "Gamma Ltd"}, names)
}

func TestFindParties_SkipsShortNames(t *testing.T) {
	text := `Co ("Vendor"), a Delaware corporation.`
	assert.Empty(t, findParties(text))
}

func TestFindParties_NoMatches(t *testing.T) {
	assert.Empty(t, findParties("Nothing contractual in here."))
	assert.Empty(t, findParties(""))
}

func TestFindDates_Formats(t *testing.T) {
	text := "Signed 01/15/2024. Effective January 15, 2024. " +
		"Delivered 15 March 2024. Executed the 1st day of April, 2024."
	dates := findDates(text)
	assert.Contains(t, dates, "01/15/2024")
	assert.Contains(t, dates, "January 15, 2024")
	assert.Contains(t, dates, "15 March 2024")
	assert.Contains(t, dates, "the 1st day of April, 2024")
}

func TestFindEffectiveDate_Anchored(t *testing.T) {
	text := "This Agreement is effective as of January 15, 2024 and supersedes all prior drafts."
	assert.Equal(t, "January 15, 2024", findEffectiveDate(text))
}

func TestFindEffectiveDate_NearbyFallback(t *testing.T) {
	// No anchored phrasing; the first date near "effective" wins.
	text := "The effective start of the engagement is set to 03/01/2024 per the signing schedule."
	assert.Equal(t, "03/01/2024", findEffectiveDate(text))
}

func TestFindEffectiveDate_None(t *testing.T) {
	assert.Equal(t, "", findEffectiveDate("No dates in this text."))
}

func TestFindTerm_Pluralizes(t *testing.T) {
	text := "This agreement shall be in effect for a period of 2 years."
	assert.Equal(t, "2 years", findTerm(text))
}

func TestFindTerm_Singular(t *testing.T) {
	text := "The term is 1 year from the effective date."
	assert.Equal(t, "1 year", findTerm(text))
}

func TestFindTerm_None(t *testing.T) {
	assert.Equal(t, "", findTerm("Obligations continue indefinitely."))
}

func TestFindGoverningLaw_KeepsLeadingArticle(t *testing.T) {
	text := "This Agreement is governed by the laws of the State of Delaware."
	assert.Equal(t, "the State of Delaware", findGoverningLaw(text))
}

func TestFindGoverningLaw_StripsSuffixes(t *testing.T) {
	text := "The parties submit to the exclusive jurisdiction of Delaware courts."
	assert.Equal(t, "Delaware", findGoverningLaw(text))
}

func TestFindGoverningLaw_None(t *testing.T) {
	assert.Equal(t, "", findGoverningLaw("No governing law clause."))
}

func TestFindPaymentTerms_NetDays(t *testing.T) {
	text := "Payment shall be due within 30 days of receipt of invoice."
	assert.Equal(t, "Net 30 days", findPaymentTerms(text))
}

func TestFindPaymentTerms_NetShorthand(t *testing.T) {
	text := "All fees are payable net 45 days from the invoice date."
	assert.Equal(t, "Net 45 days", findPaymentTerms(text))
}

func TestFindPaymentTerms_QuotesClauseWhenNoDayCount(t *testing.T) {
	text := "The fee for the services is one thousand dollars payable upon completion of the work."
	got := findPaymentTerms(text)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Contains(t, strings.ToLower(got), "fee")
}

func TestFindPaymentTerms_NoMoneyLanguage(t *testing.T) {
	assert.Equal(t, "", findPaymentTerms("Nothing about money here."))
}

func TestFindLiabilityCap_AmountWithCurrency(t *testing.T) {
	text := "The total liability shall not exceed $1,250,000 USD."
	cap := findLiabilityCap(text)
	require.NotNil(t, cap)
	assert.Equal(t, 1250000.0, cap.Amount)
	require.NotNil(t, cap.Currency)
	assert.Equal(t, "USD", *cap.Currency)
}

func TestFindLiabilityCap_Euro(t *testing.T) {
	text := "Aggregate liability limited to €500,000 under this agreement."
	cap := findLiabilityCap(text)
	require.NotNil(t, cap)
	assert.Equal(t, 500000.0, cap.Amount)
	require.NotNil(t, cap.Currency)
	assert.Equal(t, "EUR", *cap.Currency)
}

func TestFindLiabilityCap_CurrencyWord(t *testing.T) {
	text := "Liability will not exceed 10,000.50 dollars in the aggregate."
	cap := findLiabilityCap(text)
	require.NotNil(t, cap)
	assert.Equal(t, 10000.50, cap.Amount)
	require.NotNil(t, cap.Currency)
	assert.Equal(t, "USD", *cap.Currency)
}

func TestFindLiabilityCap_Unlimited(t *testing.T) {
	text := "The Vendor accepts unlimited liability for damages arising from gross negligence."
	cap := findLiabilityCap(text)
	require.NotNil(t, cap)
	assert.Equal(t, "unlimited", cap.Amount)
	assert.Nil(t, cap.Currency)
}

func TestFindLiabilityCap_None(t *testing.T) {
	assert.Nil(t, findLiabilityCap("This agreement contains standard terms."))
}

func TestFindSignatories_NamesAndTitles(t *testing.T) {
	text := "Name: Jane Smith\nTitle: Chief Executive Officer\nBy: John Doe\nTitle: General Counsel\n"
	sigs := findSignatories(text)
	require.Len(t, sigs, 2)
	assert.Equal(t, Signatory{Name: "Jane Smith", Title: "Chief Executive Officer"}, sigs[0])
	assert.Equal(t, Signatory{Name: "John Doe", Title: "General Counsel"}, sigs[1])
}

func TestFindSignatories_NameWithoutTitle(t *testing.T) {
	text := "By: John Doe\n"
	sigs := findSignatories(text)
	require.Len(t, sigs, 1)
	assert.Equal(t, "John Doe", sigs[0].Name)
	assert.Equal(t, "", sigs[0].Title)
}

// Names and titles are collected as two lists and paired by position,
// so a block listing both names before both titles pairs each name
// with the title at the same index, not the title nearest to it in
// the source. Documented here so the behavior is not changed by
// accident.
func TestFindSignatories_PositionalPairing(t *testing.T) {
	text := "Name: Jane Smith\nName: John Doe\nTitle: Chief Executive Officer\nTitle: General Counsel\n"
	sigs := findSignatories(text)
	require.Len(t, sigs, 2)
	assert.Equal(t, Signatory{Name: "Jane Smith", Title: "Chief Executive Officer"}, sigs[0])
	assert.Equal(t, Signatory{Name: "John Doe", Title: "General Counsel"}, sigs[1])
}

func TestFindSignatories_SkipsEmptyCaptures(t *testing.T) {
	assert.Empty(t, findSignatories("Name: \n"))
}
