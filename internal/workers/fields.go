package workers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Party is one named party to the contract. Role is a designation
// like "Vendor" or "Client" when a pattern captures one.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Signatory is a person who signed the contract, paired with their
// title when the signature block provides one.
type Signatory struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// LiabilityCap is the contract's liability ceiling. Amount is either
// a number or the string "unlimited", in which case Currency is nil.
type LiabilityCap struct {
	Amount   any     `json:"amount"`
	Currency *string `json:"currency"`
}

var partyPatterns = []struct {
	pattern  string
	twoNames bool // both captures are party names rather than name plus role
}{
	{`This\s+agreement\s+is\s+between\s+(.*?)\s+and\s+(.*?)[\.,]`, true},
	{`This\s+agreement\s+is\s+made\s+by\s+and\s+between\s+(.*?)\s+and\s+(.*?)[\.,]`, true},
	{`(.*?)\s+\("?(Buyer|Client|Customer|Licensee|Vendor|Seller|Provider|Company|Contractor)"?[\),]`, false},
	{`(.*?)\s+\("?(?:the\s+)?([A-Z][a-z]+)"?[\),]`, false},
}

// findParties pulls the contracting parties out of recital-style
// sentences and parenthesised designations. Deduplicated by name,
// first occurrence wins.
func findParties(text string) []Party {
	var parties []Party
	seen := make(map[string]bool)

	add := func(name, role string) {
		name = strings.TrimSpace(name)
		role = strings.TrimSpace(role)
		if name == "" || role == "" || seen[name] {
			return
		}
		seen[name] = true
		parties = append(parties, Party{Name: name, Role: role})
	}

	for _, pp := range partyPatterns {
		re := regexp.MustCompile(`(?is)` + pp.pattern)
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if pp.twoNames {
				add(m[1], "Party")
				add(m[2], "Party")
				continue
			}
			if len(strings.TrimSpace(m[1])) > 3 {
				add(m[1], m[len(m)-1])
			}
		}
	}
	return parties
}

var datePatterns = []string{
	`\b(\d{1,2})[\/\-\.](\d{1,2})[\/\-\.](\d{2,4})\b`,
	`\b([A-Z][a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?,\s+(\d{4})\b`,
	`\b(\d{1,2})(?:st|nd|rd|th)?\s+([A-Z][a-z]+),?\s+(\d{4})\b`,
	`\bthe\s+(\d{1,2})(?:st|nd|rd|th)?\s+day\s+of\s+([A-Z][a-z]+),?\s+(\d{4})\b`,
}

// findDates returns every date-looking string in the text, in pattern
// order. Numeric, written, and "day of" forms are all recognized.
func findDates(text string) []string {
	var dates []string
	for _, pattern := range datePatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		dates = append(dates, re.FindAllString(text, -1)...)
	}
	return dates
}

const dateCapture = `([A-Z][a-z]+\s+\d{1,2}(?:st|nd|rd|th)?,\s+\d{4}|\d{1,2}[\/\-\.]\d{1,2}[\/\-\.]\d{2,4})`

var effectiveDatePatterns = []string{
	`effective\s+(?:as\s+of\s+|date[:\s]+)` + dateCapture,
	`agreement\s+date[:\s]+` + dateCapture,
	`dated\s+(?:as\s+of\s+)?` + dateCapture,
	`commenc(?:es|ing)\s+on\s+` + dateCapture,
}

func findEffectiveDate(text string) string {
	for _, pattern := range effectiveDatePatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	// No anchored form; take the first date within 200 chars of the
	// word "effective".
	idx := strings.Index(strings.ToLower(text), "effective")
	if idx < 0 {
		return ""
	}
	window := text[idx:min(len(text), idx+200)]
	if dates := findDates(window); len(dates) > 0 {
		return dates[0]
	}
	return ""
}

const termCapture = `(\d+)\s+(year|month|day)s?`

var termPatterns = []string{
	`(?:for\s+a\s+|for\s+an\s+|the\s+|initial\s+)?term\s+(?:of|is|shall\s+be)\s+` + termCapture,
	`shall\s+(?:remain\s+in|be\s+in|continue\s+in)\s+(?:full\s+force\s+and\s+effect\s+|effect\s+|force\s+)?for\s+(?:a\s+period\s+of\s+)?` + termCapture,
	`continue\s+for\s+a\s+period\s+of\s+` + termCapture,
	`agreement\s+(?:shall|will)\s+(?:be\s+valid|remain\s+in\s+force)\s+for\s+` + termCapture,
}

// findTerm returns the contract duration as "N unit", pluralized.
func findTerm(text string) string {
	for _, pattern := range termPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		unit := strings.ToLower(m[2])
		if n > 1 {
			unit += "s"
		}
		return fmt.Sprintf("%d %s", n, unit)
	}
	return ""
}

// The capture deliberately swallows a leading article, so "laws of the
// State of Delaware" extracts as "the State of Delaware".
const lawCapture = `([A-Za-z\s]+)(?:,|\.|\s|$)`

var governingLawPatterns = []string{
	`govern(?:ed|ing)\s+(?:by\s+)?(?:the\s+)?laws\s+of\s+` + lawCapture,
	`jurisdiction\s+of\s+` + lawCapture,
	`(?:exclusive\s+)?venue\s+(?:shall\s+be|will\s+be|in)\s+` + lawCapture,
}

// findGoverningLaw extracts the governing jurisdiction, trimming
// trailing filler like "courts" or "only" from the capture.
func findGoverningLaw(text string) string {
	for _, pattern := range governingLawPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		law := strings.TrimSpace(m[1])
		for _, suffix := range []string{" courts", " court", " state", " only"} {
			if strings.HasSuffix(strings.ToLower(law), suffix) {
				law = law[:len(law)-len(suffix)]
			}
		}
		return strings.TrimSpace(law)
	}
	return ""
}

var paymentKeywords = []string{"payment", "fee", "compensation", "price", "cost", "invoice"}

var paymentTermPatterns = []string{
	`(?:payment|invoice)\s+(?:shall\s+be|is|are)\s+due\s+(?:and\s+payable\s+)?within\s+(\d+)\s+(?:calendar\s+|business\s+)?days`,
	`(?:payment|invoice)\s+terms\s+(?:are|shall\s+be)\s+(\d+)\s+(?:calendar\s+|business\s+)?days`,
	`(?:payment|invoice)\s+(?:shall\s+be|is|are)\s+due\s+(?:and\s+payable\s+)?(\d+)\s+(?:calendar\s+|business\s+)?days`,
	`net\s+(\d+)(?:\s+days)?`,
}

// findPaymentTerms normalizes payment language to "Net N days". When
// no day count is recognizable it quotes the first sentence that
// mentions money, truncated.
func findPaymentTerms(text string) string {
	lower := strings.ToLower(text)
	var sections []string
	for _, kw := range paymentKeywords {
		pos := strings.Index(lower, kw)
		if pos < 0 {
			continue
		}
		sections = append(sections, text[max(0, pos-2500):min(len(text), pos+2500)])
	}
	if len(sections) == 0 {
		return ""
	}
	paymentText := strings.Join(sections, " ")

	for _, pattern := range paymentTermPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		if m := re.FindStringSubmatch(paymentText); m != nil {
			return fmt.Sprintf("Net %s days", m[1])
		}
	}

	head := paymentText[:min(len(paymentText), 1000)]
	for _, sentence := range splitSentences(head) {
		sl := strings.ToLower(sentence)
		for _, kw := range paymentKeywords {
			if strings.Contains(sl, kw) {
				return truncate(strings.TrimSpace(sentence), 250) + "..."
			}
		}
	}
	return ""
}

// splitSentences is a rough split on terminal punctuation. Good
// enough for quoting a clause, not for NLP.
func splitSentences(text string) []string {
	re := regexp.MustCompile(`[^.!?]+[.!?]?`)
	return re.FindAllString(text, -1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Signature blocks are matched case-sensitively since the labels are
// conventionally capitalized.
var signatoryPatterns = []struct {
	pattern string
	dest    string // "name", "title", or "" when the label carries no value
}{
	// Signed/Signature labels mark the block but name nobody.
	{`(?:Signed|Signature):\s*(.*?)(?:\n|$)`, ""},
	{`(?:Name|Print\s+Name):\s*(.*?)(?:\n|$)`, "name"},
	{`Title:\s*(.*?)(?:\n|$)`, "title"},
	{`By:\s*(.*?)(?:\n|$)`, "name"},
	{`[A-Z][a-zA-Z\s]+:\s*\n\s*_+\s*\n\s*(?:Name|By)?:\s*(.*?)(?:\n|$)`, "name"},
	{`[A-Z][a-zA-Z\s]+:\s*\n\s*_+\s*\n\s*Title:\s*(.*?)(?:\n|$)`, "title"},
}

// findSignatories collects names and titles from signature blocks as
// two parallel lists, then pairs them positionally. A name with no
// matching title keeps an empty title.
func findSignatories(text string) []Signatory {
	var names, titles []string
	for _, sp := range signatoryPatterns {
		re := regexp.MustCompile(sp.pattern)
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value := strings.TrimSpace(m[1])
			if value == "" {
				continue
			}
			switch sp.dest {
			case "name":
				names = append(names, value)
			case "title":
				titles = append(titles, value)
			}
		}
	}

	sigs := make([]Signatory, 0, len(names))
	for i, name := range names {
		s := Signatory{Name: name}
		if i < len(titles) {
			s.Title = titles[i]
		}
		sigs = append(sigs, s)
	}
	return sigs
}

const capAmount = `(\d+(?:,\d+)*(?:\.\d+)?)`
const capCurrency = `(?:USD|US\$|\$|€|EUR|GBP|£)`
const capCurrencyWord = `(?:\s+(?:US\s+)?dollars|(?:US\s+)?dollars|\s+euros|\s+pounds)?`
const capVerb = `liability\s+(?:shall\s+|will\s+)?(?:be\s+|not\s+exceed\s+|limited\s+to\s+|exceed\s+|in\s+excess\s+of\s+)(?:a\s+total\s+of\s+)?`

var liabilityCapAmountPatterns = []string{
	capVerb + capCurrency + `?\s*` + capAmount + `\s*` + capCurrency + `?` + capCurrencyWord,
	capVerb + capAmount + `\s*(?:USD|US\$|\$|€|EUR|GBP|£|(?:US\s+)?dollars|euros|pounds)`,
	`limitation\s+of\s+liability\s*[:\.\s]+(?:.*?)` + capCurrency + `?\s*` + capAmount + `\s*` + capCurrency + `?` + capCurrencyWord,
	`maximum\s+(?:aggregate\s+)?liability\s+(?:.*?)` + capCurrency + `?\s*` + capAmount + `\s*` + capCurrency + `?` + capCurrencyWord,
}

// Checked in order against the lowercased match; first token found
// decides the currency.
var currencyTokens = []struct{ token, code string }{
	{"$", "USD"},
	{"usd", "USD"},
	{"us$", "USD"},
	{"dollars", "USD"},
	{"us dollars", "USD"},
	{"€", "EUR"},
	{"eur", "EUR"},
	{"euros", "EUR"},
	{"£", "GBP"},
	{"gbp", "GBP"},
	{"pounds", "GBP"},
}

// findLiabilityCap extracts the liability ceiling as a numeric amount
// with a currency code, or "unlimited" when the contract says so.
func findLiabilityCap(text string) *LiabilityCap {
	for _, pattern := range liabilityCapAmountPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		matched := strings.ToLower(m[0])
		code := "USD"
		for _, ct := range currencyTokens {
			if strings.Contains(matched, ct.token) {
				code = ct.code
				break
			}
		}
		return &LiabilityCap{Amount: amount, Currency: &code}
	}
	for _, pattern := range unlimitedLiabilityPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		if re.MatchString(text) {
			return &LiabilityCap{Amount: "unlimited"}
		}
	}
	return nil
}
