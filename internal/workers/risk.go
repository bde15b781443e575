package workers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// RiskFinding is one flagged clause in an audited contract.
type RiskFinding struct {
	ClauseType  string     `json:"clause_type"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	Evidence    []Citation `json:"evidence"`
}

// AuditReport is the result of running every risk check against a
// stored document.
type AuditReport struct {
	DocumentID string        `json:"document_id"`
	Findings   []RiskFinding `json:"findings"`
}

var autoRenewalTriggers = []string{
	`auto(?:matically)?[\s-]+renew(?:s|ed|ing|al)?`,
	`renew(?:s|ed|ing|al)?[\s-]+auto(?:matically)?`,
}

var noticePeriodPatterns = []string{
	`(\d+)[\s-]+(day|month|year)s?[\s-]+(?:prior|advance)[\s-]+(?:written[\s-]+)?notice`,
	`notice[\s-]+(?:of|in)[\s-]+(\d+)[\s-]+(day|month|year)s?`,
	`written[\s-]+notice[\s-]+(?:of|in)[\s-]+(\d+)[\s-]+(day|month|year)s?`,
}

var unlimitedLiabilityPatterns = []string{
	`unlimited\s+liability`,
	`without\s+limitation\s+of\s+liability`,
	`no\s+(?:cap|limitation|limit)\s+(?:on|of|to)\s+liability`,
}

var liabilityCapPatterns = []string{
	`liability\s+(?:shall\s+|will\s+)?(?:be\s+|not\s+exceed\s+|limited\s+to\s+)`,
	`maximum\s+(?:aggregate\s+)?liability`,
	`limitation\s+of\s+liability`,
}

var indemnityTriggers = []string{
	`indemnify\s+(?:and\s+(?:hold\s+harmless|defend))?`,
	`indemnification`,
	`hold\s+harmless`,
}

var indemnityBreadthIndicators = []string{
	`any\s+and\s+all`,
	`including\s+but\s+not\s+limited\s+to`,
	`whatsoever`,
	`however\s+arising`,
	`regardless\s+of(?:\s+the)?\s+cause`,
	`whether\s+or\s+not\s+\w+\s+was\s+negligent`,
}

var terminationTriggers = []string{
	`terminat(?:e|ion)`,
	`cancel(?:lation)?`,
}

var terminationProhibitions = []string{
	`(?:may\s+not|cannot|shall\s+not)\s+terminat(?:e|ion)`,
	`(?:no|without)\s+right\s+to\s+terminat(?:e|ion)`,
	`for\s+cause\s+only`,
	`solely\s+for\s+(?:material\s+)?breach`,
}

const minimumTermPattern = `(?:minimum|initial)\s+term\s+of\s+(\d+)\s+(year|month)`

// RunRiskChecks audits the flattened document text with every
// detector in a fixed order and resolves each evidence citation back
// to its source page.
func RunRiskChecks(documentID string, pages []PageText) []RiskFinding {
	text := JoinPages(pages)
	checks := []func(string) *RiskFinding{
		checkAutoRenewal,
		checkLiability,
		checkIndemnity,
		checkTermination,
	}

	findings := make([]RiskFinding, 0, len(checks))
	for _, check := range checks {
		finding := check(text)
		if finding == nil {
			continue
		}
		for i, cit := range finding.Evidence {
			cit.DocumentID = documentID
			finding.Evidence[i] = LocatePage(cit, pages)
		}
		findings = append(findings, *finding)
	}
	return findings
}

// checkAutoRenewal flags automatic renewal clauses, graded by how much
// notice the customer gets before the renewal locks in.
func checkAutoRenewal(text string) *RiskFinding {
	var trigger []int
	for _, pattern := range autoRenewalTriggers {
		re := regexp.MustCompile(`(?i)` + pattern)
		if loc := re.FindStringIndex(text); loc != nil {
			trigger = loc
			break
		}
	}
	if trigger == nil {
		return nil
	}

	// Look for a notice period near the trigger.
	contextStart := max(0, trigger[0]-500)
	contextEnd := min(len(text), trigger[1]+500)
	window := text[contextStart:contextEnd]

	noticeDays := -1
	for _, pattern := range noticePeriodPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		m := re.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "day":
			noticeDays = value
		case "month":
			noticeDays = value * 30
		case "year":
			noticeDays = value * 365
		}
		break
	}

	finding := &RiskFinding{
		ClauseType: "auto_renewal",
		Evidence: []Citation{{
			StartChar: trigger[0],
			EndChar:   trigger[1],
			Text:      text[trigger[0]:trigger[1]],
		}},
	}
	switch {
	case noticeDays < 0:
		finding.Severity = SeverityMedium
		finding.Description = "Auto-renewal clause with no clear notice period specified"
	case noticeDays < 30:
		finding.Severity = SeverityHigh
		finding.Description = fmt.Sprintf("Auto-renewal clause with short notice period (%d days)", noticeDays)
	case noticeDays < 60:
		finding.Severity = SeverityMedium
		finding.Description = fmt.Sprintf("Auto-renewal clause with moderate notice period (%d days)", noticeDays)
	default:
		// Sixty or more days of notice is workable.
		return nil
	}
	return finding
}

// checkLiability flags explicitly unlimited liability, and the absence
// of any liability cap language at all.
func checkLiability(text string) *RiskFinding {
	for _, pattern := range unlimitedLiabilityPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		if loc := re.FindStringIndex(text); loc != nil {
			return &RiskFinding{
				ClauseType:  "liability",
				Severity:    SeverityHigh,
				Description: "Unlimited liability clause",
				Evidence: []Citation{{
					StartChar: loc[0],
					EndChar:   loc[1],
					Text:      text[loc[0]:loc[1]],
				}},
			}
		}
	}
	for _, pattern := range liabilityCapPatterns {
		re := regexp.MustCompile(`(?i)` + pattern)
		if re.MatchString(text) {
			return nil
		}
	}
	return &RiskFinding{
		ClauseType:  "liability",
		Severity:    SeverityMedium,
		Description: "No explicit liability cap found",
		Evidence:    []Citation{},
	}
}

// checkIndemnity grades the first indemnity clause by how many
// breadth indicators appear within 500 chars of it. Two or more is
// high risk, one is medium, none clears the clause.
func checkIndemnity(text string) *RiskFinding {
	var trigger []int
	for _, pattern := range indemnityTriggers {
		re := regexp.MustCompile(`(?i)` + pattern)
		if loc := re.FindStringIndex(text); loc != nil {
			trigger = loc
			break
		}
	}
	if trigger == nil {
		return nil
	}

	contextStart := max(0, trigger[0]-500)
	contextEnd := min(len(text), trigger[1]+500)
	window := text[contextStart:contextEnd]

	var matched []string
	for _, pattern := range indemnityBreadthIndicators {
		re := regexp.MustCompile(`(?i)` + pattern)
		if re.MatchString(window) {
			matched = append(matched, pattern)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	severity := SeverityMedium
	if len(matched) > 1 {
		severity = SeverityHigh
	}
	return &RiskFinding{
		ClauseType:  "indemnity",
		Severity:    severity,
		Description: "Broad indemnity clause using terms like: " + strings.Join(matched, ", "),
		Evidence: []Citation{{
			StartChar: trigger[0],
			EndChar:   trigger[1],
			Text:      text[trigger[0]:trigger[1]],
		}},
	}
}

// checkTermination flags clauses that lock the customer in, either by
// prohibiting termination outright or through a long minimum term.
func checkTermination(text string) *RiskFinding {
	// Each trigger gets its own window; a trigger whose window carries
	// no qualifying restriction falls through to the next trigger.
	for _, pattern := range terminationTriggers {
		re := regexp.MustCompile(`(?i)` + pattern)
		trigger := re.FindStringIndex(text)
		if trigger == nil {
			continue
		}

		contextStart := max(0, trigger[0]-300)
		contextEnd := min(len(text), trigger[1]+300)
		window := text[contextStart:contextEnd]

		if finding := terminationInWindow(window, contextStart); finding != nil {
			return finding
		}
	}
	return nil
}

func terminationInWindow(window string, contextStart int) *RiskFinding {
	for _, pattern := range terminationProhibitions {
		re := regexp.MustCompile(`(?i)` + pattern)
		loc := re.FindStringIndex(window)
		if loc == nil {
			continue
		}
		return &RiskFinding{
			ClauseType:  "termination",
			Severity:    SeverityHigh,
			Description: "Restrictive termination clause limiting termination rights",
			Evidence: []Citation{{
				StartChar: contextStart + loc[0],
				EndChar:   contextStart + loc[1],
				Text:      window[loc[0]:loc[1]],
			}},
		}
	}

	re := regexp.MustCompile(`(?i)` + minimumTermPattern)
	m := re.FindStringSubmatchIndex(window)
	if m == nil {
		return nil
	}
	value, err := strconv.Atoi(window[m[2]:m[3]])
	if err != nil {
		return nil
	}
	unit := strings.ToLower(window[m[4]:m[5]])
	months := value
	if unit == "year" {
		months = value * 12
	}
	// Anything under two years with no prohibition language is fine.
	if months < 24 {
		return nil
	}
	return &RiskFinding{
		ClauseType:  "termination",
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Long minimum term (%d %ss) with limited termination rights", value, unit),
		Evidence: []Citation{{
			StartChar: contextStart + m[0],
			EndChar:   contextStart + m[1],
			Text:      window[m[0]:m[1]],
		}},
	}
}
