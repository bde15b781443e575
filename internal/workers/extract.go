package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type ExtractionSource string

const (
	SourceLLM      ExtractionSource = "llm"
	SourceFallback ExtractionSource = "fallback"
	SourceEmpty    ExtractionSource = "empty"
)

// Extraction is the structured field set pulled from one contract,
// tagged with how it was produced.
type Extraction struct {
	DocumentID      string           `json:"document_id"`
	Source          ExtractionSource `json:"source"`
	Parties         []Party          `json:"parties"`
	EffectiveDate   string           `json:"effective_date,omitempty"`
	Term            string           `json:"term,omitempty"`
	GoverningLaw    string           `json:"governing_law,omitempty"`
	PaymentTerms    string           `json:"payment_terms,omitempty"`
	Termination     string           `json:"termination,omitempty"`
	AutoRenewal     string           `json:"auto_renewal,omitempty"`
	Confidentiality string           `json:"confidentiality,omitempty"`
	Indemnity       string           `json:"indemnity,omitempty"`
	LiabilityCap    *LiabilityCap    `json:"liability_cap,omitempty"`
	Signatories     []Signatory      `json:"signatories"`
}

// Contract text sent to the model is capped so prompts stay inside
// the context window of small local models.
const llmTextCap = 16000

const extractionPromptTemplate = `You are a contract analysis expert. Extract the following fields from the contract text and return ONLY a valid JSON object with no additional text or explanation.

Required JSON structure:
{
    "parties": [{"name": "party name", "role": "party role"}],
    "effective_date": "date or null",
    "term": "duration or null",
    "governing_law": "jurisdiction or null",
    "payment_terms": "payment terms or null",
    "termination": "termination provisions or null",
    "auto_renewal": "renewal provisions or null",
    "confidentiality": "confidentiality provisions or null",
    "indemnity": "indemnity provisions or null",
    "liability_cap": {"amount": "number or unlimited", "currency": "USD, EUR, etc. or null"},
    "signatories": [{"name": "signatory name", "title": "signatory title"}]
}

Contract text:
%s

Return ONLY the JSON object:`

// extractWithLLM asks the model for the structured fields and parses
// the JSON object out of its reply. Returns false when no model is
// wired, the call fails, or the reply holds no usable object.
func extractWithLLM(ctx context.Context, llm LLMCaller, text string) (Extraction, bool) {
	if llm == nil {
		return Extraction{}, false
	}
	if len(text) > llmTextCap {
		text = text[:llmTextCap]
	}

	reply, err := llm.Call(ctx, fmt.Sprintf(extractionPromptTemplate, text), "")
	if err != nil {
		return Extraction{}, false
	}

	// Models wrap the object in prose more often than not; slice out
	// the outermost braces before parsing.
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return Extraction{}, false
	}
	raw := []byte(reply[start : end+1])

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe) == 0 {
		return Extraction{}, false
	}
	var ext Extraction
	if err := json.Unmarshal(raw, &ext); err != nil {
		return Extraction{}, false
	}
	return ext, true
}

// fallbackExtraction runs the regex battery over the full text.
// Fields the battery has no extractor for stay empty.
func fallbackExtraction(text string) Extraction {
	return Extraction{
		Parties:       findParties(text),
		EffectiveDate: findEffectiveDate(text),
		Term:          findTerm(text),
		GoverningLaw:  findGoverningLaw(text),
		PaymentTerms:  findPaymentTerms(text),
		LiabilityCap:  findLiabilityCap(text),
		Signatories:   findSignatories(text),
	}
}

func (e Extraction) isEmpty() bool {
	return len(e.Parties) == 0 &&
		e.EffectiveDate == "" &&
		e.Term == "" &&
		e.GoverningLaw == "" &&
		e.PaymentTerms == "" &&
		e.Termination == "" &&
		e.AutoRenewal == "" &&
		e.Confidentiality == "" &&
		e.Indemnity == "" &&
		e.LiabilityCap == nil &&
		len(e.Signatories) == 0
}

// ExtractFields runs the two-stage extraction for a stored document.
// A previously cached result is returned as-is; fresh results are
// cached before returning.
func (w *ContractWorkerState) ExtractFields(ctx context.Context, documentID string) (*Extraction, error) {
	if cached, err := w.Store.LoadExtraction(documentID); err == nil && cached != nil {
		return cached, nil
	}

	doc, err := w.Store.LoadDocument(documentID)
	if err != nil {
		return nil, err
	}
	text := JoinPages(doc.Pages)

	ext, ok := extractWithLLM(ctx, w.LLM, text)
	if ok {
		ext.Source = SourceLLM
	} else {
		ext = fallbackExtraction(text)
		if ext.isEmpty() {
			ext.Source = SourceEmpty
		} else {
			ext.Source = SourceFallback
		}
	}
	ext.DocumentID = documentID
	if ext.Parties == nil {
		ext.Parties = []Party{}
	}
	if ext.Signatories == nil {
		ext.Signatories = []Signatory{}
	}

	if err := w.Store.SaveExtraction(documentID, &ext); err != nil {
		fmt.Printf("Warning: failed to cache extraction for %s: %v\n", documentID, err)
	}
	return &ext, nil
}
