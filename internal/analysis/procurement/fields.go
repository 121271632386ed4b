// Package procurement scores procurement documents for corruption risk. Red
// flags are raised by fixed rules over fields pulled out of the document text,
// optionally extended by operator-defined CEL rules, and aggregated into an
// integer risk score with a low/medium/high level.
package procurement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields are the procurement facts extracted from a document.
type Fields struct {
	VendorName    string   `json:"vendor_name,omitempty"`
	ContractValue string   `json:"contract_value,omitempty"`
	Ministry      string   `json:"ministry,omitempty"`
	ContractType  string   `json:"contract_type,omitempty"`
	KeyTerms      []string `json:"key_terms"`

	// ValueRupees is ContractValue converted to rupees. Zero when the value is
	// missing or has no number in it.
	ValueRupees decimal.Decimal `json:"contract_value_rupees"`
}

// SuspiciousTerms are collected into Fields.KeyTerms when present in the text.
var SuspiciousTerms = []string{
	"urgent",
	"emergency",
	"single source",
	"direct award",
	"no bid",
	"sole vendor",
	"exceptional circumstances",
	"time critical",
	"exclusive",
	"limited tender",
}

var (
	vendorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)vendor:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)company:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)supplier:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)contractor:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)([a-z][a-z &.]*?(?:pvt\.?\s*ltd|private\s*limited|enterprises|solutions|systems|corporation|corp)\b)`),
	}
	valuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)contract\s*value:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)amount:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)value:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)rs\.?\s*([0-9][0-9, ]*(?:\.[0-9]+)?\s*(?:crores?|lakhs?|thousands?))`),
		regexp.MustCompile(`(?i)₹\s*([0-9][0-9, ]*(?:\.[0-9]+)?\s*(?:crores?|lakhs?|thousands?))`),
	}
	ministryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ministry\s*of\s*([^\n]+)`),
		regexp.MustCompile(`(?i)department\s*of\s*([^\n]+)`),
		regexp.MustCompile(`(?i)govt\s*of\s*([^\n]+)`),
		regexp.MustCompile(`(?i)government\s*of\s*([^\n]+)`),
	}
	contractTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)contract\s*type:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)type\s*of\s*contract:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)procurement\s*type:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)tender\s*type:[ \t]*([^\n]+)`),
	}

	amountPattern = regexp.MustCompile(`(?i)([0-9][0-9, ]*(?:\.[0-9]+)?)\s*(crores?|cr\b|lakhs?|lacs?|thousands?)?`)
)

var (
	crore    = decimal.New(1, 7)
	lakh     = decimal.New(1, 5)
	thousand = decimal.New(1, 3)
)

// ExtractFields pulls vendor, value, ministry, contract type and key terms out
// of document text. For each field the first matching pattern wins.
func ExtractFields(text string) Fields {
	f := Fields{
		VendorName:    firstMatch(vendorPatterns, text),
		ContractValue: firstMatch(valuePatterns, text),
		Ministry:      firstMatch(ministryPatterns, text),
		ContractType:  firstMatch(contractTypePatterns, text),
		KeyTerms:      KeyTerms(text),
	}
	f.ValueRupees = ParseRupees(f.ContractValue)
	return f
}

// KeyTerms returns the SuspiciousTerms found in text, in SuspiciousTerms order.
func KeyTerms(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, t := range SuspiciousTerms {
		if strings.Contains(lower, t) {
			out = append(out, t)
		}
	}
	return out
}

// ParseRupees converts a free-form amount such as "₹12.5 crores",
// "Rs. 3,50,000" or "45 lakh" into rupees. A number without a unit is taken as
// rupees. Strings without a number yield zero.
func ParseRupees(s string) decimal.Decimal {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	digits := strings.NewReplacer(",", "", " ", "").Replace(m[1])
	n, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "cr"):
		return n.Mul(crore)
	case strings.HasPrefix(unit, "la"):
		return n.Mul(lakh)
	case strings.HasPrefix(unit, "th"):
		return n.Mul(thousand)
	}
	return n
}

// Crores returns the whole number of crores in rupees, without bounds.
func Crores(rupees decimal.Decimal) string {
	return rupees.Div(crore).Floor().String()
}

// Facts returns the fields as CEL activation values.
func (f Fields) Facts(text string) map[string]any {
	value, _ := f.ValueRupees.Float64()
	terms := make([]string, len(f.KeyTerms))
	copy(terms, f.KeyTerms)
	return map[string]any{
		"doc": map[string]any{
			"vendor_name":           f.VendorName,
			"contract_value":        f.ContractValue,
			"contract_value_rupees": value,
			"ministry":              f.Ministry,
			"contract_type":         f.ContractType,
			"key_terms":             terms,
			"text":                  text,
		},
	}
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}
