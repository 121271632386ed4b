package procurement

// DocumentAnalysis is the document-level part of a Report.
type DocumentAnalysis struct {
	DocumentType string `json:"document_type"`
	Assessment
}

// Report is the complete procurement analysis of one document.
type Report struct {
	Document        DocumentAnalysis `json:"document_analysis"`
	Fields          Fields           `json:"extracted_fields"`
	Vendor          *VendorAnalysis  `json:"vendor_analysis"`
	Recommendations []string         `json:"recommendations"`
	Disclaimer      string           `json:"disclaimer"`
}

// Analyze extracts fields from text, assesses them and assembles the report.
// Recommendations consider both document and vendor flags.
func (a *Assessor) Analyze(text, documentType string) Report {
	if documentType == "" {
		documentType = "contract"
	}
	f := ExtractFields(text)
	ev := a.Evaluate(f, text)

	all := ev.Assessment.RedFlags
	if ev.Vendor != nil {
		all = append(append([]RedFlag(nil), all...), ev.Vendor.RedFlags...)
	}

	return Report{
		Document:        DocumentAnalysis{DocumentType: documentType, Assessment: ev.Assessment},
		Fields:          f,
		Vendor:          ev.Vendor,
		Recommendations: Recommendations(all, ev.Assessment.RiskScore),
		Disclaimer:      Disclaimer,
	}
}
