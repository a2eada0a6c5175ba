package assessment

import "strings"

// Category is a top-level taxonomy node with its subcategories.
type Category struct {
	Name          string
	Subcategories []string
}

// Taxonomy is the fixed classification scheme.
var Taxonomy = []Category{
	{"Communication & Collaboration", []string{"Team Chat/Messaging", "Video Conferencing", "Email Service", "Project Management"}},
	{"Data & Storage", []string{"File Sharing/Storage", "Database Service", "Backup/Archive", "Content Management"}},
	{"Development & DevOps", []string{"Code Repository", "CI/CD Pipeline", "Container/Orchestration", "API Management", "Development Tool"}},
	{"AI & Machine Learning", []string{"GenAI Tool/Assistant", "ML Platform", "AI API Service"}},
	{"Business Applications", []string{"CRM System", "ERP System", "HR/Payroll", "Marketing Automation", "Analytics/BI"}},
	{"Security & Infrastructure", []string{"Endpoint Agent/EDR", "Identity/SSO", "Network Security", "Cloud Infrastructure", "Monitoring/Observability"}},
	{"Productivity", []string{"Document Editor", "Calendar/Scheduling", "Note-taking", "Form/Survey"}},
}

// CanonicalCategory maps name case-insensitively onto a taxonomy category.
func CanonicalCategory(name string) (string, bool) {
	for _, c := range Taxonomy {
		if strings.EqualFold(strings.TrimSpace(name), c.Name) {
			return c.Name, true
		}
	}
	return name, false
}

// CanonicalSubcategory maps name case-insensitively onto a subcategory and
// returns the category that owns it.
func CanonicalSubcategory(name string) (category, sub string, ok bool) {
	for _, c := range Taxonomy {
		for _, s := range c.Subcategories {
			if strings.EqualFold(strings.TrimSpace(name), s) {
				return c.Name, s, true
			}
		}
	}
	return "", name, false
}

// RiskProfile lists typical risks for a subcategory.
type RiskProfile struct {
	TypicalRisks    []string `json:"typical_risks"`
	DataSensitivity string   `json:"data_sensitivity"`
	CommonControls  []string `json:"common_controls"`
}

var riskProfiles = map[string]RiskProfile{
	"File Sharing/Storage": {
		TypicalRisks:    []string{"Data exfiltration", "Unauthorized sharing", "Compliance violations (GDPR, HIPAA)", "Shadow IT proliferation"},
		DataSensitivity: "high",
		CommonControls:  []string{"DLP", "Access controls", "Encryption at rest/transit"},
	},
	"GenAI Tool/Assistant": {
		TypicalRisks:    []string{"Data leakage to training", "Prompt injection attacks", "Intellectual property exposure", "Hallucination/accuracy issues"},
		DataSensitivity: "high",
		CommonControls:  []string{"Data residency", "Terms review", "Input filtering"},
	},
	"Endpoint Agent/EDR": {
		TypicalRisks:    []string{"Privileged access abuse", "Performance impact", "Single point of failure", "Supply chain compromise"},
		DataSensitivity: "high",
		CommonControls:  []string{"Vendor security audit", "Least privilege", "Monitoring"},
	},
	"Team Chat/Messaging": {
		TypicalRisks:    []string{"Data retention issues", "Insider threats", "Third-party app risks", "Compliance gaps"},
		DataSensitivity: "medium-high",
		CommonControls:  []string{"Message retention policies", "App approval process", "E2E encryption"},
	},
	"CRM System": {
		TypicalRisks:    []string{"Customer data breach", "Integration vulnerabilities", "Access control failures", "GDPR/privacy violations"},
		DataSensitivity: "high",
		CommonControls:  []string{"Role-based access", "Audit logging", "Data encryption"},
	},
}

// RiskProfileFor returns the profile for subcategory, or a generic one.
func RiskProfileFor(subcategory string) RiskProfile {
	if p, ok := riskProfiles[subcategory]; ok {
		return p
	}
	return RiskProfile{
		TypicalRisks:    []string{"General software risks apply"},
		DataSensitivity: "medium",
		CommonControls:  []string{"Standard security controls"},
	}
}
