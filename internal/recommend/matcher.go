// Package recommend maps a free-text use case to a bundle from the
// template catalog.
package recommend

import (
	"strings"

	"workflow-governance/backend/pkg/models"
)

// Category is one row of the keyword table.
type Category struct {
	Name     string
	Keywords []string
	// Bundle is the name of the catalog entry preferred for the category.
	Bundle string
}

// Categories is the keyword table. Declaration order decides ties: the
// first matching category with a bundle in the catalog wins, whatever
// the number of keywords that matched elsewhere.
var Categories = []Category{
	{Name: "healthcare", Keywords: []string{"health", "medical", "patient", "clinical", "hipaa", "hospital"}, Bundle: "Healthcare Practice Suite"},
	{Name: "legal", Keywords: []string{"legal", "law", "attorney", "contract", "litigation", "compliance"}, Bundle: "Legal Practice Bundle"},
	{Name: "finance", Keywords: []string{"finance", "financial", "accounting", "invoice", "budget", "bookkeeping"}, Bundle: "Finance Operations Kit"},
	{Name: "code", Keywords: []string{"code", "coding", "programming", "developer", "software", "debug"}, Bundle: "Developer Productivity Stack"},
	{Name: "marketing", Keywords: []string{"marketing", "campaign", "seo", "social media", "brand", "advertising"}, Bundle: "Marketing Automation Suite"},
	{Name: "sales", Keywords: []string{"sales", "crm", "prospect", "deal", "quota"}, Bundle: "Sales Acceleration Bundle"},
	{Name: "support", Keywords: []string{"customer support", "customer service", "helpdesk", "ticket"}, Bundle: "Customer Support Hub"},
	{Name: "hr", Keywords: []string{"recruiting", "hiring", "onboarding", "employee", "payroll"}, Bundle: "People Operations Toolkit"},
	{Name: "education", Keywords: []string{"education", "teaching", "course", "student", "curriculum"}, Bundle: "Education Delivery Pack"},
	{Name: "document", Keywords: []string{"document", "contract", "pdf", "paperwork", "report"}, Bundle: "Document Processing Bundle"},
}

// Result is the primary recommendation plus up to two alternates.
type Result struct {
	Primary    *models.Bundle  `json:"primary"`
	Alternates []models.Bundle `json:"alternates"`
	// Category is the matched category, empty for a fallback match.
	Category string `json:"category,omitempty"`
}

const maxAlternates = 2

// Match recommends a bundle for text. The catalog is read only.
func Match(text string, catalog []models.Bundle) Result {
	return MatchWith(Categories, text, catalog)
}

// MatchWith is Match over an explicit category table.
func MatchWith(categories []Category, text string, catalog []models.Bundle) Result {
	res := Result{Alternates: []models.Bundle{}}
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return res
	}

	byName := make(map[string]int, len(catalog))
	for i, b := range catalog {
		if _, dup := byName[b.Name]; !dup {
			byName[b.Name] = i
		}
	}

	primary := -1
	for _, c := range matchingCategories(categories, lower) {
		if idx, ok := byName[c.Bundle]; ok {
			primary = idx
			res.Category = c.Name
			break
		}
	}
	if primary < 0 {
		primary = fallback(lower, catalog)
	}
	if primary < 0 {
		return res
	}

	p := catalog[primary]
	res.Primary = &p
	res.Alternates = alternates(lower, catalog, primary)
	return res
}

// matchingCategories returns, in declaration order, every category with
// a keyword occurring in text.
func matchingCategories(categories []Category, text string) []Category {
	var out []Category
	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// fallback finds the first entry whose name or description contains the
// text, or is contained in it.
func fallback(text string, catalog []models.Bundle) int {
	for i, b := range catalog {
		for _, field := range []string{b.Name, b.Description} {
			f := strings.ToLower(strings.TrimSpace(field))
			if f == "" {
				continue
			}
			if strings.Contains(f, text) || strings.Contains(text, f) {
				return i
			}
		}
	}
	return -1
}

// alternates scans the catalog for entries sharing a word longer than
// three letters with the text.
func alternates(text string, catalog []models.Bundle, primary int) []models.Bundle {
	var words []string
	for _, w := range strings.Fields(text) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}

	out := []models.Bundle{}
	for i, b := range catalog {
		if len(out) == maxAlternates {
			break
		}
		if i == primary {
			continue
		}
		haystack := strings.ToLower(b.Name + " " + b.Description)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}
