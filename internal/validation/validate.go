// Package validation computes the structural and business validity of a
// workflow document. It is pure: no storage, no mutation, no state.
package validation

import (
	"fmt"
	"strings"

	"workflow-governance/backend/pkg/models"
)

// DefaultHighCostThreshold is the total cost above which a warning is raised.
const DefaultHighCostThreshold = 1000.0

const (
	maxManageableTools = 10
	minSuggestedTools  = 3
)

// Messages surfaced by Validate.
const (
	ErrNameRequired    = "Workflow name is required"
	ErrUseCaseRequired = "Use case description is required"
	ErrToolsRequired   = "At least one tool must be selected"
)

var regulatedRequirements = map[string]bool{
	"hipaa":   true,
	"gdpr":    true,
	"sox":     true,
	"pci-dss": true,
	"ferpa":   true,
}

var publicToolCategories = map[string]bool{
	"social-media": true,
	"marketing":    true,
	"public":       true,
}

// Context tunes a validation run.
type Context struct {
	EnforceCompliance bool
	// HighCostThreshold defaults to DefaultHighCostThreshold when zero.
	HighCostThreshold float64
}

// Result is the outcome of Validate. Errors block publishing;
// warnings and suggestions are advisory.
type Result struct {
	IsValid     bool     `json:"isValid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// Validate checks w under vctx. The same input always yields the same
// result.
func Validate(w models.Workflow, vctx Context) Result {
	threshold := vctx.HighCostThreshold
	if threshold <= 0 {
		threshold = DefaultHighCostThreshold
	}

	res := Result{Errors: []string{}, Warnings: []string{}, Suggestions: []string{}}

	if strings.TrimSpace(w.Name) == "" {
		res.Errors = append(res.Errors, ErrNameRequired)
	}
	if strings.TrimSpace(w.UseCase) == "" {
		res.Errors = append(res.Errors, ErrUseCaseRequired)
	}
	if len(w.Tools) == 0 {
		res.Errors = append(res.Errors, ErrToolsRequired)
	}

	if len(w.Tools) > maxManageableTools {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Workflow has %d tools; more than %d may be difficult to manage", len(w.Tools), maxManageableTools))
	}
	if w.TotalCost > threshold {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Total cost %.2f exceeds the high-cost threshold of %.2f", w.TotalCost, threshold))
	}
	if w.Collaboration.IsShared && strings.TrimSpace(w.Metadata.Department) == "" {
		res.Warnings = append(res.Warnings, "Shared workflows should specify a department")
	}
	res.Warnings = append(res.Warnings, complianceWarnings(w)...)

	if len(w.Tools) < minSuggestedTools {
		res.Suggestions = append(res.Suggestions, "Consider adding more tools for a complete workflow")
	}
	if len(w.Metadata.Tags) == 0 {
		res.Suggestions = append(res.Suggestions, "Add tags to make the workflow easier to find")
	}
	if vctx.EnforceCompliance {
		if strings.TrimSpace(w.ROIAnalysis) == "" {
			res.Suggestions = append(res.Suggestions, "Add an ROI analysis to support approval")
		}
		if strings.TrimSpace(w.RiskAssessment) == "" {
			res.Suggestions = append(res.Suggestions, "Add a risk assessment to support approval")
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// complianceWarnings flags regulated requirements paired with sharing or
// tools that expose data beyond the owning team.
func complianceWarnings(w models.Workflow) []string {
	var regulated []string
	for _, req := range w.ComplianceRequirements {
		if regulatedRequirements[strings.ToLower(strings.TrimSpace(req))] {
			regulated = append(regulated, req)
		}
	}
	if len(regulated) == 0 {
		return nil
	}

	var out []string
	label := strings.Join(regulated, ", ")
	if w.Collaboration.IsShared && w.Collaboration.Permissions != models.PermissionView {
		out = append(out, fmt.Sprintf(
			"%s data is shared with %s access; restrict sharing to view", label, w.Collaboration.Permissions))
	}
	for _, tool := range w.Tools {
		if publicToolCategories[strings.ToLower(tool.Category)] {
			out = append(out, fmt.Sprintf(
				"%s data should not flow into public-facing tool %q", label, tool.Name))
		}
	}
	return out
}
