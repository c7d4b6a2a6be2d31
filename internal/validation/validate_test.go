package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"workflow-governance/backend/pkg/models"
)

func tools(n int) []models.Tool {
	out := make([]models.Tool, n)
	for i := range out {
		out[i] = models.Tool{ID: string(rune('a' + i)), Name: "tool", Category: "productivity"}
	}
	return out
}

func validWorkflow() models.Workflow {
	return models.Workflow{WorkflowContent: models.WorkflowContent{
		Name:     "Contract review",
		UseCase:  "Review supplier contracts",
		Tools:    tools(3),
		Metadata: models.Metadata{Tags: []string{"legal"}},
	}}
}

func TestValidate_NoToolsIsInvalid(t *testing.T) {
	w := validWorkflow()
	w.Tools = nil

	res := Validate(w, Context{})

	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"At least one tool must be selected"}, res.Errors)
	assert.Contains(t, res.Suggestions, "Consider adding more tools for a complete workflow")
}

func TestValidate_RequiredFields(t *testing.T) {
	res := Validate(models.Workflow{}, Context{})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{ErrNameRequired, ErrUseCaseRequired, ErrToolsRequired}, res.Errors)

	w := validWorkflow()
	w.Name = "   "
	assert.Equal(t, []string{ErrNameRequired}, Validate(w, Context{}).Errors)
}

func TestValidate_CleanWorkflow(t *testing.T) {
	res := Validate(validWorkflow(), Context{})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Suggestions)
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Workflow)
		want   string
	}{
		{"too many tools", func(w *models.Workflow) { w.Tools = tools(11) }, "11 tools"},
		{"high cost", func(w *models.Workflow) { w.TotalCost = 1000.01 }, "exceeds the high-cost threshold"},
		{"shared without department", func(w *models.Workflow) {
			w.Collaboration.IsShared = true
			w.Collaboration.Permissions = models.PermissionView
		}, "should specify a department"},
		{"regulated data shared for edit", func(w *models.Workflow) {
			w.ComplianceRequirements = []string{"HIPAA"}
			w.Collaboration.IsShared = true
			w.Collaboration.Permissions = models.PermissionEdit
			w.Metadata.Department = "Clinical"
		}, "HIPAA data is shared with edit access"},
		{"regulated data in public tool", func(w *models.Workflow) {
			w.ComplianceRequirements = []string{"gdpr"}
			w.Tools[0] = models.Tool{Name: "Buffer", Category: "social-media"}
		}, `should not flow into public-facing tool "Buffer"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWorkflow()
			tt.mutate(&w)
			res := Validate(w, Context{})
			assert.True(t, res.IsValid)
			if assert.Len(t, res.Warnings, 1) {
				assert.Contains(t, res.Warnings[0], tt.want)
			}
		})
	}
}

func TestValidate_CostAtThresholdDoesNotWarn(t *testing.T) {
	w := validWorkflow()
	w.TotalCost = 1000
	assert.Empty(t, Validate(w, Context{}).Warnings)

	w.TotalCost = 300
	assert.Len(t, Validate(w, Context{HighCostThreshold: 250}).Warnings, 1)
}

func TestValidate_UnregulatedRequirementIgnored(t *testing.T) {
	w := validWorkflow()
	w.ComplianceRequirements = []string{"ISO-9001"}
	w.Tools[0].Category = "marketing"
	assert.Empty(t, Validate(w, Context{}).Warnings)
}

func TestValidate_Suggestions(t *testing.T) {
	w := validWorkflow()
	w.Tools = tools(1)
	w.Metadata.Tags = nil

	res := Validate(w, Context{})
	assert.Len(t, res.Suggestions, 2)

	res = Validate(w, Context{EnforceCompliance: true})
	assert.Len(t, res.Suggestions, 4)

	w.ROIAnalysis = "saves 10h/week"
	w.RiskAssessment = "low"
	res = Validate(w, Context{EnforceCompliance: true})
	assert.Len(t, res.Suggestions, 2)
}

func TestValidate_DeterministicAndPure(t *testing.T) {
	w := validWorkflow()
	w.Tools = tools(12)
	w.ComplianceRequirements = []string{"SOX"}
	before := w.Clone()

	first := Validate(w, Context{EnforceCompliance: true})
	second := Validate(w, Context{EnforceCompliance: true})

	assert.Equal(t, first, second)
	assert.Equal(t, before, w)
}
