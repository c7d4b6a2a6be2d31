package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/pkg/models"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Export renders w for people to read. The output is not meant to be
// imported again.
func Export(w models.Workflow, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return exportJSON(w)
	case FormatYAML:
		return exportYAML(w)
	case FormatCSV:
		return exportCSV(w)
	default:
		return "", errs.Validation(fmt.Sprintf("Unsupported export format: %s", format))
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatCSV:
		return "text/csv"
	}
	return "text/plain"
}

func exportJSON(w models.Workflow) (string, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return string(data), nil
}

func exportYAML(w models.Workflow) (string, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	put := func(key string, value *yaml.Node) {
		doc.Content = append(doc.Content, scalar(key), value)
	}
	put("id", scalar(w.ID))
	put("name", scalar(w.Name))
	put("description", scalar(w.Description))
	put("useCase", scalar(w.UseCase))
	put("status", scalar(string(w.Metadata.Status)))
	put("version", scalar(w.Metadata.Version))
	put("createdBy", scalar(w.Metadata.CreatedBy))
	put("lastModified", scalar(w.Metadata.LastModified.Format(time.RFC3339)))
	put("department", scalar(w.Metadata.Department))
	put("tags", sequence(w.Metadata.Tags))
	put("totalCost", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatCost(w.TotalCost)})
	put("complianceRequirements", sequence(w.ComplianceRequirements))
	put("approvalStatus", scalar(string(w.ApprovalWorkflow.Status)))

	tools := &yaml.Node{Kind: yaml.SequenceNode}
	for _, t := range w.Tools {
		tools.Content = append(tools.Content, &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				scalar("name"), scalar(t.Name),
				scalar("category"), scalar(t.Category),
				scalar("startingPrice"), scalar(t.Pricing.StartingPrice),
			},
		})
	}
	put("tools", tools)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.String(), nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func sequence(items []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, it := range items {
		n.Content = append(n.Content, scalar(it))
	}
	return n
}

func exportCSV(w models.Workflow) (string, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	rows := [][]string{
		{"Workflow", w.Name},
		{"Use Case", w.UseCase},
		{"Status", string(w.Metadata.Status)},
		{"Version", w.Metadata.Version},
		{"Total Cost", formatCost(w.TotalCost)},
		{"Tool Count", strconv.Itoa(len(w.Tools))},
		{},
		{"Tool", "Category", "Starting Price", "Pricing Model"},
	}
	for _, t := range w.Tools {
		rows = append(rows, []string{t.Name, t.Category, t.Pricing.StartingPrice, t.Pricing.Model})
	}
	if err := cw.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.String(), nil
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
