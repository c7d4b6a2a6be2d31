package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"workflow-governance/backend/pkg/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$29/month", 29},
		{"$1,200.50", 1200.50},
		{"49.99 USD", 49.99},
		{"Free", 0},
		{"", 0},
		{"1.2.3", 1.2},
		{"Starting at $9.99/mo.", 9.99},
		{"$10-$20/month", 10},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.in))
		})
	}
}

func priced(prices ...string) []models.Tool {
	tools := make([]models.Tool, 0, len(prices))
	for i, p := range prices {
		tools = append(tools, models.Tool{ID: string(rune('a' + i)), Name: p, Pricing: models.Pricing{StartingPrice: p}})
	}
	return tools
}

func TestTotalCost(t *testing.T) {
	assert.Equal(t, 0.0, TotalCost(nil))
	assert.Equal(t, 33.0, TotalCost(priced("$10", "$20")))
	assert.Equal(t, 55.0, TotalCost(priced("$10", "$10", "$10", "$10", "$10")))
	// More than five tools carries the larger overhead.
	assert.Equal(t, 69.0, TotalCost(priced("$10", "$10", "$10", "$10", "$10", "$10")))
	assert.Equal(t, 32.99, TotalCost(priced("$29.99")))
}
