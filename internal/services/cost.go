package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"workflow-governance/backend/pkg/models"
)

// Enterprise overhead applied on top of list prices.
const (
	overheadSmall     = 1.10
	overheadLarge     = 1.15
	largeToolsetAbove = 5
)

var priceNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParsePrice extracts the first number from a currency string such as
// "$1,200.50/month". For a range like "$10-$20" that is the lower bound.
// Anything without a number is zero.
func ParsePrice(s string) float64 {
	m := priceNumber.FindString(strings.ReplaceAll(s, ",", ""))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// TotalCost sums the starting prices of tools plus overhead, rounded to
// cents.
func TotalCost(tools []models.Tool) float64 {
	var sum float64
	for _, t := range tools {
		sum += ParsePrice(t.Pricing.StartingPrice)
	}
	factor := overheadSmall
	if len(tools) > largeToolsetAbove {
		factor = overheadLarge
	}
	return math.Round(sum*factor*100) / 100
}
