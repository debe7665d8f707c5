package domain

import "math"

// DefaultTreeSequestrationKg is the assumed annual CO2e uptake of one mature
// tree, a conservative figure used for the offset estimate.
const DefaultTreeSequestrationKg = 21.0

// TreesToOffset estimates how many trees would absorb the given CO2e over one
// year, rounded up to whole trees. Non-positive totals or sequestration rates
// need no trees.
func TreesToOffset(totalCO2Kg, perTreeKgPerYear float64) int {
	if totalCO2Kg <= 0 || perTreeKgPerYear <= 0 {
		return 0
	}
	return int(math.Ceil(totalCO2Kg / perTreeKgPerYear))
}
