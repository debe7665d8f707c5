package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// EmissionFactor converts one unit of an activity into kilograms of CO2e.
type EmissionFactor struct {
	Category     Category
	ActivityType string
	Unit         string
	FactorKgCO2  float64
}

type factorKey struct {
	category     Category
	activityType string
}

// FactorTable is the immutable (category, activity_type) -> factor lookup.
// It is built once at startup and shared read-only across requests.
type FactorTable struct {
	factors map[factorKey]EmissionFactor
}

// NewFactorTable validates the given factors and builds the lookup table.
// Factors must be non-negative and keys must be unique.
func NewFactorTable(factors []EmissionFactor) (*FactorTable, error) {
	table := &FactorTable{factors: make(map[factorKey]EmissionFactor, len(factors))}
	for _, f := range factors {
		if !IsValidCategory(f.Category) {
			return nil, fmt.Errorf("factor table: unknown category %q", f.Category)
		}
		if f.ActivityType == "" {
			return nil, fmt.Errorf("factor table: empty activity type in category %q", f.Category)
		}
		if f.FactorKgCO2 < 0 {
			return nil, fmt.Errorf("factor table: negative factor %f for %s/%s", f.FactorKgCO2, f.Category, f.ActivityType)
		}
		key := factorKey{category: f.Category, activityType: f.ActivityType}
		if _, exists := table.factors[key]; exists {
			return nil, fmt.Errorf("factor table: duplicate entry for %s/%s", f.Category, f.ActivityType)
		}
		table.factors[key] = f
	}
	return table, nil
}

// Lookup resolves the emission factor for a (category, activity_type) pair.
// There is no default factor: unregistered pairs always fail.
func (t *FactorTable) Lookup(category Category, activityType string) (EmissionFactor, error) {
	factor, ok := t.factors[factorKey{category: category, activityType: activityType}]
	if !ok {
		return EmissionFactor{}, fmt.Errorf("%w: %s/%s", ErrUnknownActivity, category, activityType)
	}
	return factor, nil
}

// Factors returns every entry in a stable order, for seeding the reference table.
func (t *FactorTable) Factors() []EmissionFactor {
	out := make([]EmissionFactor, 0, len(t.factors))
	for _, f := range t.factors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ActivityType < out[j].ActivityType
	})
	return out
}

type factorDocEntry struct {
	Unit        string  `json:"unit"`
	FactorKgCO2 float64 `json:"factor"`
}

// LoadFactorTable reads the factors document, a JSON mapping of
// category -> activity_type -> {unit, factor}.
func LoadFactorTable(path string) (*FactorTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read factor table: %w", err)
	}
	return ParseFactorTable(raw)
}

// ParseFactorTable builds a FactorTable from the raw factors document.
func ParseFactorTable(raw []byte) (*FactorTable, error) {
	var doc map[Category]map[string]factorDocEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse factor table: %w", err)
	}

	factors := make([]EmissionFactor, 0)
	for category, activities := range doc {
		for activityType, entry := range activities {
			factors = append(factors, EmissionFactor{
				Category:     category,
				ActivityType: activityType,
				Unit:         entry.Unit,
				FactorKgCO2:  entry.FactorKgCO2,
			})
		}
	}
	return NewFactorTable(factors)
}
