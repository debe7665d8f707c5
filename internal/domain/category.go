package domain

// Category identifies the kind of daily activity a record belongs to.
type Category string

const (
	CategoryTransportation Category = "transportation"
	CategoryFood           Category = "food"
	CategoryEnergy         Category = "energy"
	CategoryWaste          Category = "waste"
)

// Categories lists the known categories in canonical order.
func Categories() []Category {
	return []Category{CategoryTransportation, CategoryFood, CategoryEnergy, CategoryWaste}
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryTransportation, CategoryFood, CategoryEnergy, CategoryWaste:
		return true
	default:
		return false
	}
}
