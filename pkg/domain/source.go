package domain

import "time"

// Category is a topical bucket a source belongs to. Articles inherit the
// category of their source at capture time and never change it.
type Category string

// known categories
const (
	CategoryUSNational    Category = "US_NATIONAL"
	CategoryInternational Category = "INTERNATIONAL"
	CategoryFinanceMacro  Category = "FINANCE_MACRO"
)

// Categories lists all known categories in a stable order
func Categories() []Category {
	return []Category{CategoryUSNational, CategoryInternational, CategoryFinanceMacro}
}

// Valid reports whether the category is one of the known buckets
func (c Category) Valid() bool {
	switch c {
	case CategoryUSNational, CategoryInternational, CategoryFinanceMacro:
		return true
	}
	return false
}

// Source represents a syndicated feed endpoint. Sources are loaded once at
// startup and rarely mutated; only LastChecked and LastError change afterwards.
type Source struct {
	ID          string
	Name        string
	URL         string
	Category    Category
	Active      bool
	LastChecked time.Time
	LastError   string
}
