package models

import (
	"fmt"
	"strings"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryGroceries   Category = "groceries"
	CategoryLeisure     Category = "leisure"
	CategoryElectronics Category = "electronics"
	CategoryUtilities   Category = "utilities"
	CategoryClothing    Category = "clothing"
	CategoryHealth      Category = "health"
	CategoryOthers      Category = "others"
)

// Categories returns all valid categories in declaration order.
func Categories() []Category {
	return []Category{
		CategoryGroceries,
		CategoryLeisure,
		CategoryElectronics,
		CategoryUtilities,
		CategoryClothing,
		CategoryHealth,
		CategoryOthers,
	}
}

// ParseCategory converts a string into a Category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) String() string {
	return string(c)
}
