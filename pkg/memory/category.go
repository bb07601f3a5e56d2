package memory

import "strings"

// Category is the closed set of memory categories.
type Category string

const (
	CategoryTools         Category = "tools"
	CategoryPreferences   Category = "preferences"
	CategoryPersonalInfo  Category = "personal_info"
	CategoryWorkInfo      Category = "work_info"
	CategorySkills        Category = "skills"
	CategoryGoals         Category = "goals"
	CategoryRelationships Category = "relationships"
	CategoryOther         Category = "other"
)

var categories = []Category{
	CategoryTools,
	CategoryPreferences,
	CategoryPersonalInfo,
	CategoryWorkInfo,
	CategorySkills,
	CategoryGoals,
	CategoryRelationships,
	CategoryOther,
}

// Categories returns every valid category in a stable order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// NormalizeCategory maps free-form classifier output onto the closed enum.
// Matching ignores case, surrounding whitespace, and treats spaces and dashes
// as underscores. Anything unrecognized becomes CategoryOther.
func NormalizeCategory(raw string) Category {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	for _, c := range categories {
		if s == string(c) {
			return c
		}
	}
	return CategoryOther
}

// IsValid reports whether c is one of the closed set of categories.
func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}
