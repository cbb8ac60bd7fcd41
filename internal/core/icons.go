package core

import "strings"

// DefaultCategoryIcon is used for any category without a dedicated icon.
const DefaultCategoryIcon = "📝"

var categoryIcons = map[string]string{
	"food":          "🍽️",
	"entertainment": "🎬",
	"utilities":     "⚡",
	"income":        "💰",
	"transport":     "🚗",
	"shopping":      "🛍️",
	"health":        "🏥",
	"education":     "📚",
	"savings":       "🏦",
}

// CategoryIcon returns the icon for a category name, matched case-insensitively.
func CategoryIcon(name string) string {
	if icon, ok := categoryIcons[strings.ToLower(strings.TrimSpace(name))]; ok {
		return icon
	}
	return DefaultCategoryIcon
}
