package service

import (
	"strings"

	"menuforge/internal/domain"
)

var nonVegKeywords = []string{
	"NON-VEG", "NON VEG", "NONVEG",
	"CHICKEN", "MUTTON", "FISH", "PRAWN", "EGG", "MEAT", "SEAFOOD",
}

var beverageKeywords = []string{
	"WHISKY", "WHISKEY", "VODKA", "RUM", "GIN", "BEER", "WINE", "BRANDY",
	"TEQUILA", "COCKTAIL", "MOCKTAIL", "BREEZER", "SHAKE", "JUICE",
	"COFFEE", "TEA", "SODA", "LASSI",
}

// CategoryDietary infers a default dietary tag from a category title. This is
// a keyword heuristic; title collisions are an accepted limitation.
func CategoryDietary(title string) domain.Dietary {
	upper := strings.ToUpper(title)

	for _, keyword := range nonVegKeywords {
		if strings.Contains(upper, keyword) {
			return domain.DietaryNonVeg
		}
	}
	if strings.Contains(upper, "VEG") && !strings.Contains(upper, "NON") {
		return domain.DietaryVeg
	}
	for _, keyword := range beverageKeywords {
		if strings.Contains(upper, keyword) {
			return domain.DietaryVeg
		}
	}
	return ""
}

// ApplyDietaryDefaults fills in the category default on every item that lacks
// an explicit tag. Items already tagged are never overwritten, so the pass is
// idempotent.
func ApplyDietaryDefaults(menu *domain.MenuData) {
	if menu == nil {
		return
	}
	for _, kind := range domain.SectionOrder {
		section := menu.Section(kind)
		for catIdx := range section.Categories {
			cat := &section.Categories[catIdx]
			fallback := CategoryDietary(cat.Title)
			if fallback == "" {
				continue
			}
			for itemIdx := range cat.Items {
				if cat.Items[itemIdx].Dietary == "" {
					cat.Items[itemIdx].Dietary = fallback
				}
			}
		}
	}
}
