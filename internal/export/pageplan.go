package export

import "menuforge/internal/domain"

type PageVariant string

const (
	VariantClassic PageVariant = "classic"
	VariantGold    PageVariant = "gold"
	VariantDark    PageVariant = "dark"
)

var variantCycle = []PageVariant{VariantClassic, VariantGold, VariantDark}

type PageCategory struct {
	SectionTitle string
	Category     domain.MenuCategory
}

// Page is one descriptor in the fixed page plan: either the cover or a
// content page carrying one to three categories.
type Page struct {
	Title      string
	VenueName  string
	Cover      bool
	Variant    PageVariant
	Categories []PageCategory
}

const (
	maxCategoriesPerPage = 3
	maxItemsPerPage      = 14
)

// BuildPagePlan assembles the cover page plus content pages, walking the four
// sections in display order and packing categories greedily without splitting
// a category across pages.
func BuildPagePlan(venueName string, menu *domain.MenuData) []Page {
	pages := []Page{{
		Title:     venueName,
		VenueName: venueName,
		Cover:     true,
		Variant:   VariantClassic,
	}}
	if menu == nil {
		return pages
	}

	variantIdx := 0
	for _, kind := range domain.SectionOrder {
		section := menu.Section(kind)

		var current []PageCategory
		itemCount := 0
		flush := func() {
			if len(current) == 0 {
				return
			}
			pages = append(pages, Page{
				Title:      section.Title,
				VenueName:  venueName,
				Variant:    variantCycle[variantIdx%len(variantCycle)],
				Categories: current,
			})
			variantIdx++
			current = nil
			itemCount = 0
		}

		for _, cat := range section.Categories {
			if len(cat.Items) == 0 {
				continue
			}
			if len(current) == maxCategoriesPerPage ||
				(itemCount > 0 && itemCount+len(cat.Items) > maxItemsPerPage) {
				flush()
			}
			current = append(current, PageCategory{
				SectionTitle: section.Title,
				Category:     cat.Clone(),
			})
			itemCount += len(cat.Items)
		}
		flush()
	}
	return pages
}
