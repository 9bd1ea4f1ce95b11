package tests

import (
	"testing"

	"menuforge/internal/domain"
	"menuforge/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestCategoryDietary(t *testing.T) {
	tests := []struct {
		title string
		want  domain.Dietary
	}{
		{title: "Chicken Specials", want: domain.DietaryNonVeg},
		{title: "Mutton Curries", want: domain.DietaryNonVeg},
		{title: "Fish & Seafood", want: domain.DietaryNonVeg},
		{title: "Non-Veg Starters", want: domain.DietaryNonVeg},
		{title: "NON VEG MAINS", want: domain.DietaryNonVeg},
		{title: "Veg Starters", want: domain.DietaryVeg},
		{title: "Pure Veg Thali", want: domain.DietaryVeg},
		{title: "Whisky", want: domain.DietaryVeg},
		{title: "Mocktails & Shakes", want: domain.DietaryVeg},
		{title: "Breads & Rice", want: ""},
		{title: "House Specials", want: ""},
	}

	for _, testCase := range tests {
		t.Run(testCase.title, func(t *testing.T) {
			assert.Equal(t, testCase.want, service.CategoryDietary(testCase.title))
		})
	}
}

func TestApplyDietaryDefaults(t *testing.T) {
	menu := &domain.MenuData{
		Snacks: domain.MenuSection{
			Kind:  domain.SectionSnacks,
			Title: "Starters",
			Categories: []domain.MenuCategory{
				{
					Title: "Chicken Specials",
					Items: []domain.MenuItem{
						{Name: "Chicken Tikka"},
						{Name: "Veg Spring Roll", Dietary: domain.DietaryVeg},
					},
				},
				{
					Title: "House Specials",
					Items: []domain.MenuItem{{Name: "Mystery Platter"}},
				},
			},
		},
	}

	service.ApplyDietaryDefaults(menu)

	specials := menu.Snacks.Categories[0]
	assert.Equal(t, domain.DietaryNonVeg, specials.Items[0].Dietary)
	// Explicit tags are never overwritten by the category fallback.
	assert.Equal(t, domain.DietaryVeg, specials.Items[1].Dietary)
	// No keyword match means no tag at all.
	assert.Empty(t, menu.Snacks.Categories[1].Items[0].Dietary)
}

func TestApplyDietaryDefaults_Idempotent(t *testing.T) {
	menu := service.DefaultMenu()
	service.ApplyDietaryDefaults(menu)
	first := menu.Clone()
	service.ApplyDietaryDefaults(menu)
	assert.Equal(t, first, menu)
}

func TestApplyDietaryDefaults_NilMenu(t *testing.T) {
	assert.NotPanics(t, func() { service.ApplyDietaryDefaults(nil) })
}
