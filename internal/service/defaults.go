package service

import (
	"strings"

	"menuforge/internal/domain"
)

// DefaultMenu returns the bundled four-section menu used to seed venues that
// have no remote rows yet.
func DefaultMenu() *domain.MenuData {
	return &domain.MenuData{
		Snacks: domain.MenuSection{
			Kind:  domain.SectionSnacks,
			Title: "Starters",
			Categories: []domain.MenuCategory{
				{
					Title: "Veg Starters",
					Icon:  "🥗",
					Items: []domain.MenuItem{
						{Name: "Paneer Tikka", Description: "Char-grilled cottage cheese, mint chutney", Price: "₹260", Bestseller: true},
						{Name: "Crispy Corn", Description: "Golden fried corn tossed in spices", Price: "₹220"},
						{Name: "Honey Chilli Potato", Description: "Sweet and spicy potato fingers", Price: "₹210", Spicy: true},
						{Name: "Mushroom Duplex", Description: "Stuffed mushrooms, cheese gratin", Price: "₹250"},
					},
				},
				{
					Title: "Non-Veg Starters",
					Icon:  "🍗",
					Items: []domain.MenuItem{
						{Name: "Chicken Tikka", Description: "Smoked tandoori chicken morsels", Price: "₹320", Bestseller: true},
						{Name: "Fish Amritsari", Description: "Batter-fried river sole, ajwain", Price: "₹380"},
						{Name: "Mutton Seekh Kebab", Description: "Hand-pounded minced lamb skewers", Price: "₹390", ChefSpecial: true},
						{Name: "Chilli Chicken", Description: "Indo-Chinese classic, dry or gravy", Price: "₹330", Spicy: true},
					},
				},
			},
		},
		Food: domain.MenuSection{
			Kind:  domain.SectionFood,
			Title: "Main Course",
			Categories: []domain.MenuCategory{
				{
					Title: "Veg Main Course",
					Icon:  "🍛",
					Items: []domain.MenuItem{
						{Name: "Paneer Butter Masala", Description: "Tomato-cashew gravy, slow churned butter", HalfPrice: "₹240", FullPrice: "₹340"},
						{Name: "Dal Makhani", Description: "Overnight simmered black lentils", HalfPrice: "₹190", FullPrice: "₹280", Bestseller: true},
						{Name: "Veg Kolhapuri", Description: "Fiery mixed-vegetable curry", HalfPrice: "₹200", FullPrice: "₹290", Spicy: true},
					},
				},
				{
					Title: "Non-Veg Main Course",
					Icon:  "🍖",
					Items: []domain.MenuItem{
						{Name: "Butter Chicken", Description: "The house classic, makhani gravy", HalfPrice: "₹310", FullPrice: "₹430", Bestseller: true},
						{Name: "Mutton Rogan Josh", Description: "Kashmiri slow-cooked lamb", HalfPrice: "₹350", FullPrice: "₹480", ChefSpecial: true},
						{Name: "Egg Curry", Description: "Home-style masala, boiled eggs", HalfPrice: "₹180", FullPrice: "₹260"},
					},
				},
				{
					Title: "Breads & Rice",
					Icon:  "🍚",
					Items: []domain.MenuItem{
						{Name: "Butter Naan", Price: "₹60"},
						{Name: "Garlic Naan", Price: "₹75"},
						{Name: "Veg Biryani", Description: "Dum-cooked basmati, raita", Price: "₹240"},
						{Name: "Chicken Biryani", Description: "Hyderabadi style, mirchi ka salan", Price: "₹310", Bestseller: true},
					},
				},
			},
		},
		Beverages: domain.MenuSection{
			Kind:  domain.SectionBeverages,
			Title: "Beverages",
			Categories: []domain.MenuCategory{
				{
					Title: "Whisky",
					Icon:  "🥃",
					Items: []domain.MenuItem{
						// Size ladder prices follow the 30/60/90/180 ml pours.
						{Name: "Blenders Pride", Sizes: []string{"₹140", "₹260", "₹380", "₹720"}},
						{Name: "Black Label", Sizes: []string{"₹320", "₹600", "₹880", "₹1,700"}, Premium: true, TopShelf: true},
						{Name: "Jameson", Sizes: []string{"₹220", "₹420", "₹620", "₹1,200"}, Premium: true},
					},
				},
				{
					Title: "Beer & Breezer",
					Icon:  "🍺",
					Items: []domain.MenuItem{
						{Name: "Kingfisher Ultra", Price: "₹240"},
						{Name: "Bira White", Price: "₹280", New: true},
						{Name: "Breezer Cranberry", Price: "₹220"},
					},
				},
				{
					Title: "Mocktails & Shakes",
					Icon:  "🍹",
					Items: []domain.MenuItem{
						{Name: "Virgin Mojito", Description: "Mint, lime, crushed ice", Price: "₹180"},
						{Name: "Cold Coffee Shake", Description: "Ice cream float optional", Price: "₹190"},
						{Name: "Blue Lagoon", Price: "₹190"},
					},
				},
			},
		},
		Sides: domain.MenuSection{
			Kind:  domain.SectionSides,
			Title: "Sides",
			Categories: []domain.MenuCategory{
				{
					Title: "Accompaniments",
					Icon:  "🥙",
					Items: []domain.MenuItem{
						{Name: "Masala Papad", Price: "₹60"},
						{Name: "Green Salad", Price: "₹90", Dietary: domain.DietaryVeg},
						{Name: "Boiled Egg Salad", Price: "₹120"},
						{Name: "French Fries", Description: "Peri-peri on request", Price: "₹140"},
					},
				},
			},
		},
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CarryForwardPrices copies price fields from an existing menu onto a freshly
// seeded one, matching items by name. Best effort: renamed items miss.
func CarryForwardPrices(seed, current *domain.MenuData) {
	if seed == nil || current == nil {
		return
	}

	type prices struct {
		price, half, full string
		sizes             []string
	}
	byName := map[string]prices{}
	for _, kind := range domain.SectionOrder {
		for _, cat := range current.Section(kind).Categories {
			for _, item := range cat.Items {
				byName[normalizeName(item.Name)] = prices{
					price: item.Price,
					half:  item.HalfPrice,
					full:  item.FullPrice,
					sizes: item.Sizes,
				}
			}
		}
	}

	for _, kind := range domain.SectionOrder {
		section := seed.Section(kind)
		for catIdx := range section.Categories {
			items := section.Categories[catIdx].Items
			for itemIdx := range items {
				old, ok := byName[normalizeName(items[itemIdx].Name)]
				if !ok {
					continue
				}
				if old.price != "" {
					items[itemIdx].Price = old.price
				}
				if old.half != "" {
					items[itemIdx].HalfPrice = old.half
				}
				if old.full != "" {
					items[itemIdx].FullPrice = old.full
				}
				if len(old.sizes) > 0 && len(items[itemIdx].Sizes) == len(old.sizes) {
					copy(items[itemIdx].Sizes, old.sizes)
				}
			}
		}
	}
}
