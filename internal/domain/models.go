package domain

import "time"

type SectionKind string

const (
	SectionSnacks    SectionKind = "snacks"
	SectionFood      SectionKind = "food"
	SectionBeverages SectionKind = "beverages"
	SectionSides     SectionKind = "sides"
)

// SectionOrder is the fixed display order of the four top-level sections.
var SectionOrder = []SectionKind{SectionSnacks, SectionFood, SectionBeverages, SectionSides}

func ValidSectionKind(kind SectionKind) bool {
	for _, k := range SectionOrder {
		if k == kind {
			return true
		}
	}
	return false
}

type Dietary string

const (
	DietaryVeg    Dietary = "veg"
	DietaryNonVeg Dietary = "nonveg"
)

// MenuItem carries exactly one of the three pricing shapes: a single price,
// a half/full pair, or an ordered size ladder.
type MenuItem struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	HalfPrice   string   `json:"half_price,omitempty"`
	FullPrice   string   `json:"full_price,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Dietary     Dietary  `json:"dietary,omitempty"`
	Bestseller  bool     `json:"bestseller,omitempty"`
	ChefSpecial bool     `json:"chef_special,omitempty"`
	New         bool     `json:"new,omitempty"`
	Spicy       bool     `json:"spicy,omitempty"`
	Premium     bool     `json:"premium,omitempty"`
	TopShelf    bool     `json:"top_shelf,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

func (i MenuItem) Clone() MenuItem {
	out := i
	if i.Sizes != nil {
		out.Sizes = make([]string, len(i.Sizes))
		copy(out.Sizes, i.Sizes)
	}
	return out
}

type MenuCategory struct {
	ID    int64      `json:"id,omitempty"`
	Title string     `json:"title"`
	Icon  string     `json:"icon,omitempty"`
	Items []MenuItem `json:"items"`
}

func (c MenuCategory) Clone() MenuCategory {
	out := c
	out.Items = make([]MenuItem, len(c.Items))
	for idx, item := range c.Items {
		out.Items[idx] = item.Clone()
	}
	return out
}

type MenuSection struct {
	ID         int64          `json:"id,omitempty"`
	Kind       SectionKind    `json:"kind"`
	Title      string         `json:"title"`
	Categories []MenuCategory `json:"categories"`
}

func (s MenuSection) Clone() MenuSection {
	out := s
	out.Categories = make([]MenuCategory, len(s.Categories))
	for idx, cat := range s.Categories {
		out.Categories[idx] = cat.Clone()
	}
	return out
}

// MenuData holds the four fixed section slots. It is always deep-cloned
// before mutation so the current and in-flight copies never alias.
type MenuData struct {
	Snacks    MenuSection `json:"snacks"`
	Food      MenuSection `json:"food"`
	Beverages MenuSection `json:"beverages"`
	Sides     MenuSection `json:"sides"`
}

func (m *MenuData) Section(kind SectionKind) *MenuSection {
	switch kind {
	case SectionSnacks:
		return &m.Snacks
	case SectionFood:
		return &m.Food
	case SectionBeverages:
		return &m.Beverages
	case SectionSides:
		return &m.Sides
	}
	return nil
}

func (m *MenuData) Clone() *MenuData {
	if m == nil {
		return nil
	}
	return &MenuData{
		Snacks:    m.Snacks.Clone(),
		Food:      m.Food.Clone(),
		Beverages: m.Beverages.Clone(),
		Sides:     m.Sides.Clone(),
	}
}

type Venue struct {
	ID        int64          `json:"id"`
	Slug      string         `json:"slug"`
	Name      string         `json:"name"`
	Theme     string         `json:"theme"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ArchivedMenuSnapshot is an immutable copy of a full menu, written before
// every destructive bulk operation.
type ArchivedMenuSnapshot struct {
	ID        int64     `json:"id"`
	VenueSlug string    `json:"venue_slug"`
	Menu      *MenuData `json:"menu"`
	Actor     string    `json:"actor"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceUpdate is one row of a bulk price write; values are already in
// canonical formatted form so remote and local rounding cannot diverge.
type PriceUpdate struct {
	ItemID    int64
	Price     string
	HalfPrice string
	FullPrice string
	Sizes     []string
}

type ChangeEvent struct {
	Type      string    `json:"type"`
	Table     string    `json:"table"`
	VenueSlug string    `json:"venue_slug"`
	Timestamp time.Time `json:"timestamp"`
}

const ChangeEventMenuChanged = "menu_changed"
