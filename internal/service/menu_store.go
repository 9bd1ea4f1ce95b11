package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"menuforge/internal/domain"
)

var (
	ErrMenuEmpty          = errors.New("no menu rows for venue")
	ErrPositionOutOfRange = errors.New("category or item position out of range")
	ErrRowNotFound        = errors.New("menu item row not found")
	ErrInvalidPercent     = errors.New("invalid adjustment percentage")
	ErrUnknownSection     = errors.New("unknown section kind")
)

// MenuStore owns the in-memory per-venue menu state and is its only writer.
// It reconciles an optimistic local copy against Postgres: changes apply
// locally first, then remotely, and any uncertain remote outcome is resolved
// by re-fetching authoritative state rather than rolling back by hand.
type MenuStore struct {
	repo      MenuRepository
	publisher ChangePublisher
	symbol    string

	mu    sync.RWMutex
	menus map[string]*domain.MenuData
}

func NewMenuStore(repo MenuRepository, publisher ChangePublisher, currencySymbol string) *MenuStore {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	return &MenuStore{
		repo:      repo,
		publisher: publisher,
		symbol:    currencySymbol,
		menus:     make(map[string]*domain.MenuData),
	}
}

// IsProductionVenue decides whether destructive bulk operations must archive
// first. Anything that does not look like a scratch tenant counts.
func IsProductionVenue(venueSlug string) bool {
	slug := strings.ToLower(venueSlug)
	for _, marker := range []string{"test", "demo", "staging"} {
		if strings.Contains(slug, marker) {
			return false
		}
	}
	return true
}

// Fetch loads the venue's menu from the remote store, applies the dietary
// auto-tag pass, caches it and returns a snapshot. ErrMenuEmpty signals that
// the caller should seed from the bundled defaults.
func (s *MenuStore) Fetch(ctx context.Context, venueSlug string) (*domain.MenuData, error) {
	_ = ctx
	menu, err := s.repo.FetchMenu(venueSlug)
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	if menu == nil {
		return nil, ErrMenuEmpty
	}

	ApplyDietaryDefaults(menu)

	s.mu.Lock()
	s.menus[venueSlug] = menu
	s.mu.Unlock()

	return menu.Clone(), nil
}

// Snapshot returns a clone of the cached state, fetching when nothing is
// cached yet.
func (s *MenuStore) Snapshot(ctx context.Context, venueSlug string) (*domain.MenuData, error) {
	s.mu.RLock()
	menu := s.menus[venueSlug]
	s.mu.RUnlock()
	if menu != nil {
		return menu.Clone(), nil
	}
	return s.Fetch(ctx, venueSlug)
}

// workingCopy returns a deep clone of the current state to mutate, never the
// cached value itself.
func (s *MenuStore) workingCopy(ctx context.Context, venueSlug string) (*domain.MenuData, error) {
	return s.Snapshot(ctx, venueSlug)
}

func (s *MenuStore) swap(venueSlug string, menu *domain.MenuData) {
	s.mu.Lock()
	s.menus[venueSlug] = menu
	s.mu.Unlock()
}

func locateCategory(menu *domain.MenuData, kind domain.SectionKind, categoryIdx int) (*domain.MenuCategory, error) {
	section := menu.Section(kind)
	if section == nil {
		return nil, ErrUnknownSection
	}
	if categoryIdx < 0 || categoryIdx >= len(section.Categories) {
		return nil, ErrPositionOutOfRange
	}
	return &section.Categories[categoryIdx], nil
}

// UpdateItem formats the incoming item's prices, applies it to local state
// immediately and writes the remote row by primary key. On remote failure the
// local state is reverted by re-fetching and the error is returned.
func (s *MenuStore) UpdateItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, item domain.MenuItem, venueSlug string) error {
	item = item.Clone()
	CanonicalizeItemPrices(&item, s.symbol)

	menu, err := s.workingCopy(ctx, venueSlug)
	if err != nil {
		return err
	}
	cat, err := locateCategory(menu, kind, categoryIdx)
	if err != nil {
		return err
	}
	if itemIdx < 0 || itemIdx >= len(cat.Items) {
		return ErrPositionOutOfRange
	}

	// Keep the remote row identity of the item being replaced.
	item.ID = cat.Items[itemIdx].ID
	cat.Items[itemIdx] = item
	s.swap(venueSlug, menu)

	if item.ID == 0 {
		// Never persisted; nothing to target remotely.
		s.revert(ctx, venueSlug)
		return ErrRowNotFound
	}

	rows, err := s.repo.UpdateItem(item)
	if err != nil {
		s.revert(ctx, venueSlug)
		return fmt.Errorf("update item: %w", err)
	}
	if rows == 0 {
		s.revert(ctx, venueSlug)
		return ErrRowNotFound
	}

	s.publish(ctx, "menu_items", venueSlug)
	return nil
}

// AddItem inserts an item into a category in local state only. Persistence
// happens on a later full save path; this gap is deliberate.
func (s *MenuStore) AddItem(ctx context.Context, kind domain.SectionKind, categoryIdx int, item domain.MenuItem, venueSlug string) error {
	item = item.Clone()
	CanonicalizeItemPrices(&item, s.symbol)
	item.ID = 0

	menu, err := s.workingCopy(ctx, venueSlug)
	if err != nil {
		return err
	}
	cat, err := locateCategory(menu, kind, categoryIdx)
	if err != nil {
		return err
	}
	cat.Items = append(cat.Items, item)
	s.swap(venueSlug, menu)
	return nil
}

// DeleteItem removes an item from local state only.
func (s *MenuStore) DeleteItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, venueSlug string) error {
	menu, err := s.workingCopy(ctx, venueSlug)
	if err != nil {
		return err
	}
	cat, err := locateCategory(menu, kind, categoryIdx)
	if err != nil {
		return err
	}
	if itemIdx < 0 || itemIdx >= len(cat.Items) {
		return ErrPositionOutOfRange
	}
	cat.Items = append(cat.Items[:itemIdx], cat.Items[itemIdx+1:]...)
	s.swap(venueSlug, menu)
	return nil
}

// AdjustPrices multiplies every matched price by (1 + percent/100). Scope is
// all sections when kind is empty, one section otherwise, optionally narrowed
// to a single category with categoryIdx >= 0. Production venues are archived
// before mutation. Remote rows receive the locally computed values, then the
// store refreshes from the remote to guarantee convergence.
func (s *MenuStore) AdjustPrices(ctx context.Context, percent float64, kind domain.SectionKind, categoryIdx int, venueSlug string) error {
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent <= -100 || percent > 1000 {
		return ErrInvalidPercent
	}
	if kind != "" && !domain.ValidSectionKind(kind) {
		return ErrUnknownSection
	}
	if categoryIdx >= 0 && kind == "" {
		return ErrUnknownSection
	}

	if IsProductionVenue(venueSlug) {
		if err := s.Archive(ctx, "system", fmt.Sprintf("before %+.1f%% price adjustment", percent), venueSlug); err != nil {
			log.Printf("[menuforge] archive before price adjustment failed: %v", err)
		}
	}

	menu, err := s.workingCopy(ctx, venueSlug)
	if err != nil {
		return err
	}

	kinds := domain.SectionOrder
	if kind != "" {
		kinds = []domain.SectionKind{kind}
	}

	var updates []domain.PriceUpdate
	for _, k := range kinds {
		section := menu.Section(k)
		if categoryIdx >= 0 && categoryIdx >= len(section.Categories) {
			return ErrPositionOutOfRange
		}
		for catIdx := range section.Categories {
			if categoryIdx >= 0 && catIdx != categoryIdx {
				continue
			}
			items := section.Categories[catIdx].Items
			for itemIdx := range items {
				AdjustItemPrices(&items[itemIdx], percent, s.symbol)
				if items[itemIdx].ID == 0 {
					continue
				}
				updates = append(updates, domain.PriceUpdate{
					ItemID:    items[itemIdx].ID,
					Price:     items[itemIdx].Price,
					HalfPrice: items[itemIdx].HalfPrice,
					FullPrice: items[itemIdx].FullPrice,
					Sizes:     items[itemIdx].Sizes,
				})
			}
		}
	}

	s.swap(venueSlug, menu)

	if err := s.repo.BulkUpdatePrices(updates); err != nil {
		s.revert(ctx, venueSlug)
		return fmt.Errorf("bulk price update: %w", err)
	}

	// Converge on the remote's view of the adjusted rows.
	if err := s.Refresh(ctx, venueSlug); err != nil && !errors.Is(err, ErrMenuEmpty) {
		log.Printf("[menuforge] refresh after price adjustment failed: %v", err)
	}

	s.publish(ctx, "menu_items", venueSlug)
	return nil
}

// Archive snapshots the venue's remotely stored menu (not the optimistic
// in-memory copy) into the append-only archive log.
func (s *MenuStore) Archive(ctx context.Context, actor, notes, venueSlug string) error {
	_ = ctx
	menu, err := s.repo.FetchMenu(venueSlug)
	if err != nil {
		return fmt.Errorf("archive fetch: %w", err)
	}
	if menu == nil {
		return ErrMenuEmpty
	}
	snapshot, err := json.Marshal(menu)
	if err != nil {
		return fmt.Errorf("archive encode: %w", err)
	}
	if err := s.repo.InsertArchive(venueSlug, snapshot, actor, notes); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

// Reset archives current state, wipes the venue's rows child-to-parent and
// re-seeds from the bundled defaults. With preservePrices, prices from the
// outgoing menu are matched back onto the seed by item name.
func (s *MenuStore) Reset(ctx context.Context, venueSlug string, preservePrices bool) error {
	s.archiveQuietly(ctx, venueSlug, "before reset")

	var current *domain.MenuData
	if preservePrices {
		current, _ = s.repo.FetchMenu(venueSlug)
	}

	seed := DefaultMenu()
	if preservePrices && current != nil {
		CarryForwardPrices(seed, current)
	}

	return s.replaceMenu(ctx, venueSlug, seed)
}

// Restore is the same archive-then-wipe sequence as Reset, seeding from the
// provided snapshot instead of the defaults.
func (s *MenuStore) Restore(ctx context.Context, snapshot *domain.MenuData, venueSlug string) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	s.archiveQuietly(ctx, venueSlug, "before restore")
	return s.replaceMenu(ctx, venueSlug, snapshot.Clone())
}

func (s *MenuStore) replaceMenu(ctx context.Context, venueSlug string, menu *domain.MenuData) error {
	for _, kind := range domain.SectionOrder {
		section := menu.Section(kind)
		section.Kind = kind
		for catIdx := range section.Categories {
			items := section.Categories[catIdx].Items
			for itemIdx := range items {
				CanonicalizeItemPrices(&items[itemIdx], s.symbol)
			}
		}
	}

	if err := s.repo.WipeMenu(venueSlug); err != nil {
		return fmt.Errorf("wipe menu: %w", err)
	}
	if err := s.repo.InsertMenu(venueSlug, menu); err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}

	if err := s.Refresh(ctx, venueSlug); err != nil && !errors.Is(err, ErrMenuEmpty) {
		log.Printf("[menuforge] refresh after reseed failed: %v", err)
	}
	s.publish(ctx, "menu_sections", venueSlug)
	return nil
}

// Refresh replaces the cached state wholesale from the remote store. No
// incremental patching; menus are small enough that this stays cheap.
func (s *MenuStore) Refresh(ctx context.Context, venueSlug string) error {
	_ = ctx
	menu, err := s.repo.FetchMenu(venueSlug)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if menu == nil {
		s.mu.Lock()
		delete(s.menus, venueSlug)
		s.mu.Unlock()
		return ErrMenuEmpty
	}
	ApplyDietaryDefaults(menu)
	s.swap(venueSlug, menu)
	return nil
}

// revert discards uncertain local state in favour of the remote's.
func (s *MenuStore) revert(ctx context.Context, venueSlug string) {
	if err := s.Refresh(ctx, venueSlug); err != nil && !errors.Is(err, ErrMenuEmpty) {
		log.Printf("[menuforge] revert re-fetch failed: %v", err)
	}
}

func (s *MenuStore) archiveQuietly(ctx context.Context, venueSlug, notes string) {
	if err := s.Archive(ctx, "system", notes, venueSlug); err != nil && !errors.Is(err, ErrMenuEmpty) {
		log.Printf("[menuforge] archive failed (%s): %v", notes, err)
	}
}

func (s *MenuStore) ListArchives(ctx context.Context, venueSlug string) ([]domain.ArchivedMenuSnapshot, error) {
	_ = ctx
	return s.repo.ListArchives(venueSlug)
}

func (s *MenuStore) GetArchive(ctx context.Context, id int64) (*domain.ArchivedMenuSnapshot, error) {
	_ = ctx
	return s.repo.GetArchive(id)
}

func (s *MenuStore) publish(ctx context.Context, table, venueSlug string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishChange(ctx, domain.ChangeEvent{
		Type:      domain.ChangeEventMenuChanged,
		Table:     table,
		VenueSlug: venueSlug,
		Timestamp: time.Now(),
	})
}

var _ MenuStoreInterface = (*MenuStore)(nil)
