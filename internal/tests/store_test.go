package tests

import (
	"context"
	"errors"
	"testing"

	"menuforge/internal/domain"
	"menuforge/internal/mocks"
	"menuforge/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// sampleMenu mirrors a small persisted menu with row IDs assigned, including
// one never-persisted item (ID zero).
func sampleMenu() *domain.MenuData {
	return &domain.MenuData{
		Snacks: domain.MenuSection{
			Kind:  domain.SectionSnacks,
			Title: "Starters",
			Categories: []domain.MenuCategory{
				{
					ID:    1,
					Title: "Chicken Specials",
					Items: []domain.MenuItem{
						{ID: 11, Name: "Chicken Tikka", Price: "₹320"},
					},
				},
			},
		},
		Food: domain.MenuSection{
			Kind:  domain.SectionFood,
			Title: "Main Course",
			Categories: []domain.MenuCategory{
				{
					ID:    2,
					Title: "Veg Main Course",
					Items: []domain.MenuItem{
						{ID: 21, Name: "Dal Makhani", HalfPrice: "₹190", FullPrice: "₹280"},
					},
				},
			},
		},
		Beverages: domain.MenuSection{
			Kind:  domain.SectionBeverages,
			Title: "Beverages",
			Categories: []domain.MenuCategory{
				{
					ID:    3,
					Title: "Whisky",
					Items: []domain.MenuItem{
						{ID: 101, Name: "Blenders Pride", Price: "₹200"},
						{ID: 102, Name: "Jameson", Sizes: []string{"₹100", "₹200"}},
						{ID: 0, Name: "House Pour", Price: "₹150"},
					},
				},
			},
		},
		Sides: domain.MenuSection{
			Kind:  domain.SectionSides,
			Title: "Sides",
			Categories: []domain.MenuCategory{
				{
					ID:    4,
					Title: "Accompaniments",
					Items: []domain.MenuItem{
						{ID: 41, Name: "Masala Papad", Price: "₹60"},
					},
				},
			},
		},
	}
}

func newStore(repo *mocks.MenuRepository, publisher *mocks.ChangePublisher) *service.MenuStore {
	return service.NewMenuStore(repo, publisher, "₹")
}

func TestIsProductionVenue(t *testing.T) {
	assert.True(t, service.IsProductionVenue("bluebird"))
	assert.True(t, service.IsProductionVenue("royal-treat"))
	assert.False(t, service.IsProductionVenue("demo-cafe"))
	assert.False(t, service.IsProductionVenue("my-test-kitchen"))
	assert.False(t, service.IsProductionVenue("STAGING-bar"))
}

func TestMenuStore_Fetch_Empty(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "new-cafe").Return(nil, nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	menu, err := store.Fetch(context.Background(), "new-cafe")
	assert.Nil(t, menu)
	assert.ErrorIs(t, err, service.ErrMenuEmpty)
}

func TestMenuStore_Fetch_AppliesDietaryTags(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	menu, err := store.Fetch(context.Background(), "bluebird")
	assert.NoError(t, err)
	assert.Equal(t, domain.DietaryNonVeg, menu.Snacks.Categories[0].Items[0].Dietary)
	assert.Equal(t, domain.DietaryVeg, menu.Beverages.Categories[0].Items[0].Dietary)
}

func TestMenuStore_Snapshot_ReturnsIndependentClone(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	first, err := store.Snapshot(context.Background(), "bluebird")
	assert.NoError(t, err)

	// Mutating the snapshot must not leak into the cached state.
	first.Beverages.Categories[0].Items[0].Price = "₹1"

	second, err := store.Snapshot(context.Background(), "bluebird")
	assert.NoError(t, err)
	assert.Equal(t, "₹200", second.Beverages.Categories[0].Items[0].Price)
}

func TestMenuStore_UpdateItem_PersistsByRowID(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()
	repository.On("UpdateItem", mock.MatchedBy(func(item domain.MenuItem) bool {
		return item.ID == 101 && item.Name == "Blenders Pride" && item.Price == "₹500"
	})).Return(int64(1), nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.MatchedBy(func(event domain.ChangeEvent) bool {
		return event.Type == domain.ChangeEventMenuChanged && event.VenueSlug == "bluebird"
	})).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.UpdateItem(context.Background(), domain.SectionBeverages, 0, 0,
		domain.MenuItem{Name: "Blenders Pride", Price: "500"}, "bluebird")
	assert.NoError(t, err)

	menu, err := store.Snapshot(context.Background(), "bluebird")
	assert.NoError(t, err)
	assert.Equal(t, "₹500", menu.Beverages.Categories[0].Items[0].Price)
}

func TestMenuStore_UpdateItem_RevertsOnRemoteError(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Twice()
	repository.On("UpdateItem", mock.Anything).Return(int64(0), errors.New("connection reset")).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.UpdateItem(context.Background(), domain.SectionBeverages, 0, 0,
		domain.MenuItem{Name: "Blenders Pride", Price: "₹999"}, "bluebird")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrRowNotFound)

	// The optimistic write was rolled back by re-fetching.
	menu, err := store.Snapshot(context.Background(), "bluebird")
	assert.NoError(t, err)
	assert.Equal(t, "₹200", menu.Beverages.Categories[0].Items[0].Price)
}

func TestMenuStore_UpdateItem_RowGone(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Twice()
	repository.On("UpdateItem", mock.Anything).Return(int64(0), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.UpdateItem(context.Background(), domain.SectionBeverages, 0, 0,
		domain.MenuItem{Name: "Blenders Pride", Price: "₹999"}, "bluebird")
	assert.ErrorIs(t, err, service.ErrRowNotFound)
}

func TestMenuStore_UpdateItem_NeverPersistedItem(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Twice()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.UpdateItem(context.Background(), domain.SectionBeverages, 0, 2,
		domain.MenuItem{Name: "House Pour", Price: "₹160"}, "bluebird")
	assert.ErrorIs(t, err, service.ErrRowNotFound)
}

func TestMenuStore_UpdateItem_PositionOutOfRange(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.UpdateItem(context.Background(), domain.SectionBeverages, 0, 9,
		domain.MenuItem{Name: "Nope"}, "bluebird")
	assert.ErrorIs(t, err, service.ErrPositionOutOfRange)

	err = store.UpdateItem(context.Background(), domain.SectionKind("dessert"), 0, 0,
		domain.MenuItem{Name: "Nope"}, "bluebird")
	assert.ErrorIs(t, err, service.ErrUnknownSection)
}

func TestMenuStore_AddAndDeleteItem_LocalOnly(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	ctx := context.Background()

	err := store.AddItem(ctx, domain.SectionSides, 0, domain.MenuItem{Name: "Peanut Masala", Price: "110"}, "bluebird")
	assert.NoError(t, err)

	menu, _ := store.Snapshot(ctx, "bluebird")
	items := menu.Sides.Categories[0].Items
	assert.Len(t, items, 2)
	assert.Equal(t, "₹110", items[1].Price)
	assert.Zero(t, items[1].ID)

	err = store.DeleteItem(ctx, domain.SectionSides, 0, 1, "bluebird")
	assert.NoError(t, err)

	menu, _ = store.Snapshot(ctx, "bluebird")
	assert.Len(t, menu.Sides.Categories[0].Items, 1)
}

func TestMenuStore_AdjustPrices_AllSections(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	// Working copy fetch plus the post-write convergence refresh. The demo
	// slug keeps the archive step out of the way.
	repository.On("FetchMenu", "demo-cafe").Return(sampleMenu(), nil).Twice()
	repository.On("BulkUpdatePrices", mock.MatchedBy(func(updates []domain.PriceUpdate) bool {
		byID := map[int64]domain.PriceUpdate{}
		for _, update := range updates {
			byID[update.ItemID] = update
		}
		return len(updates) == 5 &&
			byID[101].Price == "₹220" &&
			byID[102].Sizes[0] == "₹110" && byID[102].Sizes[1] == "₹220" &&
			byID[21].HalfPrice == "₹209" && byID[21].FullPrice == "₹308" &&
			byID[11].Price == "₹352" &&
			byID[41].Price == "₹66"
	})).Return(nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.AdjustPrices(context.Background(), 10, "", -1, "demo-cafe")
	assert.NoError(t, err)
}

func TestMenuStore_AdjustPrices_ScopedToCategory(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "demo-cafe").Return(sampleMenu(), nil).Twice()
	repository.On("BulkUpdatePrices", mock.MatchedBy(func(updates []domain.PriceUpdate) bool {
		// Only the two persisted whisky rows; the unsaved pour is skipped.
		return len(updates) == 2
	})).Return(nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.AdjustPrices(context.Background(), 10, domain.SectionBeverages, 0, "demo-cafe")
	assert.NoError(t, err)
}

func TestMenuStore_AdjustPrices_ArchivesProductionVenueFirst(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	// Archive fetch, working copy fetch, convergence refresh.
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Times(3)
	repository.On("InsertArchive", "bluebird", mock.Anything, "system", "before +10.0% price adjustment").
		Return(nil).Once()
	repository.On("BulkUpdatePrices", mock.Anything).Return(nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.AdjustPrices(context.Background(), 10, "", -1, "bluebird")
	assert.NoError(t, err)
}

func TestMenuStore_AdjustPrices_RevertsOnBulkFailure(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "demo-cafe").Return(sampleMenu(), nil).Twice()
	repository.On("BulkUpdatePrices", mock.Anything).Return(errors.New("deadlock")).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.AdjustPrices(context.Background(), 10, "", -1, "demo-cafe")
	assert.Error(t, err)

	menu, err := store.Snapshot(context.Background(), "demo-cafe")
	assert.NoError(t, err)
	assert.Equal(t, "₹200", menu.Beverages.Categories[0].Items[0].Price)
}

func TestMenuStore_AdjustPrices_Validation(t *testing.T) {
	store := newStore(mocks.NewMenuRepository(t), mocks.NewChangePublisher(t))
	ctx := context.Background()

	assert.ErrorIs(t, store.AdjustPrices(ctx, -100, "", -1, "demo-cafe"), service.ErrInvalidPercent)
	assert.ErrorIs(t, store.AdjustPrices(ctx, 1001, "", -1, "demo-cafe"), service.ErrInvalidPercent)
	assert.ErrorIs(t, store.AdjustPrices(ctx, 10, domain.SectionKind("dessert"), -1, "demo-cafe"), service.ErrUnknownSection)
	// A category index without a section to scope it is meaningless.
	assert.ErrorIs(t, store.AdjustPrices(ctx, 10, "", 0, "demo-cafe"), service.ErrUnknownSection)
}

func TestMenuStore_AdjustPrices_CategoryIndexOutOfRange(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "demo-cafe").Return(sampleMenu(), nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.AdjustPrices(context.Background(), 10, domain.SectionBeverages, 7, "demo-cafe")
	assert.ErrorIs(t, err, service.ErrPositionOutOfRange)
}

func TestMenuStore_Archive(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()
	repository.On("InsertArchive", "bluebird", mock.MatchedBy(func(snapshot []byte) bool {
		return len(snapshot) > 0
	}), "chef", "pre-festival").Return(nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.Archive(context.Background(), "chef", "pre-festival", "bluebird")
	assert.NoError(t, err)
}

func TestMenuStore_Archive_EmptyMenu(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(nil, nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	err := store.Archive(context.Background(), "chef", "", "bluebird")
	assert.ErrorIs(t, err, service.ErrMenuEmpty)
}

func TestMenuStore_Reset_ArchivesWipesThenSeeds(t *testing.T) {
	current := sampleMenu()
	current.Sides.Categories[0].Items[0].Price = "₹999" // renamed price to carry forward

	var order []string
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(current, nil).Times(3)
	repository.On("InsertArchive", "bluebird", mock.Anything, "system", "before reset").
		Run(func(args mock.Arguments) { order = append(order, "archive") }).Return(nil).Once()
	repository.On("WipeMenu", "bluebird").
		Run(func(args mock.Arguments) { order = append(order, "wipe") }).Return(nil).Once()
	repository.On("InsertMenu", "bluebird", mock.MatchedBy(func(menu *domain.MenuData) bool {
		// The seed carries the outgoing price forward for the matching name.
		for _, cat := range menu.Sides.Categories {
			for _, item := range cat.Items {
				if item.Name == "Masala Papad" {
					return item.Price == "₹999"
				}
			}
		}
		return false
	})).Run(func(args mock.Arguments) { order = append(order, "seed") }).Return(nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.Reset(context.Background(), "bluebird", true)
	assert.NoError(t, err)
	assert.Equal(t, []string{"archive", "wipe", "seed"}, order)
}

func TestMenuStore_Reset_WithoutPreservingPrices(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	// Archive fetch and post-seed refresh only; no extra fetch for prices.
	repository.On("FetchMenu", "demo-cafe").Return(sampleMenu(), nil).Twice()
	repository.On("InsertArchive", "demo-cafe", mock.Anything, "system", "before reset").Return(nil).Once()
	repository.On("WipeMenu", "demo-cafe").Return(nil).Once()
	repository.On("InsertMenu", "demo-cafe", mock.MatchedBy(func(menu *domain.MenuData) bool {
		return menu.Sides.Categories[0].Items[0].Price == "₹60"
	})).Return(nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.Reset(context.Background(), "demo-cafe", false)
	assert.NoError(t, err)
}

func TestMenuStore_Restore(t *testing.T) {
	snapshot := sampleMenu()
	snapshot.Beverages.Categories[0].Items[0].Price = "180" // un-formatted on purpose

	repository := mocks.NewMenuRepository(t)
	// Pre-restore archive finds nothing; that is tolerated quietly.
	repository.On("FetchMenu", "bluebird").Return(nil, nil).Once()
	repository.On("WipeMenu", "bluebird").Return(nil).Once()
	repository.On("InsertMenu", "bluebird", mock.MatchedBy(func(menu *domain.MenuData) bool {
		return menu.Beverages.Categories[0].Items[0].Price == "₹180"
	})).Return(nil).Once()
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()

	publisher := mocks.NewChangePublisher(t)
	publisher.On("PublishChange", mock.Anything, mock.Anything).Return(nil).Once()

	store := newStore(repository, publisher)
	err := store.Restore(context.Background(), snapshot, "bluebird")
	assert.NoError(t, err)
}

func TestMenuStore_Restore_NilSnapshot(t *testing.T) {
	store := newStore(mocks.NewMenuRepository(t), mocks.NewChangePublisher(t))
	assert.Error(t, store.Restore(context.Background(), nil, "bluebird"))
}

func TestMenuStore_Refresh_DropsCacheWhenMenuVanishes(t *testing.T) {
	repository := mocks.NewMenuRepository(t)
	repository.On("FetchMenu", "bluebird").Return(sampleMenu(), nil).Once()
	repository.On("FetchMenu", "bluebird").Return(nil, nil).Once()

	store := newStore(repository, mocks.NewChangePublisher(t))
	_, err := store.Fetch(context.Background(), "bluebird")
	assert.NoError(t, err)

	err = store.Refresh(context.Background(), "bluebird")
	assert.ErrorIs(t, err, service.ErrMenuEmpty)
}

type recordingNotifier struct {
	venues []string
}

func (n *recordingNotifier) NotifyMenuUpdated(venueSlug string) {
	n.venues = append(n.venues, venueSlug)
}

func TestConsumer_ProcessChange(t *testing.T) {
	store := mocks.NewMenuStoreInterface(t)
	store.On("Refresh", mock.Anything, "bluebird").Return(nil).Once()

	notifier := &recordingNotifier{}
	consumer := service.NewConsumer(nil, store, notifier)
	consumer.ProcessChange(context.Background(), domain.ChangeEvent{
		Type:      domain.ChangeEventMenuChanged,
		Table:     "menu_items",
		VenueSlug: "bluebird",
	})
	assert.Equal(t, []string{"bluebird"}, notifier.venues)
}

func TestConsumer_ProcessChange_IgnoresOtherEvents(t *testing.T) {
	store := mocks.NewMenuStoreInterface(t)
	notifier := &recordingNotifier{}

	consumer := service.NewConsumer(nil, store, notifier)
	consumer.ProcessChange(context.Background(), domain.ChangeEvent{Type: "venue_changed", VenueSlug: "bluebird"})
	assert.Empty(t, notifier.venues)
}

func TestConsumer_ProcessChange_SkipsNotifyOnRefreshFailure(t *testing.T) {
	store := mocks.NewMenuStoreInterface(t)
	store.On("Refresh", mock.Anything, "bluebird").Return(errors.New("db down")).Once()

	notifier := &recordingNotifier{}
	consumer := service.NewConsumer(nil, store, notifier)
	consumer.ProcessChange(context.Background(), domain.ChangeEvent{
		Type:      domain.ChangeEventMenuChanged,
		VenueSlug: "bluebird",
	})
	assert.Empty(t, notifier.venues)
}
