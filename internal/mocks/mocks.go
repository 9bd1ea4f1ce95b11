// Package mocks provides testify mocks for the service interfaces.
package mocks

import (
	"context"

	"menuforge/internal/domain"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	Cleanup(func())
	mock.TestingT
}

type MenuRepository struct {
	mock.Mock
}

func NewMenuRepository(t testingT) *MenuRepository {
	m := &MenuRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MenuRepository) FetchMenu(venueSlug string) (*domain.MenuData, error) {
	args := m.Called(venueSlug)
	var menu *domain.MenuData
	if args.Get(0) != nil {
		menu = args.Get(0).(*domain.MenuData)
	}
	return menu, args.Error(1)
}

func (m *MenuRepository) UpdateItem(item domain.MenuItem) (int64, error) {
	args := m.Called(item)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MenuRepository) BulkUpdatePrices(updates []domain.PriceUpdate) error {
	args := m.Called(updates)
	return args.Error(0)
}

func (m *MenuRepository) WipeMenu(venueSlug string) error {
	args := m.Called(venueSlug)
	return args.Error(0)
}

func (m *MenuRepository) InsertMenu(venueSlug string, menu *domain.MenuData) error {
	args := m.Called(venueSlug, menu)
	return args.Error(0)
}

func (m *MenuRepository) InsertArchive(venueSlug string, snapshot []byte, actor, notes string) error {
	args := m.Called(venueSlug, snapshot, actor, notes)
	return args.Error(0)
}

func (m *MenuRepository) ListArchives(venueSlug string) ([]domain.ArchivedMenuSnapshot, error) {
	args := m.Called(venueSlug)
	var archives []domain.ArchivedMenuSnapshot
	if args.Get(0) != nil {
		archives = args.Get(0).([]domain.ArchivedMenuSnapshot)
	}
	return archives, args.Error(1)
}

func (m *MenuRepository) GetArchive(id int64) (*domain.ArchivedMenuSnapshot, error) {
	args := m.Called(id)
	var archive *domain.ArchivedMenuSnapshot
	if args.Get(0) != nil {
		archive = args.Get(0).(*domain.ArchivedMenuSnapshot)
	}
	return archive, args.Error(1)
}

type VenueRepository struct {
	mock.Mock
}

func NewVenueRepository(t testingT) *VenueRepository {
	m := &VenueRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *VenueRepository) CreateVenue(venue *domain.Venue) error {
	args := m.Called(venue)
	return args.Error(0)
}

func (m *VenueRepository) GetVenue(slug string) (*domain.Venue, error) {
	args := m.Called(slug)
	var venue *domain.Venue
	if args.Get(0) != nil {
		venue = args.Get(0).(*domain.Venue)
	}
	return venue, args.Error(1)
}

func (m *VenueRepository) ListVenues() ([]domain.Venue, error) {
	args := m.Called()
	var venues []domain.Venue
	if args.Get(0) != nil {
		venues = args.Get(0).([]domain.Venue)
	}
	return venues, args.Error(1)
}

func (m *VenueRepository) UpdateVenue(venue *domain.Venue) error {
	args := m.Called(venue)
	return args.Error(0)
}

func (m *VenueRepository) SaveQRCode(slug string, qr []byte) error {
	args := m.Called(slug, qr)
	return args.Error(0)
}

func (m *VenueRepository) GetQRCode(slug string) ([]byte, error) {
	args := m.Called(slug)
	var qr []byte
	if args.Get(0) != nil {
		qr = args.Get(0).([]byte)
	}
	return qr, args.Error(1)
}

type ChangePublisher struct {
	mock.Mock
}

func NewChangePublisher(t testingT) *ChangePublisher {
	m := &ChangePublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ChangePublisher) PublishChange(ctx context.Context, event domain.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type VoteStore struct {
	mock.Mock
}

func NewVoteStore(t testingT) *VoteStore {
	m := &VoteStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *VoteStore) AddVote(ctx context.Context, venueSlug string, itemID int64) (int64, error) {
	args := m.Called(ctx, venueSlug, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *VoteStore) Votes(ctx context.Context, venueSlug string, itemID int64) (int64, error) {
	args := m.Called(ctx, venueSlug, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *VoteStore) TopVoted(ctx context.Context, venueSlug string, limit int64) (map[string]int64, error) {
	args := m.Called(ctx, venueSlug, limit)
	var top map[string]int64
	if args.Get(0) != nil {
		top = args.Get(0).(map[string]int64)
	}
	return top, args.Error(1)
}

type QRGenerator struct {
	mock.Mock
}

func NewQRGenerator(t testingT) *QRGenerator {
	m := &QRGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *QRGenerator) Generate(venueSlug string) ([]byte, error) {
	args := m.Called(venueSlug)
	var qr []byte
	if args.Get(0) != nil {
		qr = args.Get(0).([]byte)
	}
	return qr, args.Error(1)
}

type MenuStoreInterface struct {
	mock.Mock
}

func NewMenuStoreInterface(t testingT) *MenuStoreInterface {
	m := &MenuStoreInterface{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MenuStoreInterface) Fetch(ctx context.Context, venueSlug string) (*domain.MenuData, error) {
	args := m.Called(ctx, venueSlug)
	var menu *domain.MenuData
	if args.Get(0) != nil {
		menu = args.Get(0).(*domain.MenuData)
	}
	return menu, args.Error(1)
}

func (m *MenuStoreInterface) Snapshot(ctx context.Context, venueSlug string) (*domain.MenuData, error) {
	args := m.Called(ctx, venueSlug)
	var menu *domain.MenuData
	if args.Get(0) != nil {
		menu = args.Get(0).(*domain.MenuData)
	}
	return menu, args.Error(1)
}

func (m *MenuStoreInterface) UpdateItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, item domain.MenuItem, venueSlug string) error {
	args := m.Called(ctx, kind, categoryIdx, itemIdx, item, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) AddItem(ctx context.Context, kind domain.SectionKind, categoryIdx int, item domain.MenuItem, venueSlug string) error {
	args := m.Called(ctx, kind, categoryIdx, item, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) DeleteItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, venueSlug string) error {
	args := m.Called(ctx, kind, categoryIdx, itemIdx, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) AdjustPrices(ctx context.Context, percent float64, kind domain.SectionKind, categoryIdx int, venueSlug string) error {
	args := m.Called(ctx, percent, kind, categoryIdx, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) Archive(ctx context.Context, actor, notes, venueSlug string) error {
	args := m.Called(ctx, actor, notes, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) Reset(ctx context.Context, venueSlug string, preservePrices bool) error {
	args := m.Called(ctx, venueSlug, preservePrices)
	return args.Error(0)
}

func (m *MenuStoreInterface) Restore(ctx context.Context, snapshot *domain.MenuData, venueSlug string) error {
	args := m.Called(ctx, snapshot, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) Refresh(ctx context.Context, venueSlug string) error {
	args := m.Called(ctx, venueSlug)
	return args.Error(0)
}

func (m *MenuStoreInterface) ListArchives(ctx context.Context, venueSlug string) ([]domain.ArchivedMenuSnapshot, error) {
	args := m.Called(ctx, venueSlug)
	var archives []domain.ArchivedMenuSnapshot
	if args.Get(0) != nil {
		archives = args.Get(0).([]domain.ArchivedMenuSnapshot)
	}
	return archives, args.Error(1)
}

func (m *MenuStoreInterface) GetArchive(ctx context.Context, id int64) (*domain.ArchivedMenuSnapshot, error) {
	args := m.Called(ctx, id)
	var archive *domain.ArchivedMenuSnapshot
	if args.Get(0) != nil {
		archive = args.Get(0).(*domain.ArchivedMenuSnapshot)
	}
	return archive, args.Error(1)
}
