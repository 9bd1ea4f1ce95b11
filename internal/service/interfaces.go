package service

import (
	"context"

	"menuforge/internal/domain"
)

type MenuRepository interface {
	FetchMenu(venueSlug string) (*domain.MenuData, error)
	UpdateItem(item domain.MenuItem) (int64, error)
	BulkUpdatePrices(updates []domain.PriceUpdate) error
	WipeMenu(venueSlug string) error
	InsertMenu(venueSlug string, menu *domain.MenuData) error
	InsertArchive(venueSlug string, snapshot []byte, actor, notes string) error
	ListArchives(venueSlug string) ([]domain.ArchivedMenuSnapshot, error)
	GetArchive(id int64) (*domain.ArchivedMenuSnapshot, error)
}

type VenueRepository interface {
	CreateVenue(venue *domain.Venue) error
	GetVenue(slug string) (*domain.Venue, error)
	ListVenues() ([]domain.Venue, error)
	UpdateVenue(venue *domain.Venue) error
	SaveQRCode(slug string, qr []byte) error
	GetQRCode(slug string) ([]byte, error)
}

type ChangePublisher interface {
	PublishChange(ctx context.Context, event domain.ChangeEvent) error
}

type VoteStore interface {
	AddVote(ctx context.Context, venueSlug string, itemID int64) (int64, error)
	Votes(ctx context.Context, venueSlug string, itemID int64) (int64, error)
	TopVoted(ctx context.Context, venueSlug string, limit int64) (map[string]int64, error)
}

type QRGenerator interface {
	Generate(venueSlug string) ([]byte, error)
}

type MenuStoreInterface interface {
	Fetch(ctx context.Context, venueSlug string) (*domain.MenuData, error)
	Snapshot(ctx context.Context, venueSlug string) (*domain.MenuData, error)
	UpdateItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, item domain.MenuItem, venueSlug string) error
	AddItem(ctx context.Context, kind domain.SectionKind, categoryIdx int, item domain.MenuItem, venueSlug string) error
	DeleteItem(ctx context.Context, kind domain.SectionKind, categoryIdx, itemIdx int, venueSlug string) error
	AdjustPrices(ctx context.Context, percent float64, kind domain.SectionKind, categoryIdx int, venueSlug string) error
	Archive(ctx context.Context, actor, notes, venueSlug string) error
	Reset(ctx context.Context, venueSlug string, preservePrices bool) error
	Restore(ctx context.Context, snapshot *domain.MenuData, venueSlug string) error
	Refresh(ctx context.Context, venueSlug string) error
	ListArchives(ctx context.Context, venueSlug string) ([]domain.ArchivedMenuSnapshot, error)
	GetArchive(ctx context.Context, id int64) (*domain.ArchivedMenuSnapshot, error)
}
