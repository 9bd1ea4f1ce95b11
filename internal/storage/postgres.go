package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"menuforge/internal/domain"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	DB *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

func (r *PostgresRepository) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id SERIAL PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			theme TEXT NOT NULL DEFAULT 'classic',
			settings JSONB NOT NULL DEFAULT '{}',
			qr_code BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		`CREATE TABLE IF NOT EXISTS menu_sections (
			id SERIAL PRIMARY KEY,
			venue_slug TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			display_order INT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS menu_categories (
			id SERIAL PRIMARY KEY,
			section_id INT NOT NULL REFERENCES menu_sections(id),
			title TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			display_order INT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id SERIAL PRIMARY KEY,
			category_id INT NOT NULL REFERENCES menu_categories(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			half_price TEXT NOT NULL DEFAULT '',
			full_price TEXT NOT NULL DEFAULT '',
			sizes TEXT[],
			dietary TEXT NOT NULL DEFAULT '',
			bestseller BOOLEAN NOT NULL DEFAULT FALSE,
			chef_special BOOLEAN NOT NULL DEFAULT FALSE,
			is_new BOOLEAN NOT NULL DEFAULT FALSE,
			spicy BOOLEAN NOT NULL DEFAULT FALSE,
			premium BOOLEAN NOT NULL DEFAULT FALSE,
			top_shelf BOOLEAN NOT NULL DEFAULT FALSE,
			image_url TEXT NOT NULL DEFAULT '',
			display_order INT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS menu_archives (
			id SERIAL PRIMARY KEY,
			venue_slug TEXT NOT NULL DEFAULT '',
			snapshot JSONB NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
	}
	for _, stmt := range statements {
		if _, err := r.DB.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FetchMenu loads all sections, categories and items for a venue ordered by
// display_order at every level. Returns (nil, nil) when the venue has no rows.
func (r *PostgresRepository) FetchMenu(venueSlug string) (*domain.MenuData, error) {
	rows, err := r.DB.Query(`
		SELECT id, kind, title
		FROM menu_sections
		WHERE venue_slug = $1
		ORDER BY display_order`, venueSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []domain.MenuSection
	for rows.Next() {
		var section domain.MenuSection
		if err := rows.Scan(&section.ID, &section.Kind, &section.Title); err != nil {
			continue
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, nil
	}

	menu := &domain.MenuData{}
	for idx := range sections {
		categories, err := r.fetchCategories(sections[idx].ID)
		if err != nil {
			return nil, err
		}
		sections[idx].Categories = categories

		if slot := menu.Section(sections[idx].Kind); slot != nil {
			*slot = sections[idx]
		}
	}
	return menu, nil
}

func (r *PostgresRepository) fetchCategories(sectionID int64) ([]domain.MenuCategory, error) {
	rows, err := r.DB.Query(`
		SELECT id, title, COALESCE(icon, '')
		FROM menu_categories
		WHERE section_id = $1
		ORDER BY display_order`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.MenuCategory{}
	for rows.Next() {
		var cat domain.MenuCategory
		if err := rows.Scan(&cat.ID, &cat.Title, &cat.Icon); err != nil {
			continue
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range categories {
		items, err := r.fetchItems(categories[idx].ID)
		if err != nil {
			return nil, err
		}
		categories[idx].Items = items
	}
	return categories, nil
}

func (r *PostgresRepository) fetchItems(categoryID int64) ([]domain.MenuItem, error) {
	rows, err := r.DB.Query(`
		SELECT id, name, COALESCE(description, ''), COALESCE(price, ''),
			COALESCE(half_price, ''), COALESCE(full_price, ''), sizes,
			COALESCE(dietary, ''), bestseller, chef_special, is_new, spicy,
			premium, top_shelf, COALESCE(image_url, '')
		FROM menu_items
		WHERE category_id = $1
		ORDER BY display_order`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		var sizes pq.StringArray
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price,
			&item.HalfPrice, &item.FullPrice, &sizes,
			&item.Dietary, &item.Bestseller, &item.ChefSpecial, &item.New,
			&item.Spicy, &item.Premium, &item.TopShelf, &item.ImageURL); err != nil {
			continue
		}
		if len(sizes) > 0 {
			item.Sizes = []string(sizes)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem writes all mutable item fields, targeting the row by primary key.
func (r *PostgresRepository) UpdateItem(item domain.MenuItem) (int64, error) {
	result, err := r.DB.Exec(`
		UPDATE menu_items
		SET name=$1, description=$2, price=$3, half_price=$4, full_price=$5,
			sizes=$6, dietary=$7, bestseller=$8, chef_special=$9, is_new=$10,
			spicy=$11, premium=$12, top_shelf=$13, image_url=$14
		WHERE id=$15`,
		item.Name, item.Description, item.Price, item.HalfPrice, item.FullPrice,
		sizesParam(item.Sizes), string(item.Dietary), item.Bestseller, item.ChefSpecial,
		item.New, item.Spicy, item.Premium, item.TopShelf, item.ImageURL, item.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// BulkUpdatePrices applies pre-computed price values row by row inside one
// transaction. Values arrive already formatted so rounding happened exactly
// once, on the client side.
func (r *PostgresRepository) BulkUpdatePrices(updates []domain.PriceUpdate) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, update := range updates {
		if _, err := tx.Exec(`
			UPDATE menu_items
			SET price=$1, half_price=$2, full_price=$3, sizes=$4
			WHERE id=$5`,
			update.Price, update.HalfPrice, update.FullPrice,
			sizesParam(update.Sizes), update.ItemID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WipeMenu deletes a venue's rows strictly child-to-parent: items, then
// categories, then sections.
func (r *PostgresRepository) WipeMenu(venueSlug string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM menu_items
		WHERE category_id IN (
			SELECT c.id FROM menu_categories c
			JOIN menu_sections s ON c.section_id = s.id
			WHERE s.venue_slug = $1
		)`, venueSlug); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM menu_categories
		WHERE section_id IN (
			SELECT id FROM menu_sections WHERE venue_slug = $1
		)`, venueSlug); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM menu_sections WHERE venue_slug = $1`, venueSlug); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertMenu seeds a full menu for a venue, assigning display_order from the
// in-memory order at every level.
func (r *PostgresRepository) InsertMenu(venueSlug string, menu *domain.MenuData) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for order, kind := range domain.SectionOrder {
		section := menu.Section(kind)
		if section == nil {
			continue
		}
		var sectionID int64
		if err := tx.QueryRow(`
			INSERT INTO menu_sections (venue_slug, kind, title, display_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			venueSlug, string(kind), section.Title, order).Scan(&sectionID); err != nil {
			return err
		}

		for catOrder, cat := range section.Categories {
			var categoryID int64
			if err := tx.QueryRow(`
				INSERT INTO menu_categories (section_id, title, icon, display_order)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				sectionID, cat.Title, cat.Icon, catOrder).Scan(&categoryID); err != nil {
				return err
			}

			for itemOrder, item := range cat.Items {
				if _, err := tx.Exec(`
					INSERT INTO menu_items (category_id, name, description, price,
						half_price, full_price, sizes, dietary, bestseller,
						chef_special, is_new, spicy, premium, top_shelf,
						image_url, display_order)
					VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
					categoryID, item.Name, item.Description, item.Price,
					item.HalfPrice, item.FullPrice, sizesParam(item.Sizes),
					string(item.Dietary), item.Bestseller, item.ChefSpecial,
					item.New, item.Spicy, item.Premium, item.TopShelf,
					item.ImageURL, itemOrder); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) InsertArchive(venueSlug string, snapshot []byte, actor, notes string) error {
	_, err := r.DB.Exec(`
		INSERT INTO menu_archives (venue_slug, snapshot, actor, notes)
		VALUES ($1, $2, $3, $4)`, venueSlug, snapshot, actor, notes)
	return err
}

func (r *PostgresRepository) ListArchives(venueSlug string) ([]domain.ArchivedMenuSnapshot, error) {
	rows, err := r.DB.Query(`
		SELECT id, venue_slug, snapshot, actor, notes, created_at
		FROM menu_archives
		WHERE venue_slug = $1
		ORDER BY created_at DESC`, venueSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archives []domain.ArchivedMenuSnapshot
	for rows.Next() {
		archive, err := scanArchive(rows.Scan)
		if err != nil {
			continue
		}
		archives = append(archives, *archive)
	}
	return archives, rows.Err()
}

func (r *PostgresRepository) GetArchive(id int64) (*domain.ArchivedMenuSnapshot, error) {
	row := r.DB.QueryRow(`
		SELECT id, venue_slug, snapshot, actor, notes, created_at
		FROM menu_archives
		WHERE id = $1`, id)
	return scanArchive(row.Scan)
}

func scanArchive(scan func(...any) error) (*domain.ArchivedMenuSnapshot, error) {
	var archive domain.ArchivedMenuSnapshot
	var snapshot []byte
	if err := scan(&archive.ID, &archive.VenueSlug, &snapshot,
		&archive.Actor, &archive.Notes, &archive.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &archive.Menu); err != nil {
		return nil, fmt.Errorf("decode archive snapshot: %w", err)
	}
	return &archive, nil
}

func (r *PostgresRepository) CreateVenue(venue *domain.Venue) error {
	settings, err := json.Marshal(venue.Settings)
	if err != nil {
		return err
	}
	if venue.Settings == nil {
		settings = []byte("{}")
	}
	return r.DB.QueryRow(`
		INSERT INTO venues (slug, name, theme, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		venue.Slug, venue.Name, venue.Theme, settings).
		Scan(&venue.ID, &venue.CreatedAt)
}

func (r *PostgresRepository) GetVenue(slug string) (*domain.Venue, error) {
	var venue domain.Venue
	var settings []byte
	err := r.DB.QueryRow(`
		SELECT id, slug, name, theme, settings, created_at
		FROM venues
		WHERE slug = $1`, slug).
		Scan(&venue.ID, &venue.Slug, &venue.Name, &venue.Theme, &settings, &venue.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		_ = json.Unmarshal(settings, &venue.Settings)
	}
	return &venue, nil
}

func (r *PostgresRepository) ListVenues() ([]domain.Venue, error) {
	rows, err := r.DB.Query(`
		SELECT id, slug, name, theme, settings, created_at
		FROM venues
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	venues := []domain.Venue{}
	for rows.Next() {
		var venue domain.Venue
		var settings []byte
		if err := rows.Scan(&venue.ID, &venue.Slug, &venue.Name, &venue.Theme,
			&settings, &venue.CreatedAt); err != nil {
			continue
		}
		if len(settings) > 0 {
			_ = json.Unmarshal(settings, &venue.Settings)
		}
		venues = append(venues, venue)
	}
	return venues, rows.Err()
}

func (r *PostgresRepository) UpdateVenue(venue *domain.Venue) error {
	settings, err := json.Marshal(venue.Settings)
	if err != nil {
		return err
	}
	if venue.Settings == nil {
		settings = []byte("{}")
	}
	return r.DB.QueryRow(`
		UPDATE venues SET name=$1, theme=$2, settings=$3
		WHERE slug=$4
		RETURNING id, created_at`,
		venue.Name, venue.Theme, settings, venue.Slug).
		Scan(&venue.ID, &venue.CreatedAt)
}

func (r *PostgresRepository) SaveQRCode(slug string, qr []byte) error {
	_, err := r.DB.Exec(`UPDATE venues SET qr_code = $1 WHERE slug = $2`, qr, slug)
	return err
}

func (r *PostgresRepository) GetQRCode(slug string) ([]byte, error) {
	var qr []byte
	if err := r.DB.QueryRow(`SELECT qr_code FROM venues WHERE slug = $1`, slug).Scan(&qr); err != nil {
		return nil, err
	}
	return qr, nil
}

// sizesParam stores an empty ladder as NULL rather than an empty array.
func sizesParam(sizes []string) any {
	if len(sizes) == 0 {
		return nil
	}
	return pq.Array(sizes)
}
