package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"menuforge/internal/domain"
	"menuforge/internal/export"
	"menuforge/internal/service"

	"github.com/gorilla/mux"
)

type Handler struct {
	Store    service.MenuStoreInterface
	Venues   service.VenueRepository
	Votes    service.VoteStore
	QR       service.QRGenerator
	Exporter *export.Exporter
	Hub      *Hub
}

func NewHandler(store service.MenuStoreInterface, venues service.VenueRepository,
	votes service.VoteStore, qr service.QRGenerator, exporter *export.Exporter, hub *Hub) *Handler {
	return &Handler{
		Store:    store,
		Venues:   venues,
		Votes:    votes,
		QR:       qr,
		Exporter: exporter,
		Hub:      hub,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/venues", h.createVenue).Methods("POST")
	r.HandleFunc("/api/venues", h.listVenues).Methods("GET")
	r.HandleFunc("/api/venues/{slug}", h.getVenue).Methods("GET")
	r.HandleFunc("/api/venues/{slug}", h.updateVenue).Methods("PUT")
	r.HandleFunc("/api/venues/{slug}/qrcode", h.getVenueQRCode).Methods("GET")

	r.HandleFunc("/api/venues/{slug}/menu", h.getMenu).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/menu/live", h.menuSocket).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/menu/archive", h.archiveMenu).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/menu/archives", h.listArchives).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/menu/reset", h.resetMenu).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/menu/restore", h.restoreMenu).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/menu/adjust-prices", h.adjustPrices).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/menu/{section}/categories/{categoryIdx}/items", h.addItem).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/menu/{section}/categories/{categoryIdx}/items/{itemIdx}", h.updateItem).Methods("PUT")
	r.HandleFunc("/api/venues/{slug}/menu/{section}/categories/{categoryIdx}/items/{itemIdx}", h.deleteItem).Methods("DELETE")

	r.HandleFunc("/api/venues/{slug}/items/top-voted", h.topVoted).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/items/{itemId}/votes", h.addVote).Methods("POST")
	r.HandleFunc("/api/venues/{slug}/items/{itemId}/votes", h.getVotes).Methods("GET")

	r.HandleFunc("/api/venues/{slug}/export/image", h.exportImage).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/export/images", h.exportImages).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/export/pdf", h.exportPDF).Methods("GET")
	r.HandleFunc("/api/venues/{slug}/export/print", h.printPage).Methods("GET")
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "menuforge",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) createVenue(w http.ResponseWriter, r *http.Request) {
	var venue domain.Venue
	if err := json.NewDecoder(r.Body).Decode(&venue); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if venue.Slug == "" || venue.Name == "" {
		http.Error(w, "slug and name are required", http.StatusBadRequest)
		return
	}
	if venue.Theme == "" {
		venue.Theme = "classic"
	}
	if err := h.Venues.CreateVenue(&venue); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, venue)
}

func (h *Handler) listVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.Venues.ListVenues()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

func (h *Handler) getVenue(w http.ResponseWriter, r *http.Request) {
	venue, err := h.Venues.GetVenue(mux.Vars(r)["slug"])
	if err == sql.ErrNoRows {
		http.Error(w, "Venue not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (h *Handler) updateVenue(w http.ResponseWriter, r *http.Request) {
	var venue domain.Venue
	if err := json.NewDecoder(r.Body).Decode(&venue); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	venue.Slug = mux.Vars(r)["slug"]
	if err := h.Venues.UpdateVenue(&venue); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Venue not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (h *Handler) getVenueQRCode(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	qr, err := h.Venues.GetQRCode(slug)
	if err == sql.ErrNoRows {
		http.Error(w, "Venue not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if len(qr) == 0 {
		qr, err = h.QR.Generate(slug)
		if err != nil {
			http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
			return
		}
		if err := h.Venues.SaveQRCode(slug, qr); err != nil {
			log.Printf("[menuforge] failed to cache QR code for %q: %v", slug, err)
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qr)
}

// getMenu serves the venue's menu, falling back to the bundled defaults when
// the venue has no rows yet or the store is unreachable.
func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	menu, err := h.Store.Fetch(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, service.ErrMenuEmpty) {
			log.Printf("[menuforge] menu fetch failed for %q, serving defaults: %v", slug, err)
		}
		menu = service.DefaultMenu()
		service.ApplyDietaryDefaults(menu)
	}
	writeJSON(w, http.StatusOK, menu)
}

func (h *Handler) archiveMenu(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	var payload struct {
		Actor string `json:"actor"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Actor == "" {
		payload.Actor = "admin"
	}

	if err := h.Store.Archive(r.Context(), payload.Actor, payload.Notes, slug); err != nil {
		if errors.Is(err, service.ErrMenuEmpty) {
			http.Error(w, "Nothing to archive", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) listArchives(w http.ResponseWriter, r *http.Request) {
	archives, err := h.Store.ListArchives(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, archives)
}

func (h *Handler) resetMenu(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	payload := struct {
		PreservePrices *bool `json:"preserve_prices"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err.Error() != "EOF" {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	preserve := true
	if payload.PreservePrices != nil {
		preserve = *payload.PreservePrices
	}

	if err := h.Store.Reset(r.Context(), slug, preserve); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restoreMenu(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	var payload struct {
		ArchiveID int64            `json:"archive_id"`
		Snapshot  *domain.MenuData `json:"snapshot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot := payload.Snapshot
	if snapshot == nil && payload.ArchiveID > 0 {
		archive, err := h.Store.GetArchive(r.Context(), payload.ArchiveID)
		if err != nil {
			http.Error(w, "Archive not found", http.StatusNotFound)
			return
		}
		snapshot = archive.Menu
	}
	if snapshot == nil {
		http.Error(w, "Missing archive_id or snapshot", http.StatusBadRequest)
		return
	}

	if err := h.Store.Restore(r.Context(), snapshot, slug); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjustPrices(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	payload := struct {
		Percent       float64            `json:"percent"`
		Section       domain.SectionKind `json:"section"`
		CategoryIndex *int               `json:"category_index"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	categoryIdx := -1
	if payload.CategoryIndex != nil {
		categoryIdx = *payload.CategoryIndex
	}

	err := h.Store.AdjustPrices(r.Context(), payload.Percent, payload.Section, categoryIdx, slug)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidPercent),
		errors.Is(err, service.ErrUnknownSection),
		errors.Is(err, service.ErrPositionOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrMenuEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) itemPosition(r *http.Request) (domain.SectionKind, int, int, string) {
	vars := mux.Vars(r)
	categoryIdx, _ := strconv.Atoi(vars["categoryIdx"])
	itemIdx := -1
	if raw, ok := vars["itemIdx"]; ok {
		itemIdx, _ = strconv.Atoi(raw)
	}
	return domain.SectionKind(vars["section"]), categoryIdx, itemIdx, vars["slug"]
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	kind, categoryIdx, itemIdx, slug := h.itemPosition(r)

	var item domain.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if item.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	err := h.Store.UpdateItem(r.Context(), kind, categoryIdx, itemIdx, item, slug)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, item)
	case errors.Is(err, service.ErrUnknownSection),
		errors.Is(err, service.ErrPositionOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrRowNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrMenuEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	kind, categoryIdx, _, slug := h.itemPosition(r)

	var item domain.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if item.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	err := h.Store.AddItem(r.Context(), kind, categoryIdx, item, slug)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, item)
	case errors.Is(err, service.ErrUnknownSection),
		errors.Is(err, service.ErrPositionOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrMenuEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	kind, categoryIdx, itemIdx, slug := h.itemPosition(r)

	err := h.Store.DeleteItem(r.Context(), kind, categoryIdx, itemIdx, slug)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrUnknownSection),
		errors.Is(err, service.ErrPositionOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrMenuEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) addVote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID, err := strconv.ParseInt(vars["itemId"], 10, 64)
	if err != nil || itemID <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	votes, err := h.Votes.AddVote(r.Context(), vars["slug"], itemID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"votes":            votes,
		"discount_percent": service.VoteDiscountPercent(votes),
	})
}

func (h *Handler) getVotes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID, err := strconv.ParseInt(vars["itemId"], 10, 64)
	if err != nil || itemID <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	votes, err := h.Votes.Votes(r.Context(), vars["slug"], itemID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"votes":            votes,
		"discount_percent": service.VoteDiscountPercent(votes),
	})
}

// topVoted serves the venue's vote leaderboard, most voted first.
func (h *Handler) topVoted(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	top, err := h.Votes.TopVoted(r.Context(), slug, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type entry struct {
		ItemID          int64 `json:"item_id"`
		Votes           int64 `json:"votes"`
		DiscountPercent int   `json:"discount_percent"`
	}
	entries := make([]entry, 0, len(top))
	for member, votes := range top {
		itemID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			ItemID:          itemID,
			Votes:           votes,
			DiscountPercent: service.VoteDiscountPercent(votes),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return entries[i].ItemID < entries[j].ItemID
	})
	writeJSON(w, http.StatusOK, entries)
}

// pagePlan builds the export page plan from the current snapshot, falling
// back to the defaults for venues that have never been edited.
func (h *Handler) pagePlan(r *http.Request) []export.Page {
	slug := mux.Vars(r)["slug"]

	venueName := slug
	if venue, err := h.Venues.GetVenue(slug); err == nil && venue.Name != "" {
		venueName = venue.Name
	}

	menu, err := h.Store.Snapshot(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, service.ErrMenuEmpty) {
			log.Printf("[menuforge] export snapshot failed for %q, using defaults: %v", slug, err)
		}
		menu = service.DefaultMenu()
		service.ApplyDietaryDefaults(menu)
	}
	return export.BuildPagePlan(venueName, menu)
}

func (h *Handler) exportImage(w http.ResponseWriter, r *http.Request) {
	pageIdx, _ := strconv.Atoi(r.URL.Query().Get("page"))
	format := r.URL.Query().Get("format")
	plan := h.pagePlan(r)

	var buf bytes.Buffer
	err := h.Exporter.ExportImage(r.Context(), &buf, plan, pageIdx, format)
	if err != nil {
		writeExportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/"+imageMIME(format))
	w.Header().Set("Content-Disposition", "attachment; filename=menu-page."+imageFileExt(format))
	w.Write(buf.Bytes())
}

func (h *Handler) exportImages(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	plan := h.pagePlan(r)

	var buf bytes.Buffer
	_, err := h.Exporter.ExportImages(r.Context(), &buf, plan, format)
	if err != nil {
		writeExportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=menu-pages.zip")
	w.Write(buf.Bytes())
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	allPages := r.URL.Query().Get("all") != "false"
	pageIdx, _ := strconv.Atoi(r.URL.Query().Get("page"))
	plan := h.pagePlan(r)

	var buf bytes.Buffer
	_, err := h.Exporter.ExportPDF(r.Context(), &buf, plan, allPages, pageIdx)
	if err != nil {
		writeExportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=menu.pdf")
	w.Write(buf.Bytes())
}

func (h *Handler) printPage(w http.ResponseWriter, r *http.Request) {
	pageIdx, _ := strconv.Atoi(r.URL.Query().Get("page"))
	plan := h.pagePlan(r)

	var buf bytes.Buffer
	if err := h.Exporter.PrintDocument(r.Context(), &buf, plan, pageIdx); err != nil {
		writeExportError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func writeExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, export.ErrPageOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func imageMIME(format string) string {
	if format == "jpg" || format == "jpeg" {
		return "jpeg"
	}
	return "png"
}

func imageFileExt(format string) string {
	if format == "jpg" || format == "jpeg" {
		return "jpg"
	}
	return "png"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
