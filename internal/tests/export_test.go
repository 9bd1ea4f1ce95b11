package tests

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"menuforge/internal/domain"
	"menuforge/internal/export"
	"menuforge/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCapturer fails on the configured call numbers (1-based) and returns a
// tiny raster otherwise.
type stubCapturer struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (c *stubCapturer) RenderPage(ctx context.Context, page export.Page) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failOn[c.calls] {
		return nil, errors.New("render failed")
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func makePages(n int) []export.Page {
	pages := make([]export.Page, n)
	for i := range pages {
		pages[i] = export.Page{Title: fmt.Sprintf("Page %d", i+1), VenueName: "Bluebird"}
	}
	pages[0].Cover = true
	return pages
}

func TestBuildPagePlan_Defaults(t *testing.T) {
	menu := service.DefaultMenu()
	pages := export.BuildPagePlan("Bluebird", menu)

	// Cover plus one page per default section; none overflows the packing
	// limits.
	require.Len(t, pages, 5)
	assert.True(t, pages[0].Cover)
	assert.Equal(t, "Bluebird", pages[0].VenueName)

	assert.Equal(t, "Starters", pages[1].Title)
	assert.Len(t, pages[1].Categories, 2)
	assert.Equal(t, "Main Course", pages[2].Title)
	assert.Len(t, pages[2].Categories, 3)

	// Content page themes rotate.
	assert.Equal(t, export.VariantClassic, pages[1].Variant)
	assert.Equal(t, export.VariantGold, pages[2].Variant)
	assert.Equal(t, export.VariantDark, pages[3].Variant)
	assert.Equal(t, export.VariantClassic, pages[4].Variant)
}

func TestBuildPagePlan_PacksAtMostThreeCategories(t *testing.T) {
	menu := &domain.MenuData{}
	menu.Snacks.Kind = domain.SectionSnacks
	menu.Snacks.Title = "Starters"
	for i := 0; i < 5; i++ {
		menu.Snacks.Categories = append(menu.Snacks.Categories, domain.MenuCategory{
			Title: fmt.Sprintf("Category %d", i+1),
			Items: []domain.MenuItem{{Name: "Item", Price: "₹100"}},
		})
	}

	pages := export.BuildPagePlan("Bluebird", menu)
	require.Len(t, pages, 3)
	assert.Len(t, pages[1].Categories, 3)
	assert.Len(t, pages[2].Categories, 2)
}

func TestBuildPagePlan_BreaksOnItemCount(t *testing.T) {
	big := domain.MenuCategory{Title: "Big"}
	for i := 0; i < 10; i++ {
		big.Items = append(big.Items, domain.MenuItem{Name: fmt.Sprintf("Item %d", i), Price: "₹100"})
	}
	menu := &domain.MenuData{}
	menu.Food.Kind = domain.SectionFood
	menu.Food.Title = "Main Course"
	menu.Food.Categories = []domain.MenuCategory{big, big}

	pages := export.BuildPagePlan("Bluebird", menu)
	// Two ten-item categories cannot share a page.
	require.Len(t, pages, 3)
	assert.Len(t, pages[1].Categories, 1)
	assert.Len(t, pages[2].Categories, 1)
}

func TestBuildPagePlan_SkipsEmptyCategories(t *testing.T) {
	menu := &domain.MenuData{}
	menu.Sides.Kind = domain.SectionSides
	menu.Sides.Title = "Sides"
	menu.Sides.Categories = []domain.MenuCategory{{Title: "Empty"}}

	pages := export.BuildPagePlan("Bluebird", menu)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].Cover)
}

func TestExporter_PDF_SkipsFailedPages(t *testing.T) {
	capturer := &stubCapturer{failOn: map[int]bool{2: true}}
	exporter := export.NewExporter(capturer)

	var buf bytes.Buffer
	captured, err := exporter.ExportPDF(context.Background(), &buf, makePages(5), true, 0)
	assert.NoError(t, err)
	assert.Equal(t, 4, captured)
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
}

func TestExporter_PDF_NoPagesCaptured(t *testing.T) {
	capturer := &stubCapturer{failOn: map[int]bool{1: true, 2: true, 3: true}}
	exporter := export.NewExporter(capturer)

	var buf bytes.Buffer
	_, err := exporter.ExportPDF(context.Background(), &buf, makePages(3), true, 0)
	assert.ErrorIs(t, err, export.ErrNoPagesCaptured)
}

func TestExporter_PDF_SinglePage(t *testing.T) {
	capturer := &stubCapturer{}
	exporter := export.NewExporter(capturer)

	var buf bytes.Buffer
	captured, err := exporter.ExportPDF(context.Background(), &buf, makePages(5), false, 2)
	assert.NoError(t, err)
	assert.Equal(t, 1, captured)
	assert.Equal(t, 1, capturer.calls)

	_, err = exporter.ExportPDF(context.Background(), &buf, makePages(5), false, 9)
	assert.ErrorIs(t, err, export.ErrPageOutOfRange)
}

func TestExporter_Image_AbortsOnFailure(t *testing.T) {
	capturer := &stubCapturer{failOn: map[int]bool{1: true}}
	exporter := export.NewExporter(capturer)

	var buf bytes.Buffer
	err := exporter.ExportImage(context.Background(), &buf, makePages(2), 0, "png")
	assert.ErrorIs(t, err, export.ErrCaptureFailed)

	err = exporter.ExportImage(context.Background(), &buf, makePages(2), 7, "png")
	assert.ErrorIs(t, err, export.ErrPageOutOfRange)
}

func TestExporter_Images_ZipSkipsFailures(t *testing.T) {
	capturer := &stubCapturer{failOn: map[int]bool{2: true}}
	exporter := export.NewExporter(capturer)

	var buf bytes.Buffer
	captured, err := exporter.ExportImages(context.Background(), &buf, makePages(3), "png")
	require.NoError(t, err)
	assert.Equal(t, 2, captured)

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"page-01.png", "page-03.png"}, names)
}

// cancellingCapturer cancels the batch context while rendering its first page.
type cancellingCapturer struct {
	cancel context.CancelFunc
}

func (c *cancellingCapturer) RenderPage(ctx context.Context, page export.Page) (image.Image, error) {
	c.cancel()
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func TestExporter_Images_PartialZipOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exporter := export.NewExporter(&cancellingCapturer{cancel: cancel})

	var buf bytes.Buffer
	captured, err := exporter.ExportImages(ctx, &buf, makePages(3), "png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, captured)

	// The pages captured before cancellation are still a readable archive.
	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, reader.File, 1)
	assert.Equal(t, "page-01.png", reader.File[0].Name)
}

// reentrantCapturer tries to start a second export from inside a running
// capture and records the outcome.
type reentrantCapturer struct {
	exporter *export.Exporter
	pages    []export.Page
	inner    error
}

func (c *reentrantCapturer) RenderPage(ctx context.Context, page export.Page) (image.Image, error) {
	var buf bytes.Buffer
	c.inner = c.exporter.ExportImage(ctx, &buf, c.pages, 0, "png")
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func TestExporter_SingleExportInFlight(t *testing.T) {
	capturer := &reentrantCapturer{pages: makePages(1)}
	exporter := export.NewExporter(capturer)
	capturer.exporter = exporter

	var buf bytes.Buffer
	err := exporter.ExportImage(context.Background(), &buf, makePages(1), 0, "png")
	assert.NoError(t, err)
	assert.ErrorIs(t, capturer.inner, export.ErrExportInProgress)

	// The flag clears once the export finishes.
	err = exporter.ExportImage(context.Background(), &buf, makePages(1), 0, "png")
	assert.NoError(t, err)
}

func TestExporter_PrintDocument_EscapesMarkup(t *testing.T) {
	exporter := export.NewExporter(&stubCapturer{})

	pages := []export.Page{{
		Title:     "Menu",
		VenueName: `<script>alert(1)</script>`,
		Categories: []export.PageCategory{
			{Category: domain.MenuCategory{Title: "Rum & Co"}},
		},
	}}

	var buf bytes.Buffer
	err := exporter.PrintDocument(context.Background(), &buf, pages, 0)
	require.NoError(t, err)

	html := buf.String()
	assert.NotContains(t, html, "<script>alert")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Rum &amp; Co")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "window.print()")
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	return nil, errors.New("unreachable host")
}

func TestRenderer_RenderPage(t *testing.T) {
	renderer, err := export.NewRenderer(failingFetcher{})
	require.NoError(t, err)

	menu := service.DefaultMenu()
	// A broken image asset must not fail the page.
	menu.Snacks.Categories[0].Items[0].ImageURL = "http://localhost:1/broken.png"
	service.ApplyDietaryDefaults(menu)

	pages := export.BuildPagePlan("Bluebird", menu)
	require.True(t, len(pages) >= 2)

	for _, page := range pages[:2] {
		img, err := renderer.RenderPage(context.Background(), page)
		require.NoError(t, err)
		bounds := img.Bounds()
		assert.Equal(t, 2480, bounds.Dx())
		assert.Equal(t, 3508, bounds.Dy())
	}
}
