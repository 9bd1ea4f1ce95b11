package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var (
	ErrExportInProgress = errors.New("an export is already in flight")
	ErrNoPagesCaptured  = errors.New("no pages captured")
	ErrPageOutOfRange   = errors.New("page index out of range")
	ErrCaptureFailed    = errors.New("page capture failed")
)

// Paginated documents use A5 pages with each raster image at full bleed.
const (
	pdfPageWidthMM  = 148.0
	pdfPageHeightMM = 210.0

	defaultBatchDelay = 150 * time.Millisecond
)

type PageCapturer interface {
	RenderPage(ctx context.Context, page Page) (image.Image, error)
}

var _ PageCapturer = (*Renderer)(nil)

// Exporter turns a page plan into downloadable artifacts. Only one export
// runs at a time; a failed capture inside a batch skips that page, and only
// a zero-page outcome fails the whole operation.
type Exporter struct {
	capturer   PageCapturer
	batchDelay time.Duration

	mu        sync.Mutex
	exporting bool
}

func NewExporter(capturer PageCapturer) *Exporter {
	return &Exporter{
		capturer:   capturer,
		batchDelay: defaultBatchDelay,
	}
}

func (e *Exporter) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exporting {
		return ErrExportInProgress
	}
	e.exporting = true
	return nil
}

func (e *Exporter) end() {
	e.mu.Lock()
	e.exporting = false
	e.mu.Unlock()
}

// CapturePage rasterizes a single page of the plan.
func (e *Exporter) CapturePage(ctx context.Context, pages []Page, idx int) (image.Image, error) {
	if idx < 0 || idx >= len(pages) {
		return nil, ErrPageOutOfRange
	}
	img, err := e.capturer.RenderPage(ctx, pages[idx])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if img == nil {
		return nil, ErrCaptureFailed
	}
	return img, nil
}

// ExportImage writes one page as a raster image. A failed capture aborts,
// unlike batch exports.
func (e *Exporter) ExportImage(ctx context.Context, w io.Writer, pages []Page, idx int, format string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	img, err := e.CapturePage(ctx, pages, idx)
	if err != nil {
		return err
	}
	return encodeImage(w, img, format)
}

// ExportImages writes every capturable page into a zip archive, pausing
// between pages. Returns how many pages made it in.
func (e *Exporter) ExportImages(ctx context.Context, w io.Writer, pages []Page, format string) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	archive := zip.NewWriter(w)
	// Flush the central directory even on early return, so a partial archive
	// is still a readable zip.
	defer archive.Close()
	captured := 0
	for idx, page := range pages {
		if idx > 0 {
			if err := sleepCtx(ctx, e.batchDelay); err != nil {
				return captured, err
			}
		}
		img, err := e.capturer.RenderPage(ctx, page)
		if err != nil || img == nil {
			log.Printf("[menuforge] skipping page %d in image batch: %v", idx+1, err)
			continue
		}
		entry, err := archive.Create(fmt.Sprintf("page-%02d.%s", idx+1, imageExt(format)))
		if err != nil {
			return captured, err
		}
		if err := encodeImage(entry, img, format); err != nil {
			return captured, err
		}
		captured++
	}
	if captured == 0 {
		return 0, ErrNoPagesCaptured
	}
	if err := archive.Close(); err != nil {
		return captured, err
	}
	return captured, nil
}

// ExportPDF captures pages strictly in plan order and embeds each raster at
// full-bleed page size. A page only counts once its capture succeeded, so a
// handful of broken pages degrades to a shorter document instead of a corrupt
// one; zero captured pages reports failure rather than emitting an empty file.
func (e *Exporter) ExportPDF(ctx context.Context, w io.Writer, pages []Page, allPages bool, currentIdx int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	targets := pages
	if !allPages {
		if currentIdx < 0 || currentIdx >= len(pages) {
			return 0, ErrPageOutOfRange
		}
		targets = pages[currentIdx : currentIdx+1]
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetAutoPageBreak(false, 0)

	captured := 0
	for idx, page := range targets {
		img, err := e.capturer.RenderPage(ctx, page)
		if err != nil || img == nil {
			log.Printf("[menuforge] skipping page %d in pdf: %v", idx+1, err)
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			log.Printf("[menuforge] skipping page %d in pdf: %v", idx+1, err)
			continue
		}

		name := fmt.Sprintf("page-%d", idx)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, pdfPageWidthMM, pdfPageHeightMM, false, opts, 0, "")
		captured++
	}
	if captured == 0 {
		return 0, ErrNoPagesCaptured
	}
	if err := pdf.Output(w); err != nil {
		return captured, err
	}
	return captured, nil
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<style>
@page { size: A5; margin: 0; }
body { margin: 0; }
img { width: 148mm; height: 210mm; }
</style>
</head>
<body>
<img src="{{.Src}}" alt="{{.Alt}}" onload="window.print(); window.close();">
</body>
</html>
`))

// PrintDocument writes a minimal self-printing HTML page containing only the
// rasterized page image. Printing triggers on image load so a blank page is
// never printed; all interpolated text goes through html/template escaping.
func (e *Exporter) PrintDocument(ctx context.Context, w io.Writer, pages []Page, idx int) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	img, err := e.CapturePage(ctx, pages, idx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	page := pages[idx]
	var alt []string
	for _, pageCat := range page.Categories {
		alt = append(alt, pageCat.Category.Title)
	}

	return printTemplate.Execute(w, struct {
		Title string
		Alt   string
		Src   template.URL
	}{
		Title: page.VenueName + " - " + page.Title,
		Alt:   strings.Join(alt, ", "),
		Src:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())),
	})
}

func encodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(w, img)
	}
}

func imageExt(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "jpg"
	default:
		return "png"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
