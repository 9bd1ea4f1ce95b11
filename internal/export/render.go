package export

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"strings"
	"time"

	"menuforge/internal/domain"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Fixed canvas: A4 at 150dpi, rendered at 2x for print quality.
const (
	pageWidth   = 1240
	pageHeight  = 1754
	renderScale = 2

	canvasWidth  = pageWidth * renderScale
	canvasHeight = pageHeight * renderScale

	defaultImageFetchTimeout = 3 * time.Second
)

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// HTTPImageFetcher loads embedded item images with a bounded timeout so a
// broken asset can never stall a capture.
type HTTPImageFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPImageFetcher() *HTTPImageFetcher {
	return &HTTPImageFetcher{
		Client:  &http.Client{},
		Timeout: defaultImageFetchTimeout,
	}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultImageFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	return img, err
}

type palette struct {
	bg     [3]float64
	band   [3]float64
	ink    [3]float64
	accent [3]float64
	muted  [3]float64
}

var palettes = map[PageVariant]palette{
	VariantClassic: {
		bg:     [3]float64{0.98, 0.97, 0.94},
		band:   [3]float64{0.55, 0.12, 0.12},
		ink:    [3]float64{0.13, 0.11, 0.10},
		accent: [3]float64{0.55, 0.12, 0.12},
		muted:  [3]float64{0.45, 0.42, 0.40},
	},
	VariantGold: {
		bg:     [3]float64{0.99, 0.98, 0.93},
		band:   [3]float64{0.62, 0.49, 0.13},
		ink:    [3]float64{0.15, 0.13, 0.08},
		accent: [3]float64{0.62, 0.49, 0.13},
		muted:  [3]float64{0.48, 0.44, 0.36},
	},
	VariantDark: {
		bg:     [3]float64{0.11, 0.11, 0.13},
		band:   [3]float64{0.78, 0.62, 0.25},
		ink:    [3]float64{0.93, 0.92, 0.88},
		accent: [3]float64{0.78, 0.62, 0.25},
		muted:  [3]float64{0.62, 0.61, 0.58},
	},
}

// Renderer lays out one fully styled page off-screen and rasterizes it.
type Renderer struct {
	fetcher ImageFetcher

	title   font.Face
	heading font.Face
	body    font.Face
	small   font.Face
	tiny    font.Face
}

func NewRenderer(fetcher ImageFetcher) (*Renderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	r := &Renderer{fetcher: fetcher}
	for _, f := range []struct {
		face *font.Face
		fnt  *sfnt.Font
		size float64
	}{
		{&r.title, bold, 56},
		{&r.heading, bold, 34},
		{&r.body, bold, 22},
		{&r.small, regular, 18},
		{&r.tiny, regular, 14},
	} {
		face, err := opentype.NewFace(f.fnt, &opentype.FaceOptions{
			Size:    f.size * renderScale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("build font face: %w", err)
		}
		*f.face = face
	}
	return r, nil
}

// RenderPage builds the off-screen page and rasterizes it at the fixed canvas
// size. Embedded images that fail to load leave their slot empty.
func (r *Renderer) RenderPage(ctx context.Context, page Page) (image.Image, error) {
	dc := gg.NewContext(canvasWidth, canvasHeight)
	p, ok := palettes[page.Variant]
	if !ok {
		p = palettes[VariantClassic]
	}

	dc.SetRGB(p.bg[0], p.bg[1], p.bg[2])
	dc.Clear()

	if page.Cover {
		r.renderCover(dc, p, page)
	} else {
		r.renderContent(ctx, dc, p, page)
	}
	return dc.Image(), nil
}

func (r *Renderer) renderCover(dc *gg.Context, p palette, page Page) {
	margin := 60.0 * renderScale

	dc.SetRGB(p.accent[0], p.accent[1], p.accent[2])
	dc.SetLineWidth(3 * renderScale)
	dc.DrawRectangle(margin, margin, canvasWidth-2*margin, canvasHeight-2*margin)
	dc.Stroke()
	dc.SetLineWidth(1 * renderScale)
	inset := margin + 10*renderScale
	dc.DrawRectangle(inset, inset, canvasWidth-2*inset, canvasHeight-2*inset)
	dc.Stroke()

	dc.SetRGB(p.ink[0], p.ink[1], p.ink[2])
	dc.SetFontFace(r.title)
	dc.DrawStringWrapped(page.VenueName, canvasWidth/2, canvasHeight*0.42,
		0.5, 0.5, canvasWidth-4*margin, 1.4, gg.AlignCenter)

	dc.SetFontFace(r.heading)
	dc.SetRGB(p.accent[0], p.accent[1], p.accent[2])
	dc.DrawStringAnchored("M E N U", canvasWidth/2, canvasHeight*0.54, 0.5, 0.5)

	dc.SetFontFace(r.tiny)
	dc.SetRGB(p.muted[0], p.muted[1], p.muted[2])
	dc.DrawStringAnchored("scan · order · enjoy", canvasWidth/2, canvasHeight-margin-20*renderScale, 0.5, 0.5)
}

func (r *Renderer) renderContent(ctx context.Context, dc *gg.Context, p palette, page Page) {
	margin := 70.0 * renderScale
	bandHeight := 90.0 * renderScale

	dc.SetRGB(p.band[0], p.band[1], p.band[2])
	dc.DrawRectangle(0, 0, canvasWidth, bandHeight)
	dc.Fill()

	dc.SetRGB(p.bg[0], p.bg[1], p.bg[2])
	dc.SetFontFace(r.body)
	dc.DrawStringAnchored(page.VenueName, canvasWidth/2, bandHeight/2, 0.5, 0.5)

	y := bandHeight + 70*renderScale
	dc.SetFontFace(r.heading)
	dc.SetRGB(p.ink[0], p.ink[1], p.ink[2])
	dc.DrawStringAnchored(page.Title, canvasWidth/2, y, 0.5, 0.5)
	y += 50 * renderScale

	for _, pageCat := range page.Categories {
		y = r.renderCategory(ctx, dc, p, pageCat, margin, y)
		if y > canvasHeight-margin {
			break
		}
	}

	dc.SetFontFace(r.tiny)
	dc.SetRGB(p.muted[0], p.muted[1], p.muted[2])
	dc.DrawStringAnchored(page.VenueName, canvasWidth/2, canvasHeight-30*renderScale, 0.5, 0.5)
}

func (r *Renderer) renderCategory(ctx context.Context, dc *gg.Context, p palette, pageCat PageCategory, margin, y float64) float64 {
	cat := pageCat.Category

	dc.SetFontFace(r.body)
	dc.SetRGB(p.accent[0], p.accent[1], p.accent[2])
	dc.DrawString(strings.ToUpper(cat.Title), margin, y)
	lineY := y + 12*renderScale
	dc.SetLineWidth(1 * renderScale)
	dc.DrawLine(margin, lineY, canvasWidth-margin, lineY)
	dc.Stroke()
	y = lineY + 40*renderScale

	for _, item := range cat.Items {
		if y > canvasHeight-margin {
			return y
		}

		dc.SetFontFace(r.body)
		dc.SetRGB(p.ink[0], p.ink[1], p.ink[2])
		nameX := margin + 30*renderScale
		dc.DrawString(item.Name, nameX, y)

		drawDietaryMarker(dc, string(item.Dietary), margin, y)

		nameWidth, _ := dc.MeasureString(item.Name)
		badgeX := nameX + nameWidth + 16*renderScale
		for _, badge := range itemBadges(item) {
			dc.SetFontFace(r.tiny)
			dc.SetRGB(p.accent[0], p.accent[1], p.accent[2])
			dc.DrawString(badge, badgeX, y)
			badgeWidth, _ := dc.MeasureString(badge)
			badgeX += badgeWidth + 12*renderScale
		}

		dc.SetFontFace(r.body)
		dc.SetRGB(p.ink[0], p.ink[1], p.ink[2])
		dc.DrawStringAnchored(priceLabel(item), canvasWidth-margin, y, 1, 0)
		y += 30 * renderScale

		if item.Description != "" {
			dc.SetFontFace(r.small)
			dc.SetRGB(p.muted[0], p.muted[1], p.muted[2])
			dc.DrawStringWrapped(item.Description, nameX, y, 0, 0,
				canvasWidth-nameX-margin-200*renderScale, 1.3, gg.AlignLeft)
			y += 28 * renderScale
		}

		if item.ImageURL != "" && r.fetcher != nil {
			img, err := r.fetcher.Fetch(ctx, item.ImageURL)
			if err != nil {
				// Broken asset: leave the slot empty, keep the layout.
				log.Printf("[menuforge] item image skipped (%s): %v", item.Name, err)
			} else {
				y = drawThumbnail(dc, img, nameX, y)
			}
		}

		y += 14 * renderScale
	}
	return y + 24*renderScale
}

func drawDietaryMarker(dc *gg.Context, dietary string, x, y float64) {
	if dietary == "" {
		return
	}
	if dietary == "nonveg" {
		dc.SetRGB(0.72, 0.15, 0.12)
	} else {
		dc.SetRGB(0.13, 0.52, 0.21)
	}
	size := 14.0 * renderScale
	boxY := y - size
	dc.SetLineWidth(1.5 * renderScale)
	dc.DrawRectangle(x, boxY, size, size)
	dc.Stroke()
	dc.DrawCircle(x+size/2, boxY+size/2, size/4)
	dc.Fill()
}

func itemBadges(item domain.MenuItem) []string {
	var badges []string
	if item.Bestseller {
		badges = append(badges, "BESTSELLER")
	}
	if item.ChefSpecial {
		badges = append(badges, "CHEF'S SPECIAL")
	}
	if item.New {
		badges = append(badges, "NEW")
	}
	if item.Spicy {
		badges = append(badges, "SPICY")
	}
	if item.TopShelf {
		badges = append(badges, "TOP SHELF")
	} else if item.Premium {
		badges = append(badges, "PREMIUM")
	}
	return badges
}

// priceLabel renders the right-aligned price cell for whichever pricing
// shape the item carries.
func priceLabel(item domain.MenuItem) string {
	switch {
	case len(item.Sizes) > 0:
		return strings.Join(item.Sizes, " / ")
	case item.HalfPrice != "" || item.FullPrice != "":
		return "Half " + item.HalfPrice + " / Full " + item.FullPrice
	default:
		return item.Price
	}
}

func drawThumbnail(dc *gg.Context, img image.Image, x, y float64) float64 {
	const thumb = 90.0 * renderScale
	bounds := img.Bounds()
	longest := bounds.Dx()
	if bounds.Dy() > longest {
		longest = bounds.Dy()
	}
	if longest == 0 {
		return y
	}
	scale := thumb / float64(longest)

	dc.Push()
	dc.Translate(x, y)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
	return y + thumb + 10*renderScale
}
