// Package clipper turns a recipe web page into a recipe draft.
package clipper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// maxTextLen caps the page text sent to the model.
const maxTextLen = 20000

// TextExtractor reads a recipe out of raw text.
type TextExtractor interface {
	FromText(ctx context.Context, source, text string) (recipe.ExtractorResult, error)
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	http      *resty.Client
	extractor TextExtractor
}

// Page is the cleaned content of a fetched page.
type Page struct {
	Title string
	Text  string
	Image string
}

// ClipResult is an unsaved recipe built from a page.
type ClipResult struct {
	Recipe recipe.Recipe
	Meta   shared.AgentMeta
}

// NewClipper creates a new Clipper instance. timeout bounds each page fetch.
func NewClipper(extractor TextExtractor, timeout time.Duration) *Clipper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "bear-kitchen/1.0 (+recipe clipper)")
	return &Clipper{http: client, extractor: extractor}
}

// ClipURL fetches the URL and extracts a recipe from it. The recipe is not
// saved; its content ends with a link back to the page.
func (c *Clipper) ClipURL(ctx context.Context, url string) (ClipResult, error) {
	page, err := c.Fetch(ctx, url)
	if err != nil {
		return ClipResult{}, err
	}
	if strings.TrimSpace(page.Text) == "" {
		return ClipResult{}, fmt.Errorf("no text found at %s: %w", url, shared.ErrParse)
	}

	extracted, err := c.extractor.FromText(ctx, url, page.Text)
	if err != nil {
		return ClipResult{Meta: extracted.Meta}, fmt.Errorf("ai extraction failed: %w", err)
	}

	rec := recipe.Recipe{Title: page.Title}
	extracted.Draft.ApplyTo(&rec)
	rec.Content = withSource(rec.Content, url)
	if page.Image != "" {
		rec.Image = recipe.Images{{URL: page.Image}}
	}
	return ClipResult{Recipe: rec, Meta: extracted.Meta}, nil
}

// Fetch downloads a page and strips the markup that carries no recipe text.
func (c *Clipper) Fetch(ctx context.Context, url string) (Page, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w: %w", url, shared.ErrNetwork, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Page{}, fmt.Errorf("failed to fetch URL: status %d: %w", resp.StatusCode(), shared.ErrNetwork)
	}
	return cleanHTML(resp.Body())
}

func cleanHTML(body []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page: %w: %w", shared.ErrParse, err)
	}

	page := Page{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		page.Image = strings.TrimSpace(img)
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, noscript, nav, header, footer, aside, iframe, form, ads, .ads, #ads").Remove()

	page.Text = collapseBlankLines(doc.Find("body").Text())
	if len(page.Text) > maxTextLen {
		page.Text = page.Text[:maxTextLen]
	}
	return page, nil
}

func collapseBlankLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func withSource(content, url string) string {
	source := fmt.Sprintf("*Source: [%s](%s)*", url, url)
	if strings.TrimSpace(content) == "" {
		return source
	}
	return strings.TrimRight(content, "\n") + "\n\n" + source
}
