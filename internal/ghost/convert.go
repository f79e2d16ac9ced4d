package ghost

import (
	"fmt"
	"strings"

	"bear-kitchen/internal/recipe"

	"github.com/PuerkitoBio/goquery"
)

// PostFromRecipe builds the Ghost post for a recipe. Only URL images can
// become a feature image; embedded bytes stay local.
func PostFromRecipe(r recipe.Recipe) (Post, error) {
	html, err := RenderHTML(r.Content)
	if err != nil {
		return Post{}, err
	}

	post := Post{Title: r.Title, HTML: html}
	for _, tag := range r.Tags {
		post.Tags = append(post.Tags, Tag{Name: tag})
	}
	if img, ok := r.Image.First(); ok && img.URL != "" {
		post.FeatureImage = img.URL
	}
	return post, nil
}

// RecipeFromPost converts a Ghost post into an unsaved recipe with
// markdown-like content.
func RecipeFromPost(p Post) (recipe.Recipe, error) {
	content, err := htmlToText(p.HTML)
	if err != nil {
		return recipe.Recipe{}, err
	}

	r := recipe.Recipe{Title: strings.TrimSpace(p.Title), Content: content}
	var tags []string
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}
	r.Tags = recipe.NormalizeTags(tags)
	if p.FeatureImage != "" {
		r.Image = recipe.Images{{URL: p.FeatureImage}}
	}
	return r, nil
}

// htmlToText keeps headings, paragraphs and list items, one per line.
func htmlToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse post html: %w", err)
	}

	var lines []string
	doc.Find("h1, h2, h3, h4, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are written by their own match.
		if s.ParentsFiltered("li, blockquote").Length() > 0 && goquery.NodeName(s) == "p" {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2":
			lines = append(lines, "", "## "+text)
		case "h3", "h4":
			lines = append(lines, "", "### "+text)
		case "li":
			if goquery.NodeName(s.Parent()) == "ol" {
				lines = append(lines, fmt.Sprintf("%d. %s", s.Index()+1, text))
			} else {
				lines = append(lines, "- "+text)
			}
		case "blockquote":
			lines = append(lines, "", "> "+text)
		default:
			lines = append(lines, "", text)
		}
	})
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
