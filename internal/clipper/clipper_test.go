package clipper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

// --- Mocks ---
type MockExtractor struct {
	Draft      recipe.Draft
	Err        error
	LastSource string
	LastText   string
}

func (m *MockExtractor) FromText(ctx context.Context, source, text string) (recipe.ExtractorResult, error) {
	m.LastSource = source
	m.LastText = text
	if m.Err != nil {
		return recipe.ExtractorResult{}, m.Err
	}
	return recipe.ExtractorResult{Draft: m.Draft, Meta: shared.AgentMeta{AgentName: "TextExtractor"}}, nil
}

func strPtr(s string) *string { return &s }

const dirtyPage = `
<html>
	<head>
		<title>Grandma's Tasty Recipe</title>
		<meta property="og:image" content="https://example.com/pie.jpg">
		<script>alert('bad');</script>
	</head>
	<body>
		<nav>Home | About</nav>
		<h1>Tasty Recipe</h1>
		<div class="ads">Buy stuff!</div>
		<p>Mix flour and water.</p>
		<script>more_bad_stuff()</script>
		<footer>Copyright 2024</footer>
	</body>
</html>`

// --- Tests ---

func TestFetchAndClean(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dirtyPage))
	}))
	defer ts.Close()

	c := NewClipper(&MockExtractor{}, time.Second)

	page, err := c.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, noise := range []string{"alert('bad')", "Buy stuff!", "Copyright 2024", "Home | About"} {
		if strings.Contains(page.Text, noise) {
			t.Errorf("Expected %q to be removed", noise)
		}
	}
	if !strings.Contains(page.Text, "Tasty Recipe") {
		t.Error("Expected to find 'Tasty Recipe'")
	}
	if !strings.Contains(page.Text, "Mix flour and water.") {
		t.Error("Expected to find body content")
	}
	if page.Title != "Grandma's Tasty Recipe" {
		t.Errorf("Unexpected title %q", page.Title)
	}
	if page.Image != "https://example.com/pie.jpg" {
		t.Errorf("Unexpected image %q", page.Image)
	}
}

func TestFetch_NonOKIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewClipper(&MockExtractor{}, time.Second).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, shared.ErrNetwork) {
		t.Fatalf("Expected ErrNetwork, got %v", err)
	}
}

func TestClipURL_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dirtyPage))
	}))
	defer ts.Close()

	mock := &MockExtractor{Draft: recipe.Draft{
		Title:   strPtr("Mock Pie"),
		Content: strPtr("## Ingredients\n- Apple\n"),
		Tags:    &[]string{"Dessert"},
	}}
	c := NewClipper(mock, time.Second)

	result, err := c.ClipURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ClipURL failed: %v", err)
	}

	rec := result.Recipe
	if rec.Title != "Mock Pie" {
		t.Errorf("Expected title 'Mock Pie', got '%s'", rec.Title)
	}
	want := "## Ingredients\n- Apple\n\n*Source: [" + ts.URL + "](" + ts.URL + ")*"
	if rec.Content != want {
		t.Errorf("Unexpected content %q", rec.Content)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "dessert" {
		t.Errorf("Expected normalized tags, got %v", rec.Tags)
	}
	if img, ok := rec.Image.First(); !ok || img.URL != "https://example.com/pie.jpg" {
		t.Errorf("Expected the page image, got %v", rec.Image)
	}
	if rec.Persisted() {
		t.Error("A clipped recipe must not be saved by the clipper")
	}
	if mock.LastSource != ts.URL {
		t.Errorf("Expected the URL as source, got %q", mock.LastSource)
	}
	if result.Meta.AgentName != "TextExtractor" {
		t.Errorf("Expected meta to be carried, got %+v", result.Meta)
	}
}

func TestClipURL_MissingTitleFallsBackToPageTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dirtyPage))
	}))
	defer ts.Close()

	c := NewClipper(&MockExtractor{Draft: recipe.Draft{Content: strPtr("Mix.")}}, time.Second)

	result, err := c.ClipURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ClipURL failed: %v", err)
	}
	if result.Recipe.Title != "Grandma's Tasty Recipe" {
		t.Errorf("Expected page title, got %q", result.Recipe.Title)
	}
}

func TestClipURL_ExtractorError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dirtyPage))
	}))
	defer ts.Close()

	c := NewClipper(&MockExtractor{Err: fmt.Errorf("bad reply: %w", shared.ErrParse)}, time.Second)

	_, err := c.ClipURL(context.Background(), ts.URL)
	if !errors.Is(err, shared.ErrParse) {
		t.Fatalf("Expected ErrParse, got %v", err)
	}
}

func TestWithSource(t *testing.T) {
	if got := withSource("", "http://x"); got != "*Source: [http://x](http://x)*" {
		t.Errorf("Unexpected %q", got)
	}
}
