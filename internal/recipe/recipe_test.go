package recipe

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Dinner", "polish", "dinner ", "", "  ", "POLISH", "quick"})
	want := []string{"dinner", "polish", "quick"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPatchApply(t *testing.T) {
	rec := Recipe{Title: "Pancakes", Content: "mix, fry", Tags: []string{"breakfast"}, CreatedAt: 1, UpdatedAt: 2}

	content := "mix, rest, fry"
	Patch{Content: &content}.Apply(&rec)

	if rec.Title != "Pancakes" {
		t.Errorf("Expected title to stay 'Pancakes', got '%s'", rec.Title)
	}
	if rec.Content != content {
		t.Errorf("Expected content '%s', got '%s'", content, rec.Content)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "breakfast" {
		t.Errorf("Expected tags to be untouched, got %v", rec.Tags)
	}
}

func TestRecipeMatches(t *testing.T) {
	rec := Recipe{Title: "Fluffy Pancakes", Tags: []string{"breakfast", "sweet"}}

	tests := map[string]bool{
		"":        true,
		"pancake": true,
		"SWEET":   true,
		"soup":    false,
	}
	for query, want := range tests {
		if got := rec.Matches(query); got != want {
			t.Errorf("Matches(%q) = %v, want %v", query, got, want)
		}
	}
}

func TestImagesJSON(t *testing.T) {
	t.Run("RoundTripsEmbeddedBytes", func(t *testing.T) {
		in := Images{
			{URL: "https://example.com/a.jpg"},
			{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8, 0x00, 0x01, 0xfe}},
		}

		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		var out Images
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("Expected %+v, got %+v", in, out)
		}
	})

	t.Run("KeepsURLWithEmbeddedBytes", func(t *testing.T) {
		in := Image{URL: "https://example.com/c.png", MimeType: "image/png", Data: []byte{1, 2, 3}}

		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		want := `{"url":"https://example.com/c.png","mimeType":"image/png","data":"AQID"}`
		if string(data) != want {
			t.Errorf("Expected %s, got %s", want, data)
		}

		var out Image
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("Expected %+v, got %+v", in, out)
		}

		plain, _ := json.Marshal(Image{MimeType: "image/png", Data: []byte{1, 2, 3}})
		if string(plain) != `{"mimeType":"image/png","data":"AQID"}` {
			t.Errorf("Expected no url field for a plain blob, got %s", plain)
		}
	})

	t.Run("EmptyMarshalsAsArray", func(t *testing.T) {
		data, err := json.Marshal(Recipe{Title: "x"})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if string(raw["image"]) != "[]" {
			t.Errorf("Expected image to be [], got %s", raw["image"])
		}
		if _, ok := raw["id"]; ok {
			t.Error("Expected id to be omitted for an unsaved recipe")
		}
	})

	tests := []struct {
		name string
		doc  string
		want Images
	}{
		{"LegacySingleURL", `"https://example.com/one.jpg"`, Images{{URL: "https://example.com/one.jpg"}}},
		{"LegacySingleBlob", `{"mimeType":"image/png","data":"AQID"}`, Images{{MimeType: "image/png", Data: []byte{1, 2, 3}}}},
		{"Null", `null`, nil},
		{"SkipsNullAndEmptyEntries", `[null, "", {}, "https://example.com/two.jpg"]`, Images{{URL: "https://example.com/two.jpg"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Images
			if err := json.Unmarshal([]byte(tt.doc), &got); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(tt.want, got) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}

	t.Run("InvalidBase64", func(t *testing.T) {
		var got Images
		if err := json.Unmarshal([]byte(`[{"mimeType":"image/png","data":"%%%"}]`), &got); err == nil {
			t.Fatal("Expected an error for invalid image data, got nil")
		}
	})
}

func TestImagesFirst(t *testing.T) {
	imgs := Images{{}, {URL: "https://example.com/b.jpg"}}
	first, ok := imgs.First()
	if !ok || first.URL != "https://example.com/b.jpg" {
		t.Errorf("Expected the first non-empty image, got %+v (ok=%v)", first, ok)
	}

	if _, ok := Images(nil).First(); ok {
		t.Error("Expected no image from an empty list")
	}
}
