package recipe

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Recipe is a stored recipe. Timestamps are milliseconds since the epoch.
type Recipe struct {
	ID        *int64   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Content   string   `json:"content"` // markdown
	Tags      []string `json:"tags"`
	Image     Images   `json:"image"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	SyncedAt  *int64   `json:"syncedAt,omitempty"`
}

// Persisted reports whether the store has assigned an id.
func (r Recipe) Persisted() bool {
	return r.ID != nil
}

// IDValue returns the id or 0 when the recipe has not been persisted.
func (r Recipe) IDValue() int64 {
	if r.ID == nil {
		return 0
	}
	return *r.ID
}

// SetID assigns id to the recipe.
func (r *Recipe) SetID(id int64) {
	r.ID = &id
}

// WithoutID returns a copy of r with no id, so the store treats it as new.
func (r Recipe) WithoutID() Recipe {
	r.ID = nil
	return r
}

// Matches reports whether query appears in the title or any tag, ignoring case.
func (r Recipe) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), q) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Patch holds the fields to merge into an existing recipe. Nil fields are left untouched.
type Patch struct {
	Title     *string
	Content   *string
	Tags      *[]string
	Image     *Images
	CreatedAt *int64
	UpdatedAt *int64
	SyncedAt  *int64
}

// Apply merges the non-nil fields of p into r.
func (p Patch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Tags != nil {
		r.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Image != nil {
		r.Image = append(Images(nil), (*p.Image)...)
	}
	if p.CreatedAt != nil {
		r.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = *p.UpdatedAt
	}
	if p.SyncedAt != nil {
		v := *p.SyncedAt
		r.SyncedAt = &v
	}
}

// NormalizeTags trims and lowercases tags and drops empty and repeated ones,
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Image is either a URL reference or embedded bytes.
type Image struct {
	URL      string
	MimeType string
	Data     []byte
}

// Empty reports whether the image references nothing.
func (i Image) Empty() bool {
	return i.URL == "" && len(i.Data) == 0
}

type embeddedImage struct {
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// MarshalJSON writes a URL reference as a string and embedded bytes as
// {"mimeType": ..., "data": <base64>}. An image carrying both keeps its
// URL in the object's "url" field.
func (i Image) MarshalJSON() ([]byte, error) {
	if len(i.Data) > 0 {
		return json.Marshal(embeddedImage{
			URL:      i.URL,
			MimeType: i.MimeType,
			Data:     base64.StdEncoding.EncodeToString(i.Data),
		})
	}
	return json.Marshal(i.URL)
}

func (i *Image) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*i = Image{}
		return nil
	}
	if b[0] == '"' {
		var url string
		if err := json.Unmarshal(b, &url); err != nil {
			return err
		}
		*i = Image{URL: url}
		return nil
	}

	var e embeddedImage
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return fmt.Errorf("invalid image data: %w", err)
	}
	if len(data) == 0 {
		data = nil
	}
	*i = Image{URL: e.URL, MimeType: e.MimeType, Data: data}
	return nil
}

// Images is the ordered list of a recipe's images, possibly empty.
type Images []Image

// First returns the first non-empty image.
func (imgs Images) First() (Image, bool) {
	for _, img := range imgs {
		if !img.Empty() {
			return img, true
		}
	}
	return Image{}, false
}

func (imgs Images) MarshalJSON() ([]byte, error) {
	if len(imgs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]Image(imgs))
}

// UnmarshalJSON reads a list of images. Older documents stored a single
// image value; it becomes a one element list. Null and empty entries are skipped.
func (imgs *Images) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*imgs = nil
		return nil
	}

	var raw []json.RawMessage
	if b[0] == '[' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		raw = []json.RawMessage{b}
	}

	var out Images
	for _, r := range raw {
		var img Image
		if err := img.UnmarshalJSON(r); err != nil {
			return err
		}
		if img.Empty() {
			continue
		}
		out = append(out, img)
	}
	*imgs = out
	return nil
}
