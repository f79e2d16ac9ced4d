// Package ghost publishes recipes to a Ghost blog and reads them back.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bear-kitchen/internal/config"
	"bear-kitchen/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Tag is a Ghost post tag.
type Tag struct {
	Name string `json:"name"`
}

// Post represents a single recipe post from the Ghost API.
type Post struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	HTML         string `json:"html,omitempty"`
	Status       string `json:"status,omitempty"`
	FeatureImage string `json:"feature_image,omitempty"`
	Tags         []Tag  `json:"tags,omitempty"`
	URL          string `json:"url,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
}

// Client is an interface for a Ghost API client (Content & Admin).
type Client interface {
	FetchRecipes(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, post Post, publish bool) (*Post, error)
}

// ghostClient is the concrete implementation of the Ghost API client.
type ghostClient struct {
	httpClient *http.Client
	config     *config.Config
}

// NewClient creates a new Ghost API client.
func NewClient(cfg *config.Config) Client {
	timeout := cfg.NetworkTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ghostClient{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// FetchRecipes fetches all posts (recipes) from the Ghost Content API.
func (c *ghostClient) FetchRecipes(ctx context.Context) ([]Post, error) {
	url := fmt.Sprintf("%s/ghost/api/v3/content/posts/?key=%s&include=tags&limit=all", c.config.GhostURL, c.config.GhostContentKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api error: status %d: %w", resp.StatusCode, shared.ErrNetwork)
	}

	var postsResponse PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w: %w", shared.ErrParse, err)
	}

	return postsResponse.Posts, nil
}

// CreatePost creates a new post using the Ghost Admin API.
func (c *ghostClient) CreatePost(ctx context.Context, post Post, publish bool) (*Post, error) {
	token, err := c.createAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	post.Status = "draft"
	if publish {
		post.Status = "published"
	}

	body, err := json.Marshal(PostsResponse{Posts: []Post{post}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}
	url := fmt.Sprintf("%s/ghost/api/v3/admin/posts/?source=html", c.config.GhostURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v: %w", resp.StatusCode, errResp, shared.ErrNetwork)
	}

	var response PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w: %w", shared.ErrParse, err)
	}

	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api: %w", shared.ErrParse)
	}

	return &response.Posts[0], nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *ghostClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.config.GhostAdminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret: %w", shared.ErrValidation)
	}

	id := keyParts[0]
	secretHex := keyParts[1]

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w: %w", shared.ErrValidation, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v3/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts recipe markdown to the HTML Ghost stores.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
