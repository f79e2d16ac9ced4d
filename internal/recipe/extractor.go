package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

//go:embed photo_prompt.md
var photoPrompt string

// Draft is what the AI could read. A nil field means "leave the existing value alone".
type Draft struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// ApplyTo copies the fields the draft carries into r.
func (d Draft) ApplyTo(r *Recipe) {
	if d.Title != nil && *d.Title != "" {
		r.Title = *d.Title
	}
	if d.Content != nil {
		r.Content = *d.Content
	}
	if d.Tags != nil {
		r.Tags = NormalizeTags(*d.Tags)
	}
}

type ExtractorResult struct {
	Draft Draft
	Meta  shared.AgentMeta
}

// Extractor turns photos and raw text into recipe drafts.
type Extractor struct {
	vision  llm.VisionGenerator
	textGen llm.TextGenerator
	timeout time.Duration
}

// NewExtractor creates an Extractor. Either generator may be nil; the matching
// method then fails with shared.ErrValidation. A positive timeout bounds every call.
func NewExtractor(vision llm.VisionGenerator, textGen llm.TextGenerator, timeout time.Duration) *Extractor {
	return &Extractor{vision: vision, textGen: textGen, timeout: timeout}
}

// FromPhoto asks the vision model to read a recipe photo.
func (e *Extractor) FromPhoto(ctx context.Context, img llm.ImageInput) (ExtractorResult, error) {
	if e.vision == nil {
		return ExtractorResult{}, fmt.Errorf("photo extraction is not configured: %w", shared.ErrValidation)
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	start := time.Now()
	resp, err := e.vision.GenerateFromImage(ctx, img, photoPrompt)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	return buildResult("PhotoExtractor", resp, start)
}

// FromText asks the text model to clean up raw recipe text. source names
// where the text came from, such as a URL; empty means OCR.
func (e *Extractor) FromText(ctx context.Context, source, text string) (ExtractorResult, error) {
	if e.textGen == nil {
		return ExtractorResult{}, fmt.Errorf("text extraction is not configured: %w", shared.ErrValidation)
	}

	prompt, err := buildExtractorPrompt(source, text)
	if err != nil {
		return ExtractorResult{}, err
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	start := time.Now()
	resp, err := e.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	return buildResult("TextExtractor", resp, start)
}

func (e *Extractor) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

func buildResult(agent string, resp llm.ContentResponse, start time.Time) (ExtractorResult, error) {
	meta := shared.AgentMeta{
		AgentName: agent,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	draft, err := ParseDraft(resp.Content)
	if err != nil {
		return ExtractorResult{Meta: meta}, err
	}
	return ExtractorResult{Draft: draft, Meta: meta}, nil
}

// ParseDraft reads the first JSON object in an AI response.
func ParseDraft(content string) (Draft, error) {
	raw, ok := shared.ExtractJSONObject(content)
	if !ok {
		return Draft{}, fmt.Errorf("no JSON object in AI response: %w", shared.ErrParse)
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Draft{}, fmt.Errorf("failed to unmarshal AI response: %w: %w", shared.ErrParse, err)
	}
	return d, nil
}

func buildExtractorPrompt(source, text string) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := struct{ Source, Text string }{source, text}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
