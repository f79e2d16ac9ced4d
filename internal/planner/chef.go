package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

//go:embed chef_prompt.md
var chefPrompt string

var chefTemplate = template.Must(template.New("chef").Parse(chefPrompt))

type ChefResult struct {
	ShoppingList string
	Meta         shared.AgentMeta
}

// Chef writes shopping lists for planned meals.
type Chef struct {
	textGen llm.TextGenerator
	timeout time.Duration
}

// NewChef creates a Chef. A positive timeout bounds every call.
func NewChef(textGen llm.TextGenerator, timeout time.Duration) *Chef {
	return &Chef{textGen: textGen, timeout: timeout}
}

type plannedDish struct {
	Title   string
	Content string
	Times   int
}

// ShoppingList asks the model for one consolidated list covering meals.
// A recipe appearing several times in meals counts several times.
func (c *Chef) ShoppingList(ctx context.Context, meals []recipe.Recipe) (ChefResult, error) {
	if len(meals) == 0 {
		return ChefResult{}, ErrEmptyPlan
	}

	prompt, err := buildChefPrompt(meals)
	if err != nil {
		return ChefResult{}, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ChefResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := shared.AgentMeta{
		AgentName: "Chef",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	raw, ok := shared.ExtractJSONObject(resp.Content)
	if !ok {
		return ChefResult{Meta: meta}, fmt.Errorf("no JSON object in shopping list response: %w", shared.ErrParse)
	}
	var out struct {
		ShoppingList string `json:"shoppingList"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ChefResult{Meta: meta}, fmt.Errorf("failed to parse shopping list: %w: %w", shared.ErrParse, err)
	}
	if out.ShoppingList == "" {
		return ChefResult{Meta: meta}, fmt.Errorf("shopping list response is empty: %w", shared.ErrParse)
	}

	return ChefResult{ShoppingList: out.ShoppingList, Meta: meta}, nil
}

func buildChefPrompt(meals []recipe.Recipe) (string, error) {
	var dishes []plannedDish
	index := make(map[int64]int)
	for _, m := range meals {
		if i, ok := index[m.IDValue()]; ok && m.Persisted() {
			dishes[i].Times++
			continue
		}
		index[m.IDValue()] = len(dishes)
		dishes = append(dishes, plannedDish{Title: m.Title, Content: m.Content, Times: 1})
	}

	var buf bytes.Buffer
	if err := chefTemplate.Execute(&buf, dishes); err != nil {
		return "", err
	}
	return buf.String(), nil
}
