package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bear-kitchen/internal/app"
	"bear-kitchen/internal/config"
	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/metrics"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	allowedUser = int64(42)
	adminUser   = int64(1)
	chatID      = int64(7)
)

type fakeAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	photoURL  string
	failEdits bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.failEdits {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.photoURL + "/" + fileID, nil
}

// texts returns the text of every message and edit sent so far.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fakeService struct {
	mu      sync.Mutex
	calls   []string
	image   llm.ImageInput
	saved   recipe.Recipe
	scanErr error
	recipes []recipe.Recipe
	list    string
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) ScanPhoto(_ context.Context, img llm.ImageInput, _ *int64) (recipe.Recipe, error) {
	f.record("ScanPhoto")
	f.image = img
	return f.saved, f.scanErr
}

func (f *fakeService) ScanText(_ context.Context, img llm.ImageInput, _ *int64, cleanup bool) (recipe.Recipe, error) {
	f.record(fmt.Sprintf("ScanText cleanup=%v", cleanup))
	f.image = img
	return f.saved, f.scanErr
}

func (f *fakeService) ClipURL(_ context.Context, url string) (recipe.Recipe, error) {
	f.record("ClipURL " + url)
	return f.saved, nil
}

func (f *fakeService) SearchRecipes(_ context.Context, query, _ string) ([]recipe.Recipe, error) {
	f.record("SearchRecipes " + query)
	return f.recipes, nil
}

func (f *fakeService) WeekMeals(context.Context, string) (planner.WeekPlan, map[planner.Weekday][]recipe.Recipe, error) {
	f.record("WeekMeals")
	plan := planner.NewWeekPlan("2024-01-01")
	plan.Days.Add(planner.Monday, 1)
	return plan, map[planner.Weekday][]recipe.Recipe{planner.Monday: {{Title: "Tacos"}}}, nil
}

func (f *fakeService) GenerateShoppingList(context.Context, string) (planner.WeekPlan, error) {
	f.record("GenerateShoppingList")
	list := f.list
	if list == "" {
		list = "- tortillas\n- cheese"
	}
	return planner.WeekPlan{WeekStart: "2024-01-01", ShoppingList: &list}, nil
}

func (f *fakeService) Sync(context.Context) (reconcile.SyncReport, error) {
	f.record("Sync")
	return reconcile.SyncReport{Merged: reconcile.Result{Added: 2, Replaced: 1}, Uploaded: 5}, nil
}

func (f *fakeService) Usage(context.Context, int) ([]metrics.DailyUsage, error) {
	f.record("Usage")
	return []metrics.DailyUsage{{Date: "2024-01-03", TotalPrompt: 100, TotalCompletion: 20, TotalExecution: 2}}, nil
}

func (f *fakeService) Health(context.Context) metrics.SysHealth {
	return metrics.SysHealth{Status: "ok", SchemaVersion: 5, DataDiskSize: "1.0 KB"}
}

func newTestBot(api *fakeAPI, svc *fakeService) *Bot {
	cfg := &config.Config{
		TelegramAllowedUserIDs: []int64{allowedUser, adminUser},
		AdminTelegramID:        adminUser,
	}
	return NewBot(api, svc, cfg, zerolog.Nop())
}

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestHandleUpdate_IgnoresUnknownUsers(t *testing.T) {
	api, svc := &fakeAPI{}, &fakeService{}
	bot := newTestBot(api, svc)

	bot.HandleUpdate(context.Background(), message(99, "https://example.com/soup"))

	if len(api.texts()) != 0 {
		t.Errorf("expected no replies, got %v", api.texts())
	}
	if len(svc.called()) != 0 {
		t.Errorf("expected no service calls, got %v", svc.called())
	}
}

func TestHandleUpdate_ClipsLinks(t *testing.T) {
	id := int64(3)
	api := &fakeAPI{}
	svc := &fakeService{saved: recipe.Recipe{ID: &id, Title: "Tomato Soup", Tags: []string{"soup"}}}
	bot := newTestBot(api, svc)

	bot.HandleUpdate(context.Background(), message(allowedUser, " https://example.com/soup "))

	if got := svc.called(); len(got) != 1 || got[0] != "ClipURL https://example.com/soup" {
		t.Fatalf("unexpected calls: %v", got)
	}
	texts := api.texts()
	if len(texts) != 2 {
		t.Fatalf("expected status and result, got %v", texts)
	}
	if !strings.Contains(texts[0], "Clipping recipe") {
		t.Errorf("unexpected status %q", texts[0])
	}
	if !strings.Contains(texts[1], "*Title:* Tomato Soup") || !strings.Contains(texts[1], "*ID:* 3") {
		t.Errorf("unexpected result %q", texts[1])
	}
}

func TestHandleUpdate_Photo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/large" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	photo := func(caption string) tgbotapi.Update {
		u := message(allowedUser, "")
		u.Message.Caption = caption
		u.Message.Photo = []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 960},
			{FileID: "medium", Width: 320, Height: 240},
		}
		return u
	}

	t.Run("vision", func(t *testing.T) {
		api, svc := &fakeAPI{photoURL: srv.URL}, &fakeService{saved: recipe.Recipe{Title: "Bigos"}}
		newTestBot(api, svc).HandleUpdate(context.Background(), photo(""))

		if got := svc.called(); len(got) != 1 || got[0] != "ScanPhoto" {
			t.Fatalf("unexpected calls: %v", got)
		}
		if string(svc.image.Data) != "jpeg-bytes" || svc.image.MimeType != "image/jpeg" {
			t.Errorf("unexpected image %q (%s)", svc.image.Data, svc.image.MimeType)
		}
		if !strings.Contains(api.last(), "Bigos") {
			t.Errorf("unexpected result %q", api.last())
		}
	})

	t.Run("ocr caption", func(t *testing.T) {
		api, svc := &fakeAPI{photoURL: srv.URL}, &fakeService{}
		newTestBot(api, svc).HandleUpdate(context.Background(), photo(" OCR "))

		if got := svc.called(); len(got) != 1 || got[0] != "ScanText cleanup=false" {
			t.Fatalf("unexpected calls: %v", got)
		}
	})

	t.Run("failure is reported", func(t *testing.T) {
		api, svc := &fakeAPI{photoURL: srv.URL}, &fakeService{scanErr: app.ErrNoText}
		newTestBot(api, svc).HandleUpdate(context.Background(), photo("ocr"))

		if !strings.Contains(api.last(), "Could not find any clear text in the photo.") {
			t.Errorf("unexpected result %q", api.last())
		}
	})
}

func TestHandleUpdate_Commands(t *testing.T) {
	tests := []struct {
		name string
		from int64
		text string
		call string
		want string
	}{
		{"recipes", allowedUser, "/recipes soup", "SearchRecipes soup", "No recipes found"},
		{"week", allowedUser, "/week", "WeekMeals", "*Monday*: Tacos"},
		{"list", allowedUser, "/list", "GenerateShoppingList", "- tortillas"},
		{"sync", allowedUser, "/sync", "Sync", "2 added, 1 updated"},
		{"metrics", adminUser, "/metrics", "Usage", "120 tokens (2 execs)"},
		{"metrics denied", allowedUser, "/metrics", "", "Admin only"},
		{"unknown", allowedUser, "/start", "", "Bear Kitchen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, svc := &fakeAPI{}, &fakeService{}
			newTestBot(api, svc).HandleUpdate(context.Background(), message(tt.from, tt.text))

			calls := svc.called()
			if tt.call == "" && len(calls) != 0 {
				t.Errorf("expected no service calls, got %v", calls)
			}
			if tt.call != "" && (len(calls) == 0 || calls[0] != tt.call) {
				t.Errorf("expected call %q, got %v", tt.call, calls)
			}
			if !strings.Contains(api.last(), tt.want) {
				t.Errorf("reply %q does not contain %q", api.last(), tt.want)
			}
		})
	}
}

func TestHandleUpdate_ShoppingListMarkup(t *testing.T) {
	list := "- extra_virgin olive oil\n- 2*3 eggs\n- [optional] chives"

	t.Run("EscapesListText", func(t *testing.T) {
		api, svc := &fakeAPI{}, &fakeService{list: list}
		newTestBot(api, svc).HandleUpdate(context.Background(), message(allowedUser, "/list"))

		api.mu.Lock()
		edit, ok := api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
		api.mu.Unlock()
		if !ok {
			t.Fatalf("expected the status message to be edited, got %T", api.sent[len(api.sent)-1])
		}
		if edit.ParseMode != tgbotapi.ModeMarkdown {
			t.Errorf("expected markdown edit, got %q", edit.ParseMode)
		}
		for _, want := range []string{`extra\_virgin`, `2\*3`, `\[optional]`} {
			if !strings.Contains(edit.Text, want) {
				t.Errorf("edit %q does not contain %q", edit.Text, want)
			}
		}
	})

	t.Run("FallsBackToPlainMessage", func(t *testing.T) {
		api, svc := &fakeAPI{failEdits: true}, &fakeService{list: list}
		newTestBot(api, svc).HandleUpdate(context.Background(), message(allowedUser, "/list"))

		api.mu.Lock()
		msg, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
		count := len(api.sent)
		api.mu.Unlock()
		if !ok || count != 2 {
			t.Fatalf("expected status plus a fallback message, got %d sends", count)
		}
		if msg.ParseMode != "" {
			t.Errorf("expected a plain fallback, got parse mode %q", msg.ParseMode)
		}
		if !strings.Contains(msg.Text, "extra_virgin olive oil") {
			t.Errorf("fallback %q lost the list", msg.Text)
		}
	})
}

func TestWebhook(t *testing.T) {
	api, svc := &fakeAPI{}, &fakeService{}
	bot := newTestBot(api, svc)
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":42},"chat":{"id":7},"text":"https://example.com/r"}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	bot.Wait()

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := svc.called(); len(got) != 1 || got[0] != "ClipURL https://example.com/r" {
		t.Errorf("unexpected calls: %v", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a broken update, got %d", rec.Code)
	}
}

func TestFormatRecipes_Truncates(t *testing.T) {
	var recipes []recipe.Recipe
	for i := range 25 {
		id := int64(i + 1)
		recipes = append(recipes, recipe.Recipe{ID: &id, Title: fmt.Sprintf("Dish_%d", i+1)})
	}

	out := formatRecipes(recipes)

	if !strings.Contains(out, "📖 *Recipes* (25)") {
		t.Error("Missing header")
	}
	if !strings.Contains(out, `1. Dish\_1`) {
		t.Errorf("Titles must be escaped: %q", out)
	}
	if strings.Contains(out, "Dish\\_21") {
		t.Error("Listed more than the limit")
	}
	if !strings.Contains(out, "...and 5 more") {
		t.Error("Missing overflow note")
	}
}

func TestFormatWeek_Empty(t *testing.T) {
	name := "Holiday"
	plan := planner.WeekPlan{WeekStart: "2024-01-01", Name: &name}

	out := formatWeek(plan, nil)

	if !strings.Contains(out, "📅 *Weekly Meal Plan*: Holiday") {
		t.Errorf("Missing header in %q", out)
	}
	if !strings.Contains(out, "_Week of 2024-01-01_") || !strings.Contains(out, "Nothing planned yet.") {
		t.Errorf("Unexpected body %q", out)
	}
}
