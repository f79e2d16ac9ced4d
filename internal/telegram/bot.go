// Package telegram exposes the recipe box through a Telegram bot: photos
// and links become recipes, and a few commands read the week back.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"bear-kitchen/internal/app"
	"bear-kitchen/internal/config"
	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/metrics"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"
	"bear-kitchen/internal/shared"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	ocrCaption     = "ocr"
	maxListed      = 20
	usageDays      = 7
	photoMimeType  = "image/jpeg"
	maxPhotoBytes  = 20 << 20
	defaultTimeout = 2 * time.Minute
)

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Service is the set of app operations reachable from chat.
type Service interface {
	ScanPhoto(ctx context.Context, img llm.ImageInput, target *int64) (recipe.Recipe, error)
	ScanText(ctx context.Context, img llm.ImageInput, target *int64, cleanup bool) (recipe.Recipe, error)
	ClipURL(ctx context.Context, url string) (recipe.Recipe, error)
	SearchRecipes(ctx context.Context, query, tag string) ([]recipe.Recipe, error)
	WeekMeals(ctx context.Context, weekStart string) (planner.WeekPlan, map[planner.Weekday][]recipe.Recipe, error)
	GenerateShoppingList(ctx context.Context, weekStart string) (planner.WeekPlan, error)
	Sync(ctx context.Context) (reconcile.SyncReport, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Health(ctx context.Context) metrics.SysHealth
}

var _ Service = (*app.App)(nil)

// Bot turns Telegram updates into app operations.
type Bot struct {
	api     API
	svc     Service
	cfg     *config.Config
	logger  zerolog.Logger
	files   *resty.Client
	timeout time.Duration

	wg sync.WaitGroup
}

// Connect logs in with the bot token and points Telegram at the webhook URL.
func Connect(cfg *config.Config, logger zerolog.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w: %w", shared.ErrNetwork, err)
	}
	logger.Info().Str("account", api.Self.UserName).Msg("authorized on telegram")

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %q: %w: %w", cfg.TelegramWebhookURL, shared.ErrValidation, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w: %w", cfg.TelegramWebhookURL, shared.ErrNetwork, err)
	}
	logger.Info().Str("description", resp.Description).Msg("webhook set")
	return api, nil
}

// NewBot creates a Bot. Each update is handled within the configured
// network timeout, or two minutes when none is set.
func NewBot(api API, svc Service, cfg *config.Config, logger zerolog.Logger) *Bot {
	timeout := defaultTimeout
	if cfg.NetworkTimeout > 0 {
		timeout = cfg.NetworkTimeout
	}
	return &Bot{
		api:     api,
		svc:     svc,
		cfg:     cfg,
		logger:  logger.With().Str("component", "telegram").Logger(),
		files:   resty.New().SetTimeout(timeout),
		timeout: timeout,
	}
}

// RegisterHandlers adds the webhook endpoint to mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

// Wait blocks until every update already accepted has been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn().Err(err).Msg("unreadable update")
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Telegram retries until the webhook answers, so the work runs after the reply.
	ctx := context.WithoutCancel(r.Context())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, update)
	}()
}

// HandleUpdate processes one update from an allowed user.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !slices.Contains(b.cfg.TelegramAllowedUserIDs, msg.From.ID) {
		b.logger.Warn().Int64("user_id", msg.From.ID).Str("username", msg.From.UserName).Msg("unauthorized access attempt")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	switch {
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case isURL(msg.Text):
		b.handleClip(ctx, msg)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

const helpText = `🐻 *Bear Kitchen*

Send me a photo of a recipe and I will read it into your recipe box. Add the caption _ocr_ to keep the text exactly as printed.
Send me a link to clip a recipe from the web.

/recipes [search] - your recipes
/week - this week's plan
/list - shopping list for this week
/sync - sync with the cloud`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "recipes":
		recipes, err := b.svc.SearchRecipes(ctx, msg.CommandArguments(), "")
		if err != nil {
			b.fail(msg.Chat.ID, "search recipes", err)
			return
		}
		b.reply(msg.Chat.ID, formatRecipes(recipes))
	case "week":
		plan, meals, err := b.svc.WeekMeals(ctx, "")
		if err != nil {
			b.fail(msg.Chat.ID, "load week", err)
			return
		}
		b.reply(msg.Chat.ID, formatWeek(plan, meals))
	case "list":
		status, ok := b.status(msg.Chat.ID, "🛒 *Writing your shopping list...*")
		if !ok {
			return
		}
		plan, err := b.svc.GenerateShoppingList(ctx, "")
		b.finish(msg.Chat.ID, status, "generate shopping list", err, func() string {
			return formatShoppingList(plan)
		})
	case "sync":
		status, ok := b.status(msg.Chat.ID, "☁️ *Syncing...*")
		if !ok {
			return
		}
		report, err := b.svc.Sync(ctx)
		b.finish(msg.Chat.ID, status, "sync", err, func() string {
			return formatSync(report)
		})
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		usage, err := b.svc.Usage(ctx, usageDays)
		if err != nil {
			b.fail(msg.Chat.ID, "load metrics", err)
			return
		}
		b.reply(msg.Chat.ID, formatMetrics(usage, b.svc.Health(ctx)))
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	status, ok := b.status(msg.Chat.ID, "📷 *Reading your recipe...*")
	if !ok {
		return
	}

	img, err := b.downloadPhoto(ctx, msg.Photo)
	if err != nil {
		b.finish(msg.Chat.ID, status, "download photo", err, nil)
		return
	}

	var rec recipe.Recipe
	if strings.EqualFold(strings.TrimSpace(msg.Caption), ocrCaption) {
		rec, err = b.svc.ScanText(ctx, img, nil, false)
	} else {
		rec, err = b.svc.ScanPhoto(ctx, img, nil)
	}
	b.finish(msg.Chat.ID, status, "scan photo", err, func() string {
		return formatSaved(rec)
	})
}

func (b *Bot) handleClip(ctx context.Context, msg *tgbotapi.Message) {
	status, ok := b.status(msg.Chat.ID, "✂️ *Clipping recipe...*")
	if !ok {
		return
	}
	rec, err := b.svc.ClipURL(ctx, strings.TrimSpace(msg.Text))
	b.finish(msg.Chat.ID, status, "clip recipe", err, func() string {
		return formatSaved(rec)
	})
}

// downloadPhoto fetches the largest size Telegram offers.
func (b *Bot) downloadPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize) (llm.ImageInput, error) {
	largest := slices.MaxFunc(sizes, func(x, y tgbotapi.PhotoSize) int {
		return x.Width*x.Height - y.Width*y.Height
	})

	url, err := b.api.GetFileDirectURL(largest.FileID)
	if err != nil {
		return llm.ImageInput{}, fmt.Errorf("failed to resolve photo: %w: %w", shared.ErrNetwork, err)
	}

	resp, err := b.files.R().SetContext(ctx).Get(url)
	if err != nil {
		return llm.ImageInput{}, fmt.Errorf("failed to download photo: %w: %w", shared.ErrNetwork, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return llm.ImageInput{}, fmt.Errorf("failed to download photo: status %d: %w", resp.StatusCode(), shared.ErrNetwork)
	}
	data := resp.Body()
	if len(data) > maxPhotoBytes {
		return llm.ImageInput{}, fmt.Errorf("photo is larger than %d bytes: %w", maxPhotoBytes, shared.ErrValidation)
	}
	return llm.ImageInput{MimeType: photoMimeType, Data: data}, nil
}

// status sends the placeholder that finish later replaces.
func (b *Bot) status(chatID int64, text string) (tgbotapi.Message, bool) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(m)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send status")
		return tgbotapi.Message{}, false
	}
	return sent, true
}

func (b *Bot) finish(chatID int64, status tgbotapi.Message, action string, err error, render func() string) {
	var text string
	if err != nil {
		b.logger.Error().Err(err).Str("action", action).Msg("telegram request failed")
		text = "❌ " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, app.UserMessage(err))
	} else {
		text = render()
	}

	edit := tgbotapi.NewEditMessageText(chatID, status.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to edit status, sending plain text")
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, unescape(text))); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send result")
		}
	}
}

func (b *Bot) fail(chatID int64, action string, err error) {
	b.logger.Error().Err(err).Str("action", action).Msg("telegram request failed")
	b.reply(chatID, "❌ "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, app.UserMessage(err)))
}

func (b *Bot) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(m); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

func isURL(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}
