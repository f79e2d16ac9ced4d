package telegram

import (
	"fmt"
	"strings"
	"time"

	"bear-kitchen/internal/metrics"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

var unescaper = strings.NewReplacer(`\_`, "_", `\*`, "*", "\\`", "`", `\[`, "[")

// unescape reverses escape for messages sent without a parse mode.
func unescape(s string) string {
	return unescaper.Replace(s)
}

func formatSaved(r recipe.Recipe) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ *Recipe Saved!*\n\n*Title:* %s\n*ID:* %d", escape(r.Title), r.IDValue())
	if len(r.Tags) > 0 {
		fmt.Fprintf(&sb, "\n*Tags:* %s", escape(strings.Join(r.Tags, ", ")))
	}
	return sb.String()
}

func formatRecipes(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "📭 No recipes found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 *Recipes* (%d)\n\n", len(recipes))
	for i, r := range recipes {
		if i == maxListed {
			fmt.Fprintf(&sb, "_...and %d more_\n", len(recipes)-maxListed)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", r.IDValue(), escape(r.Title))
	}
	return sb.String()
}

func formatWeek(plan planner.WeekPlan, meals map[planner.Weekday][]recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*")
	if plan.Name != nil && *plan.Name != "" {
		fmt.Fprintf(&sb, ": %s", escape(*plan.Name))
	}
	fmt.Fprintf(&sb, "\n_Week of %s_\n\n", plan.WeekStart)

	if plan.Days.Empty() {
		sb.WriteString("Nothing planned yet.")
		return sb.String()
	}

	for _, day := range planner.Weekdays {
		dishes := meals[day]
		if len(dishes) == 0 {
			continue
		}
		titles := make([]string, len(dishes))
		for i, d := range dishes {
			titles[i] = escape(d.Title)
		}
		fmt.Fprintf(&sb, "*%s*: %s\n", dayName(day), strings.Join(titles, ", "))
	}
	return sb.String()
}

func formatShoppingList(plan planner.WeekPlan) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if plan.ShoppingList == nil || strings.TrimSpace(*plan.ShoppingList) == "" {
		sb.WriteString("_Empty_")
		return sb.String()
	}
	sb.WriteString(escape(*plan.ShoppingList))
	return sb.String()
}

func formatSync(r reconcile.SyncReport) string {
	return fmt.Sprintf("☁️ *Synced*\n\n• From cloud: %d added, %d updated\n• Uploaded: %d recipes\n• At: %s",
		r.Merged.Added, r.Merged.Replaced, r.Uploaded,
		time.UnixMilli(r.SyncedAt).Format("2006-01-02 15:04"))
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• Status: %s (schema v%d)\n", health.Status, health.SchemaVersion)
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func dayName(d planner.Weekday) string {
	s := string(d)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
