package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bear-kitchen/internal/shared"
)

// DateLayout is the format of WeekPlan.WeekStart.
const DateLayout = "2006-01-02"

// Weekday is a lowercase English day name, the key of a plan's days.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists the days in plan order.
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts a day name in any case, or its three letter prefix.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Weekdays {
		if s == string(d) || (len(s) == 3 && strings.HasPrefix(string(d), s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q: %w", s, shared.ErrValidation)
}

// Days maps each weekday to the recipe ids planned for it, in order.
// The same recipe may appear more than once.
type Days struct {
	Monday    []int64 `json:"monday"`
	Tuesday   []int64 `json:"tuesday"`
	Wednesday []int64 `json:"wednesday"`
	Thursday  []int64 `json:"thursday"`
	Friday    []int64 `json:"friday"`
	Saturday  []int64 `json:"saturday"`
	Sunday    []int64 `json:"sunday"`
}

func (d *Days) slot(day Weekday) *[]int64 {
	switch day {
	case Monday:
		return &d.Monday
	case Tuesday:
		return &d.Tuesday
	case Wednesday:
		return &d.Wednesday
	case Thursday:
		return &d.Thursday
	case Friday:
		return &d.Friday
	case Saturday:
		return &d.Saturday
	case Sunday:
		return &d.Sunday
	}
	return nil
}

// Get returns the recipe ids planned for day.
func (d Days) Get(day Weekday) []int64 {
	if s := d.slot(day); s != nil {
		return *s
	}
	return nil
}

// Add appends id to day.
func (d *Days) Add(day Weekday, id int64) {
	if s := d.slot(day); s != nil {
		*s = append(*s, id)
	}
}

// Remove drops every occurrence of id from day and reports whether any was removed.
func (d *Days) Remove(day Weekday, id int64) bool {
	s := d.slot(day)
	if s == nil {
		return false
	}
	kept := make([]int64, 0, len(*s))
	for _, v := range *s {
		if v != id {
			kept = append(kept, v)
		}
	}
	removed := len(kept) != len(*s)
	*s = kept
	return removed
}

// Empty reports whether no day has a meal.
func (d Days) Empty() bool {
	for _, day := range Weekdays {
		if len(d.Get(day)) > 0 {
			return false
		}
	}
	return true
}

// IDs returns every planned recipe id, in day order, repeats included.
func (d Days) IDs() []int64 {
	var ids []int64
	for _, day := range Weekdays {
		ids = append(ids, d.Get(day)...)
	}
	return ids
}

// MarshalJSON writes every weekday, empty ones as [].
func (d Days) MarshalJSON() ([]byte, error) {
	type plain Days
	out := plain(d)
	for _, day := range Weekdays {
		s := (*Days)(&out).slot(day)
		if *s == nil {
			*s = []int64{}
		}
	}
	return json.Marshal(out)
}

// WeekPlan is the meal plan for one week.
type WeekPlan struct {
	ID           *int64  `json:"id,omitempty"`
	WeekStart    string  `json:"weekStart"`
	Name         *string `json:"name,omitempty"`
	Days         Days    `json:"days"`
	ShoppingList *string `json:"shoppingList,omitempty"`
}

// Persisted reports whether the store has assigned an id.
func (p WeekPlan) Persisted() bool {
	return p.ID != nil
}

// SetID assigns id to the plan.
func (p *WeekPlan) SetID(id int64) {
	p.ID = &id
}

// NewWeekPlan returns an unsaved, empty plan for the week containing weekStart.
func NewWeekPlan(weekStart string) WeekPlan {
	return WeekPlan{WeekStart: weekStart}
}

// MondayOf returns midnight of the Monday of t's week, in t's location.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Sunday belongs to the week that started six days earlier
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeekStartOf returns the WeekStart key for the week containing t.
func WeekStartOf(t time.Time) string {
	return MondayOf(t).Format(DateLayout)
}

// NormalizeWeekStart parses a date (YYYY-MM-DD) or a full RFC 3339 timestamp,
// as written by older backups, and returns the Monday of its week.
// Timestamps are read in the local zone.
func NormalizeWeekStart(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return WeekStartOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return WeekStartOf(t.In(time.Local)), nil
	}
	return "", fmt.Errorf("invalid week start %q: %w", s, shared.ErrValidation)
}
