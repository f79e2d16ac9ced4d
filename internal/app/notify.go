package app

import (
	"context"
	"errors"
	"strings"

	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/shared"
)

// UserMessage turns an error into the short notification shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, planner.ErrEmptyPlan):
		return "Add some recipes to your week first."
	case errors.Is(err, ErrNoText):
		return "Could not find any clear text in the photo."
	case errors.Is(err, shared.ErrValidation):
		return capitalize(strings.TrimSuffix(err.Error(), ": "+shared.ErrValidation.Error())) + "."
	case errors.Is(err, shared.ErrNotFound):
		return "That recipe or plan does not exist anymore."
	case errors.Is(err, shared.ErrParse):
		return "That could not be read. The file or the AI answer was not in the expected format."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again."
	case errors.Is(err, shared.ErrNetwork):
		return "Could not reach the service. Check your connection and try again."
	case errors.Is(err, shared.ErrStorage):
		return "Saving failed: local storage is not available."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
