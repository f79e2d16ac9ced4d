package shared

import "regexp"

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject returns the outermost {...} span of an AI response,
// which models often wrap in prose or code fences.
func ExtractJSONObject(s string) (string, bool) {
	raw := jsonObject.FindString(s)
	return raw, raw != ""
}
