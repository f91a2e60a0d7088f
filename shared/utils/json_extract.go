package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSONObject pulls a JSON object out of free-form model output.
// It tries a fenced code block first, then the span between the first '{' and the last '}'.
// An empty string means nothing parseable was found.
func ExtractJSONObject(rawText string) string {
	rawText = strings.TrimSpace(rawText)
	if isValidJSON(rawText) {
		return rawText
	}

	if matches := fencedBlockRegex.FindStringSubmatch(rawText); len(matches) > 1 {
		if candidate := strings.TrimSpace(matches[1]); isValidJSON(candidate) {
			return candidate
		}
	}

	first := strings.Index(rawText, "{")
	last := strings.LastIndex(rawText, "}")
	if first != -1 && last > first {
		if candidate := rawText[first : last+1]; isValidJSON(candidate) {
			return candidate
		}
	}
	return ""
}

// StringShort truncates s to maxLen, marking the cut with an ellipsis.
func StringShort(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

func isValidJSON(s string) bool {
	var js json.RawMessage
	return s != "" && json.Unmarshal([]byte(s), &js) == nil
}
