package keyboard

import (
	"fmt"
	"strings"
)

// Callback actions
const (
	ActionCategory = "cat"
	ActionRate     = "rate"

	// CategoryAuto is the category value that clears a pinned category
	CategoryAuto = "auto"
)

// CallbackData represents parsed callback data
type CallbackData struct {
	Action string
	Value  string
}

// ParseCallback parses callback data string
func ParseCallback(data string) (*CallbackData, error) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, fmt.Errorf("invalid callback format: %s", data)
	}

	return &CallbackData{
		Action: parts[0],
		Value:  parts[1],
	}, nil
}

// EncodeCallback creates callback data string
func EncodeCallback(action, value string) string {
	return fmt.Sprintf("%s:%s", action, value)
}

// ParseRating splits a rate callback value into query id and rating
func ParseRating(value string) (string, int, error) {
	queryID, raw, ok := strings.Cut(value, ":")
	if !ok || queryID == "" {
		return "", 0, fmt.Errorf("invalid rating callback: %s", value)
	}

	var rating int
	if _, err := fmt.Sscanf(raw, "%d", &rating); err != nil {
		return "", 0, fmt.Errorf("invalid rating %q: %w", raw, err)
	}
	return queryID, rating, nil
}
