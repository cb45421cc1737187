package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

func normalize(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
}

func unmarshalEnum(data []byte, parse func(string) error) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("enum must be a string: %w", err)
	}
	return parse(raw)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
