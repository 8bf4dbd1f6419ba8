package repository

import (
	"encoding/json"
	"fmt"
)

func encodeOccupants(occupants []string) (string, error) {
	if occupants == nil {
		occupants = []string{}
	}
	b, err := json.Marshal(occupants)
	if err != nil {
		return "", fmt.Errorf("failed to encode occupants: %w", err)
	}
	return string(b), nil
}

// decodeOccupants 空串视为空列表
func decodeOccupants(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to decode occupants: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
