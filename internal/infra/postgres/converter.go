package postgres

import (
	"encoding/json"
	"fmt"
)

// encodeRaw はプロバイダの生フィールドを JSONB 用にエンコードする
func encodeRaw(raw map[string]any) ([]byte, error) {
	if raw == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw place fields: %w", err)
	}
	return b, nil
}

// decodeRaw は JSONB の生フィールドをデコードする
func decodeRaw(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode raw place fields: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}
