package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/adwaith-rk/threadly/internal/utils"
)

// GenerateState encodes OAuth round-trip data plus a random nonce into an
// opaque state string.
func GenerateState(data map[string]string) (string, error) {
	nonce, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", err
	}
	payload := map[string]string{"nonce": nonce}
	for k, v := range data {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState reverses GenerateState.
func DecodeState(state string) (map[string]string, error) {
	if state == "" {
		return nil, errors.New("empty state")
	}
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return nil, err
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
