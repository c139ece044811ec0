package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingID   = errors.New("identity has no id")
	errMissingName = errors.New("identity has no display name")
)

type identityBody struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
}

// decodeIdentity reads the id and display name out of a validation
// response. The id may be a JSON string or number; the display name falls
// back from name to username to first_name.
func decodeIdentity(body []byte) (id, name string, err error) {
	var payload identityBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", fmt.Errorf("decoding identity: %w", err)
	}

	id, err = decodeID(payload.ID)
	if err != nil {
		return "", "", err
	}

	for _, candidate := range []string{payload.Name, payload.Username, payload.FirstName} {
		if name = strings.TrimSpace(candidate); name != "" {
			return id, name, nil
		}
	}
	return "", "", errMissingName
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errMissingID
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return "", errMissingID
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decoding id: %w", err)
	}
	return n.String(), nil
}
