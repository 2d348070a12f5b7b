package data

import (
	"encoding/json"
	"fmt"
	"time"
)

// credentialFields are stripped from every nesting level of an archived API
// request. Credentials must never appear in a bundle.
var credentialFields = []string{
	"app_id",
	"app_key",
	"app_token",
	"api_key",
	"apiKey",
	"authorization",
	"Authorization",
}

// SanitizeRequest deep-copies the request, removes every credential field at
// every nesting level and stamps the copy with a sanitisation marker. The
// input is never modified. Sanitising an already-sanitised request is a no-op
// apart from the refreshed timestamp.
func SanitizeRequest(request map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("copy request: %w", err)
	}
	var copied map[string]interface{}
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("copy request: %w", err)
	}
	stripCredentials(copied)
	copied["_sanitized"] = true
	copied["_sanitizedAt"] = now.UTC().Format(time.RFC3339)
	return copied, nil
}

func stripCredentials(m map[string]interface{}) {
	for _, field := range credentialFields {
		delete(m, field)
	}
	for _, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			stripCredentials(val)
		case []interface{}:
			stripCredentialsSlice(val)
		}
	}
}

func stripCredentialsSlice(s []interface{}) {
	for _, v := range s {
		switch val := v.(type) {
		case map[string]interface{}:
			stripCredentials(val)
		case []interface{}:
			stripCredentialsSlice(val)
		}
	}
}
