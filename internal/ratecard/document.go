package ratecard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadDocument reads the rate card JSON served to valid token holders.
// An empty path yields a nil document.
func LoadDocument(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate card: %w", err)
	}
	if !json.Valid(b) {
		return nil, errors.New("rate card document is not valid JSON")
	}
	return json.RawMessage(b), nil
}
