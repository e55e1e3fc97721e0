package chat

import (
	"fmt"
	"strings"

	"gemini-chat/internal/kv"
)

const (
	APIKeyKey = "gemini-api-key"
	ModelKey  = "gemini-model"
)

type Settings struct {
	APIKey string
	Model  string
}

// ResolveSettings merges configured values with those saved in the store.
// A configured value wins and is saved; otherwise the saved one is used.
// added reports that a configured API key was saved for the first time.
func ResolveSettings(store kv.Store, configured Settings) (s Settings, added bool, err error) {
	savedKey, hasKey, err := store.Get(APIKeyKey)
	if err != nil {
		return configured, false, fmt.Errorf("read saved api key: %w", err)
	}
	savedModel, _, err := store.Get(ModelKey)
	if err != nil {
		return configured, false, fmt.Errorf("read saved model: %w", err)
	}

	s = configured
	if strings.TrimSpace(s.APIKey) == "" {
		s.APIKey = savedKey
	}
	if strings.TrimSpace(s.Model) == "" {
		s.Model = savedModel
	}

	added = !hasKey && strings.TrimSpace(s.APIKey) != ""
	if err := SaveSettings(store, s); err != nil {
		return s, false, err
	}
	return s, added, nil
}

func SaveSettings(store kv.Store, s Settings) error {
	if strings.TrimSpace(s.APIKey) != "" {
		if err := store.Set(APIKeyKey, strings.TrimSpace(s.APIKey)); err != nil {
			return fmt.Errorf("save api key: %w", err)
		}
	}
	if strings.TrimSpace(s.Model) != "" {
		if err := store.Set(ModelKey, strings.TrimSpace(s.Model)); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	return nil
}
