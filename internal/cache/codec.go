package cache

import (
	"encoding/json"
	"fmt"

	"rssfeed/internal/domain"
)

const encodingVersion = 1

type envelope struct {
	Version int               `json:"version"`
	Items   []domain.FeedItem `json:"items"`
}

func Encode(items []domain.FeedItem) ([]byte, error) {
	if items == nil {
		items = []domain.FeedItem{}
	}

	raw, err := json.Marshal(envelope{Version: encodingVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	return raw, nil
}

// Decode rejects any version other than the current one so stale layouts read as misses.
func Decode(raw []byte) ([]domain.FeedItem, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	if env.Version != encodingVersion {
		return nil, fmt.Errorf("unsupported encoding version %d", env.Version)
	}

	if env.Items == nil {
		return []domain.FeedItem{}, nil
	}

	return env.Items, nil
}
