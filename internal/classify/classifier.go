package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/szurutag/internal/model"
)

// Tagger produces descriptive tags and a safety rating for a local image
// file. Implementations are registered by name and built from the raw
// provider config carried in the tagger section.
type Tagger interface {
	Name() string
	TagImage(ctx context.Context, path string, threshold float32) ([]string, model.Safety, error)
	Close() error
}

type Factory func(args interface{}) (Tagger, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(name string, args interface{}) (Tagger, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("tagger provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported tagger provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode tagger config: %w", err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode tagger config: %w", err)
	}
	return nil
}
