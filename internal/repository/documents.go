package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// loadDocument decodes kind over a fresh default. A missing or undecodable
// document yields the default; only store failures are returned.
func loadDocument[T any](ctx context.Context, store DocumentStore, kind string, def func() T) (T, error) {
	raw, err := store.Get(ctx, kind)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def(), nil
		}
		var zero T
		return zero, err
	}

	doc := def()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return def(), nil
	}
	return doc, nil
}

func saveDocument(ctx context.Context, store DocumentStore, kind string, doc any) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return store.Put(ctx, kind, body)
}

// ConfigDocument is the Configuration document.
type ConfigDocument struct {
	store DocumentStore
}

func NewConfigDocument(store DocumentStore) *ConfigDocument {
	return &ConfigDocument{store: store}
}

func (r *ConfigDocument) Load(ctx context.Context) (models.Configuration, error) {
	cfg, err := loadDocument(ctx, r.store, KindConfig, models.DefaultConfiguration)
	if err != nil {
		return models.Configuration{}, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (r *ConfigDocument) Save(ctx context.Context, c models.Configuration) error {
	c.Normalize()
	return saveDocument(ctx, r.store, KindConfig, c)
}

// StateDocument is the RuntimeState document.
type StateDocument struct {
	store DocumentStore
}

func NewStateDocument(store DocumentStore) *StateDocument {
	return &StateDocument{store: store}
}

func (r *StateDocument) Load(ctx context.Context) (models.RuntimeState, error) {
	st, err := loadDocument(ctx, r.store, KindState, models.DefaultRuntimeState)
	if err != nil {
		return models.RuntimeState{}, err
	}
	st.Normalize()
	return st, nil
}

func (r *StateDocument) Save(ctx context.Context, s models.RuntimeState) error {
	s.Normalize()
	return saveDocument(ctx, r.store, KindState, s)
}
