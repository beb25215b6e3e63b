package aggregation

import (
	"context"
	"errors"
	"fmt"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// Snapshot is the global state an event is aggregated against.
// Handlers only read it.
type Snapshot struct {
	Factory domain.DexFactory
	Bundle  domain.Bundle
}

// LoadSnapshot reads the factory and bundle singletons.
func LoadSnapshot(ctx context.Context, s *storage.Stores) (Snapshot, error) {
	factory, err := s.Factory.Get(ctx)
	if err != nil {
		return Snapshot{}, parentErr(err, "factory", "")
	}
	bundle, err := s.Bundle.Get(ctx)
	if err != nil {
		return Snapshot{}, parentErr(err, "bundle", domain.BundleID)
	}
	return Snapshot{Factory: *factory, Bundle: *bundle}, nil
}

// parentErr maps storage.ErrNotFound to a MissingParentError and wraps
// anything else.
func parentErr(err error, entity, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &MissingParentError{Entity: entity, ID: id}
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}
