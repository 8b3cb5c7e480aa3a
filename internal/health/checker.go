package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/storage"
)

// Item IDs.
const (
	ItemProvider   = "provider"
	ItemFavourites = "favourites"
)

const probeKey = "health_probe"

// ProviderTester probes the metadata provider.
type ProviderTester interface {
	ProviderName() string
	IsConfigured() bool
	Test(ctx context.Context) error
}

// Checker runs active checks and records their results.
type Checker struct {
	health   *Service
	provider ProviderTester
	blob     storage.Blob
	logger   zerolog.Logger
}

// NewChecker registers the provider and favourites storage items.
// backend names the storage backend in the item's display name.
func NewChecker(h *Service, provider ProviderTester, blob storage.Blob, backend string, logger zerolog.Logger) *Checker {
	h.RegisterItem(CategoryMetadata, ItemProvider, provider.ProviderName())
	h.RegisterItem(CategoryStorage, ItemFavourites, fmt.Sprintf("Favourites (%s)", backend))
	return &Checker{
		health:   h,
		provider: provider,
		blob:     blob,
		logger:   logger.With().Str("component", "health").Logger(),
	}
}

// CheckAll runs every check.
func (c *Checker) CheckAll(ctx context.Context) error {
	return errors.Join(c.CheckMetadata(ctx), c.CheckStorage(ctx))
}

// Check runs the checks of one category.
func (c *Checker) Check(ctx context.Context, category HealthCategory) error {
	switch category {
	case CategoryMetadata:
		return c.CheckMetadata(ctx)
	case CategoryStorage:
		return c.CheckStorage(ctx)
	default:
		return fmt.Errorf("unknown health category %q", category)
	}
}

// CheckMetadata probes the provider.
func (c *Checker) CheckMetadata(ctx context.Context) error {
	if !c.provider.IsConfigured() {
		c.health.SetWarning(CategoryMetadata, ItemProvider, "API key not configured")
		return nil
	}
	err := c.provider.Test(ctx)
	c.RecordMetadata(err)
	return err
}

// RecordMetadata records the outcome of a provider probe made elsewhere.
func (c *Checker) RecordMetadata(err error) {
	if err != nil {
		c.health.SetError(CategoryMetadata, ItemProvider, err.Error())
		return
	}
	c.health.ClearStatus(CategoryMetadata, ItemProvider)
}

// CheckStorage writes, reads back and deletes a probe key.
func (c *Checker) CheckStorage(ctx context.Context) error {
	err := c.probe(ctx)
	if err != nil {
		c.health.SetError(CategoryStorage, ItemFavourites, err.Error())
		return err
	}
	c.health.ClearStatus(CategoryStorage, ItemFavourites)
	return nil
}

func (c *Checker) probe(ctx context.Context) error {
	want := []byte("ok")
	if err := c.blob.Set(ctx, probeKey, want); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	got, ok, err := c.blob.Get(ctx, probeKey)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	if !ok || string(got) != string(want) {
		return errors.New("read back mismatch")
	}
	if err := c.blob.Delete(ctx, probeKey); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// CaptureError marks favourites storage unhealthy when the store reports a
// failure. The next successful write or probe clears it.
func (c *Checker) CaptureError(err error, tags map[string]string) {
	if err == nil || tags["component"] != "favourites" {
		return
	}
	c.health.SetError(CategoryStorage, ItemFavourites, err.Error())
}

// ClearError marks favourites storage healthy after a successful write.
func (c *Checker) ClearError(tags map[string]string) {
	if tags["component"] != "favourites" {
		return
	}
	c.health.ClearStatus(CategoryStorage, ItemFavourites)
}
