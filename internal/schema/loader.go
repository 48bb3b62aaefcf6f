package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type TableSource interface {
	ListTables(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, table string) (TableSchema, error)
}

// Load builds a catalog from the tables a source reports. Tables whose
// schema cannot be fetched are skipped and logged.
func Load(ctx context.Context, source TableSource, logger *slog.Logger) (Catalog, error) {
	if source == nil {
		return Catalog{}, fmt.Errorf("table source is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	names, err := source.ListTables(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list tables: %w", err)
	}

	var catalog Catalog
	for _, name := range names {
		table, err := source.GetSchema(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return Catalog{}, ctx.Err()
			}
			logger.WarnContext(ctx, "skipping table without schema",
				slog.String("table", name),
				slog.Any("error", err),
			)
			continue
		}
		if table.Name == "" {
			table.Name = name
		}
		if err := catalog.Add(table); err != nil {
			return Catalog{}, err
		}
	}
	return catalog, nil
}

type Snapshot struct {
	Catalog  Catalog
	LoadedAt time.Time
}

type LoadFunc func(ctx context.Context) (Catalog, error)

// Cache holds the most recently loaded catalog. Refresh swaps the whole
// snapshot, so readers never observe a partially loaded catalog.
type Cache struct {
	load LoadFunc
	now  func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool
}

func NewCache(load LoadFunc) *Cache {
	return &Cache{load: load, now: func() time.Time { return time.Now().UTC() }}
}

func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	snapshot, loaded := c.snapshot, c.loaded
	c.mu.RUnlock()
	if loaded {
		return snapshot, nil
	}
	return c.Refresh(ctx)
}

func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	if c.load == nil {
		return Snapshot{}, fmt.Errorf("catalog loader is not configured")
	}
	catalog, err := c.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Snapshot{Catalog: catalog, LoadedAt: c.now()}

	c.mu.Lock()
	c.snapshot = snapshot
	c.loaded = true
	c.mu.Unlock()
	return snapshot, nil
}
