package marketing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sqlscribe/sqlscribe/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

type Seeder struct {
	store  storage.ObjectStore
	prefix string
	logger *slog.Logger
}

func NewSeeder(store storage.ObjectStore, prefix string, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{store: store, prefix: prefix, logger: logger}
}

// Seed uploads one parquet part per table. With replace set, existing parts
// of each table are deleted first so stale files do not end up in the view.
func (s *Seeder) Seed(ctx context.Context, dataset Dataset, replace bool) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	encoders := []struct {
		table  string
		encode func() ([]byte, error)
	}{
		{table: TableCampaigns, encode: func() ([]byte, error) { return EncodeParquet(dataset.Campaigns) }},
		{table: TableCustomerMetrics, encode: func() ([]byte, error) { return EncodeParquet(dataset.CustomerMetrics) }},
		{table: TableAdPerformance, encode: func() ([]byte, error) { return EncodeParquet(dataset.Ads) }},
	}

	written := make([]storage.ObjectInfo, 0, len(encoders))
	for _, encoder := range encoders {
		payload, err := encoder.encode()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", encoder.table, err)
		}
		if replace {
			if err := s.clearTable(ctx, encoder.table); err != nil {
				return nil, err
			}
		}
		key, err := storage.BuildDatasetFilePath(s.prefix, encoder.table, 0)
		if err != nil {
			return nil, err
		}
		info, err := s.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: parquetContentType})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", encoder.table, err)
		}
		s.logger.InfoContext(ctx, "dataset uploaded",
			slog.String("table", encoder.table),
			slog.String("key", key),
			slog.Int("bytes", len(payload)),
		)
		written = append(written, info)
	}
	return written, nil
}

func (s *Seeder) clearTable(ctx context.Context, table string) error {
	tablePrefix, err := storage.DatasetTablePrefix(s.prefix, table)
	if err != nil {
		return err
	}
	existing, err := s.store.List(ctx, tablePrefix)
	if err != nil {
		return fmt.Errorf("list %s parts: %w", table, err)
	}
	for _, object := range existing {
		if err := s.store.Delete(ctx, object.Key); err != nil {
			return fmt.Errorf("delete %q: %w", object.Key, err)
		}
	}
	return nil
}
