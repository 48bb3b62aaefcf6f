package marketing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type SeedConfig struct {
	Seed           int64
	StartDate      time.Time
	Days           int
	Campaigns      int
	AdsPerCampaign int
	Replace        bool
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Seed:           42,
		StartDate:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Days:           180,
		Campaigns:      24,
		AdsPerCampaign: 3,
		Replace:        true,
	}
}

func LoadSeedConfigFromEnv(lookup LookupFunc) (SeedConfig, error) {
	if lookup == nil {
		return SeedConfig{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultSeedConfig()
	if err := applyInt64(lookup, "SQLSCRIBE_SEED_SEED", &cfg.Seed); err != nil {
		return SeedConfig{}, err
	}
	if err := applyDate(lookup, "SQLSCRIBE_SEED_START_DATE", &cfg.StartDate); err != nil {
		return SeedConfig{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_SEED_DAYS", &cfg.Days); err != nil {
		return SeedConfig{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_SEED_CAMPAIGNS", &cfg.Campaigns); err != nil {
		return SeedConfig{}, err
	}
	if err := applyInt(lookup, "SQLSCRIBE_SEED_ADS_PER_CAMPAIGN", &cfg.AdsPerCampaign); err != nil {
		return SeedConfig{}, err
	}
	if err := applyBool(lookup, "SQLSCRIBE_SEED_REPLACE", &cfg.Replace); err != nil {
		return SeedConfig{}, err
	}

	if cfg.Days <= 0 {
		return SeedConfig{}, fmt.Errorf("SQLSCRIBE_SEED_DAYS must be > 0")
	}
	if cfg.Campaigns <= 0 {
		return SeedConfig{}, fmt.Errorf("SQLSCRIBE_SEED_CAMPAIGNS must be > 0")
	}
	if cfg.AdsPerCampaign <= 0 {
		return SeedConfig{}, fmt.Errorf("SQLSCRIBE_SEED_ADS_PER_CAMPAIGN must be > 0")
	}
	return cfg, nil
}

func applyDate(lookup LookupFunc, key string, dst *time.Time) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
