package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	StartMonth       time.Time
	Months           int
	CheckingPerMonth int
	VoucherPerMonth  int
	RowsPerFile      int
	Seed             int64
	Replace          bool
}

func DefaultConfig() Config {
	return Config{
		StartMonth:       time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Months:           6,
		CheckingPerMonth: 40,
		VoucherPerMonth:  30,
		RowsPerFile:      500,
		Seed:             42,
		Replace:          true,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyMonth(lookup, "FINCHAT_SEED_START_MONTH", &cfg.StartMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FINCHAT_SEED_MONTHS", &cfg.Months); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FINCHAT_SEED_CHECKING_PER_MONTH", &cfg.CheckingPerMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FINCHAT_SEED_VOUCHER_PER_MONTH", &cfg.VoucherPerMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FINCHAT_SEED_ROWS_PER_FILE", &cfg.RowsPerFile); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "FINCHAT_SEED_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FINCHAT_SEED_REPLACE", &cfg.Replace); err != nil {
		return Config{}, err
	}

	if cfg.Months <= 0 {
		return Config{}, fmt.Errorf("FINCHAT_SEED_MONTHS must be > 0")
	}
	if cfg.CheckingPerMonth < 0 || cfg.VoucherPerMonth < 0 {
		return Config{}, fmt.Errorf("rows per month must be >= 0")
	}
	if cfg.RowsPerFile <= 0 {
		return Config{}, fmt.Errorf("FINCHAT_SEED_ROWS_PER_FILE must be > 0")
	}
	return cfg, nil
}

func applyMonth(lookup LookupFunc, key string, dst *time.Time) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := time.Parse("2006-01", strings.TrimSpace(raw))
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
