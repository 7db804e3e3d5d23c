package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/splitbook/splitbook/internal/common"
	"github.com/splitbook/splitbook/internal/config"
	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/ledger"
)

// openBook opens the configured GnuCash book.
func openBook() (*ledger.SQLiteBook, error) {
	bookPath := viper.GetString("book.path")
	if bookPath == "" {
		return nil, fmt.Errorf("%w: book path not set (use --book or book.path in config)", common.ErrMissingConfig)
	}
	book, err := ledger.Open(config.ExpandPath(bookPath))
	if err != nil {
		return nil, common.NewUserError("could not open the book", err)
	}
	return book, nil
}

// mapPath returns the configured entity map location, defaulting to
// entity_map.yaml next to the book.
func mapPath() string {
	if p := viper.GetString("book.entity_map"); p != "" {
		return config.ExpandPath(p)
	}
	return config.DefaultMapPath(config.ExpandPath(viper.GetString("book.path")))
}

// loadEntityMap loads the configured entity map. A missing file yields an
// empty map.
func loadEntityMap() (*entitymap.EntityMap, error) {
	return entitymap.Load(mapPath())
}

// tolerance returns the configured balance tolerance, defaulting to one cent.
func tolerance() (decimal.Decimal, error) {
	raw := viper.GetString("book.tolerance")
	if raw == "" {
		return decimal.New(1, -2), nil
	}
	t, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid tolerance %q", common.ErrInvalidConfig, raw)
	}
	return t, nil
}

// parseDate parses a YYYY-MM-DD flag value.
func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag into a *time.Time.
func parseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// entityLabels builds a key -> label map for display.
func entityLabels(emap *entitymap.EntityMap) map[string]string {
	labels := make(map[string]string, len(emap.Entities))
	for key, def := range emap.Entities {
		labels[key] = def.Label
	}
	return labels
}
