// Package powerstore talks to the external PowerStore warehouse APIs:
// GetSpedito2 (shipped basket contents) and PrelievoPowerSort (picking data).
package powerstore

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ShippedRow struct {
	NOrdine    string
	NLista     int64
	SKU        string
	Qty        decimal.Decimal
	Sovracollo string
	Vettore    string
	ShippedAt  *time.Time
}

type PickRow struct {
	Listone  int64
	Carrello string
	UDC      string
	SKU      string
	Qty      decimal.Decimal
	Operator string
	PickedAt *time.Time
}

type Client interface {
	// GetShipped returns everything recorded as shipped for a basket.
	// An empty slice is valid data, not an error.
	GetShipped(ctx context.Context, cesta string) ([]ShippedRow, error)
	// GetPicks returns picking events for a date range (inclusive).
	GetPicks(ctx context.Context, start, end time.Time) ([]PickRow, error)
}

// apiTimeFormats covers the formats PowerStore emits across endpoints.
var apiTimeFormats = []string{
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
}

func parseAPITime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range apiTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
