package powerstore

import (
	"context"
	"time"
)

// Mock serves canned responses, used in tests and when no POWERSTORE_URL is
// configured.
type Mock struct {
	Shipped map[string][]ShippedRow
	Picks   []PickRow
	Err     error
}

func (m *Mock) GetShipped(_ context.Context, cesta string) ([]ShippedRow, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Shipped[cesta], nil
}

func (m *Mock) GetPicks(_ context.Context, _, _ time.Time) ([]PickRow, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Picks, nil
}
