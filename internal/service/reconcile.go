package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/models"
	"github.com/pstracker/backend/internal/powerstore"
)

// Reconciler computes what a basket is still missing by comparing the
// ordered quantities from the daily dump against what PowerStore reports
// as shipped.
type Reconciler struct {
	Store *db.Store
	PS    powerstore.Client
	Log   zerolog.Logger
}

// DetectMissing returns the missing items for a basket within a batch.
// Shipped rows are served from the local cache when present; on a cache
// miss the live API is queried and the result persisted. An empty result
// from the API means nothing shipped yet, so every ordered item is missing.
func (r *Reconciler) DetectMissing(ctx context.Context, cesta string, batchID int64) ([]models.MissingItem, error) {
	expected, err := r.Store.ExpectedItems(ctx, cesta, batchID)
	if err != nil {
		return nil, errs.DB(err, "loading expected items for basket %s", cesta)
	}
	if len(expected) == 0 {
		return nil, errs.NotFound("no order items found for basket %s in current batch", cesta)
	}

	shipped, err := r.shippedItems(ctx, cesta, batchID)
	if err != nil {
		return nil, err
	}

	missing := diffMissing(expected, shipped)
	r.Log.Info().Str("cesta", cesta).Int64("batch_id", batchID).
		Int("expected", len(expected)).Int("shipped", len(shipped)).Int("missing", len(missing)).
		Msg("reconciliation complete")
	return missing, nil
}

func (r *Reconciler) shippedItems(ctx context.Context, cesta string, batchID int64) ([]models.ShippedItem, error) {
	cached, err := r.Store.ShippedItems(ctx, cesta, batchID)
	if err != nil {
		return nil, errs.DB(err, "loading shipped items for basket %s", cesta)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	rows, err := r.PS.GetShipped(ctx, cesta)
	if err != nil {
		return nil, err
	}
	items := make([]models.ShippedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.ShippedItem{
			Cesta:      cesta,
			BatchID:    batchID,
			NOrdine:    row.NOrdine,
			NLista:     row.NLista,
			SKU:        row.SKU,
			QtyShipped: row.Qty,
			Sovracollo: row.Sovracollo,
			Vettore:    row.Vettore,
			ShippedAt:  row.ShippedAt,
		})
	}
	if len(items) > 0 {
		if err := r.Store.UpsertShippedItems(ctx, items); err != nil {
			return nil, errs.DB(err, "caching shipped items for basket %s", cesta)
		}
	}
	return items, nil
}

type shipmentKey struct {
	NOrdine string
	NLista  int64
	SKU     string
}

// diffMissing subtracts shipped from ordered quantities per order line.
// Over-shipment clamps to zero rather than going negative. Output is
// sorted by SKU then list number for stable mission contents.
func diffMissing(expected []models.ExpectedItem, shipped []models.ShippedItem) []models.MissingItem {
	shippedQty := make(map[shipmentKey]decimal.Decimal, len(shipped))
	for _, s := range shipped {
		k := shipmentKey{s.NOrdine, s.NLista, s.SKU}
		shippedQty[k] = shippedQty[k].Add(s.QtyShipped)
	}

	var missing []models.MissingItem
	for _, e := range expected {
		got := shippedQty[shipmentKey{e.NOrdine, e.NLista, e.SKU}]
		diff := e.QtyOrdered.Sub(got)
		if diff.IsPositive() {
			missing = append(missing, models.MissingItem{
				NOrdine:    e.NOrdine,
				NLista:     e.NLista,
				Listone:    e.Listone,
				SKU:        e.SKU,
				QtyOrdered: e.QtyOrdered,
				QtyShipped: got,
				QtyMissing: diff,
			})
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].SKU != missing[j].SKU {
			return missing[i].SKU < missing[j].SKU
		}
		return missing[i].NLista < missing[j].NLista
	})
	return missing
}

// CurrentBatch resolves the batch to reconcile against, the id of the
// newest successful daily dump import.
func (r *Reconciler) CurrentBatch(ctx context.Context) (int64, error) {
	id, ok, err := r.Store.LatestBatchID(ctx)
	if err != nil {
		return 0, errs.DB(err, "resolving current batch")
	}
	if !ok {
		return 0, errs.NotFound("no order data imported yet")
	}
	return id, nil
}
