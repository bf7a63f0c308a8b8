package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/importer"
	"github.com/pstracker/backend/internal/models"
	"github.com/pstracker/backend/internal/powerstore"
)

// ImportService orchestrates the four data feeds: the two CSV drops,
// the picking API and the shipment API.
type ImportService struct {
	Store     *db.Store
	PS        powerstore.Client
	DumpTrack *importer.DumpTrack
	Monitor   *importer.Monitor
	Log       zerolog.Logger
}

// TriggerParams narrows a manual import trigger. Zero dates mean the
// source's default window (latest file, or yesterday).
type TriggerParams struct {
	Start time.Time
	End   time.Time
	Cesta string
}

func (p TriggerParams) ranged() bool { return !p.Start.IsZero() && !p.End.IsZero() }

// Trigger runs one import source on demand.
func (s *ImportService) Trigger(ctx context.Context, source importer.Source, p TriggerParams) ([]*importer.Result, error) {
	switch source {
	case importer.SourceDumpTrack:
		if p.ranged() {
			results, err := s.DumpTrack.ImportRange(ctx, p.Start, p.End)
			if err != nil {
				return results, err
			}
			return results, s.rebuildInventory(ctx)
		}
		res, err := s.DumpTrack.ImportLatest(ctx)
		if err != nil {
			return nil, err
		}
		if !res.Skipped {
			if err := s.rebuildInventory(ctx); err != nil {
				return nil, err
			}
		}
		return []*importer.Result{res}, nil

	case importer.SourceMonitor:
		if p.ranged() {
			return s.Monitor.ImportRange(ctx, p.Start, p.End)
		}
		res, err := s.Monitor.ImportYesterday(ctx)
		if err != nil {
			return nil, err
		}
		return []*importer.Result{res}, nil

	case importer.SourcePrelievo:
		start, end := p.Start, p.End
		if !p.ranged() {
			start = time.Now().AddDate(0, 0, -1)
			end = start
		}
		res, err := s.IngestPicks(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return []*importer.Result{res}, nil

	case importer.SourceSpedito:
		if p.Cesta == "" {
			return nil, errs.Validation("shipment import requires a basket code")
		}
		res, err := s.IngestShipped(ctx, p.Cesta)
		if err != nil {
			return nil, err
		}
		return []*importer.Result{res}, nil
	}
	return nil, errs.Validation("unknown import source %q", source)
}

// IngestPicks pulls picking events from the API for a date range and
// attaches them to order items by (listone, sku). The range itself is
// the dedup key, one successful pull per window.
func (s *ImportService) IngestPicks(ctx context.Context, start, end time.Time) (*importer.Result, error) {
	key := fmt.Sprintf("PRELIEVO_%s_%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	dup, err := s.Store.IsFileImported(ctx, string(importer.SourcePrelievo), key)
	if err != nil {
		return nil, errs.DB(err, "checking import history")
	}
	if dup {
		return &importer.Result{Source: importer.SourcePrelievo, Skipped: true, Message: "date range already imported"}, nil
	}

	rows, err := s.PS.GetPicks(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &importer.Result{Source: importer.SourcePrelievo, Skipped: true, Message: "no picking data for range"}, nil
	}

	fileDate := start
	logID, err := s.Store.StartImport(ctx, models.ImportLog{
		SourceType: string(importer.SourcePrelievo),
		FilePath:   "PrelievoPowerSort",
		FileHash:   key,
		FileDate:   &fileDate,
	})
	if err != nil {
		return nil, errs.DB(err, "recording import start")
	}

	index, err := s.Store.OrderItemIDsByListoneSKU(ctx)
	if err != nil {
		_ = s.Store.FinishImport(ctx, logID, 0, "FAILED", err.Error())
		return nil, errs.DB(err, "indexing order items")
	}

	var events []models.PickingEvent
	for _, row := range rows {
		if row.Listone == 0 || row.SKU == "" || row.UDC == "" {
			continue
		}
		for _, itemID := range index[db.OrderItemKey{Listone: row.Listone, SKU: row.SKU}] {
			events = append(events, models.PickingEvent{
				OrderItemID: itemID,
				UDC:         row.UDC,
				Carrello:    row.Carrello,
				QtyPicked:   row.Qty,
				Operator:    row.Operator,
				PickedAt:    row.PickedAt,
			})
		}
	}
	if _, err := s.Store.CopyPickingEvents(ctx, events); err != nil {
		_ = s.Store.FinishImport(ctx, logID, 0, "FAILED", err.Error())
		return nil, errs.DB(err, "storing picking events")
	}
	if err := s.Store.FinishImport(ctx, logID, len(rows), "SUCCESS", ""); err != nil {
		return nil, errs.DB(err, "recording import completion")
	}
	if err := s.rebuildInventory(ctx); err != nil {
		return nil, err
	}

	s.Log.Info().Int("api_records", len(rows)).Int("events", len(events)).
		Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
		Msg("picking events ingested")
	return &importer.Result{Source: importer.SourcePrelievo, Records: len(rows), Items: len(events)}, nil
}

// IngestShipped fetches and caches the shipment rows for one basket
// against the current batch.
func (s *ImportService) IngestShipped(ctx context.Context, cesta string) (*importer.Result, error) {
	batchID, ok, err := s.Store.LatestBatchID(ctx)
	if err != nil {
		return nil, errs.DB(err, "resolving current batch")
	}
	if !ok {
		return nil, errs.NotFound("no order data imported yet")
	}

	rows, err := s.PS.GetShipped(ctx, cesta)
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
		if err := s.Store.UpsertShippedItems(ctx, items); err != nil {
			return nil, errs.DB(err, "caching shipped items for basket %s", cesta)
		}
	}
	return &importer.Result{Source: importer.SourceSpedito, Records: len(items), BatchID: batchID}, nil
}

func (s *ImportService) rebuildInventory(ctx context.Context) error {
	n, err := s.Store.RebuildUdcInventory(ctx)
	if err != nil {
		return errs.DB(err, "rebuilding pallet inventory")
	}
	s.Log.Info().Int64("rows", n).Msg("pallet inventory rebuilt")
	return nil
}

func (s *ImportService) Status(ctx context.Context) (*db.ImportStatus, error) {
	sources := make([]string, len(importer.Sources))
	for i, src := range importer.Sources {
		sources[i] = string(src)
	}
	status, err := s.Store.GetImportStatus(ctx, sources)
	if err != nil {
		return nil, errs.DB(err, "loading import status")
	}
	return status, nil
}

// RunDaily is the scheduled nightly job: latest order snapshot, then
// yesterday's picks, then yesterday's pallet movements. Each step logs
// and continues on failure so one broken feed does not block the rest.
func (s *ImportService) RunDaily(ctx context.Context) {
	if _, err := s.DumpTrack.ImportLatest(ctx); err != nil {
		s.Log.Error().Err(err).Msg("daily order snapshot import failed")
	} else if err := s.rebuildInventory(ctx); err != nil {
		s.Log.Error().Err(err).Msg("daily inventory rebuild failed")
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	if _, err := s.IngestPicks(ctx, yesterday, yesterday); err != nil {
		s.Log.Error().Err(err).Msg("daily picking import failed")
	}

	if _, err := s.Monitor.ImportYesterday(ctx); err != nil {
		s.Log.Error().Err(err).Msg("daily movement import failed")
	}
}
