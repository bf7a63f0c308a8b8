package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/models"
	"github.com/pstracker/backend/internal/utils"
)

const dumpTrackPrefix = "DumpTrackBenetton_"

// DumpTrack imports the daily order snapshot feed. Each file is a full
// dump; importing one creates a new batch (the import_log row id) that
// orders and order items are pinned to.
type DumpTrack struct {
	Store *db.Store
	Dir   string
	Log   zerolog.Logger
}

// dumpFile is the aggregated content of one feed file: one Order per
// distinct order number and one OrderItem per (order, lista, sku),
// first occurrence wins as in the source system.
type dumpFile struct {
	orders []models.Order
	items  map[string][]models.OrderItem
}

// ImportLatest imports the newest feed file in the configured directory.
func (d *DumpTrack) ImportLatest(ctx context.Context) (*Result, error) {
	path, ok, err := d.findLatest()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Source: SourceDumpTrack, Skipped: true, Message: "no feed files found"}, nil
	}
	return d.ImportFile(ctx, path)
}

// ImportRange imports every feed file dated within [start, end].
func (d *DumpTrack) ImportRange(ctx context.Context, start, end time.Time) ([]*Result, error) {
	var results []*Result
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		path, ok := findDatedFile(d.Dir, dumpTrackPrefix+day.Format("2006-01-02"))
		if !ok {
			continue
		}
		res, err := d.ImportFile(ctx, path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *DumpTrack) ImportFile(ctx context.Context, path string) (*Result, error) {
	hash, err := utils.FileSHA256(path)
	if err != nil {
		return nil, errs.Validation("reading feed file %s: %v", filepath.Base(path), err)
	}
	dup, err := d.Store.IsFileImported(ctx, string(SourceDumpTrack), hash)
	if err != nil {
		return nil, errs.DB(err, "checking import history")
	}
	if dup {
		d.Log.Info().Str("file", filepath.Base(path)).Msg("feed file already imported")
		return &Result{Source: SourceDumpTrack, File: filepath.Base(path), Skipped: true, Message: "file already imported"}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Validation("opening feed file %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	parsed, records, err := parseDumpTrack(f)
	if err != nil {
		return nil, errs.Validation("parsing feed file %s: %v", filepath.Base(path), err)
	}
	if records == 0 {
		return &Result{Source: SourceDumpTrack, File: filepath.Base(path), Skipped: true, Message: "no records in file"}, nil
	}

	logID, err := d.Store.StartImport(ctx, models.ImportLog{
		SourceType: string(SourceDumpTrack),
		FilePath:   path,
		FileHash:   hash,
		FileDate:   dateFromFilename(filepath.Base(path), dumpTrackPrefix),
	})
	if err != nil {
		return nil, errs.DB(err, "recording import start")
	}

	res := &Result{Source: SourceDumpTrack, File: filepath.Base(path), Records: records, BatchID: logID}
	err = d.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, o := range parsed.orders {
			o.BatchID = logID
			orderID, err := d.Store.InsertOrder(ctx, tx, o)
			if err != nil {
				return err
			}
			items := parsed.items[o.OrderNumber]
			for i := range items {
				items[i].OrderID = orderID
				items[i].BatchID = logID
			}
			n, err := d.Store.CopyOrderItems(ctx, tx, items)
			if err != nil {
				return err
			}
			res.Orders++
			res.Items += int(n)
		}
		return nil
	})
	if err != nil {
		_ = d.Store.FinishImport(ctx, logID, 0, "FAILED", err.Error())
		return nil, errs.DB(err, "importing feed file %s", filepath.Base(path))
	}
	if err := d.Store.FinishImport(ctx, logID, records, "SUCCESS", ""); err != nil {
		return nil, errs.DB(err, "recording import completion")
	}

	d.Log.Info().Str("file", filepath.Base(path)).Int64("batch_id", logID).
		Int("records", records).Int("orders", res.Orders).Int("items", res.Items).
		Msg("order snapshot imported")
	return res, nil
}

func parseDumpTrack(r io.Reader) (*dumpFile, int, error) {
	cr := newFeedReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	cols := headerIndex(header)
	for _, required := range []string{"OrdinePrivalia", "nLista", "CodiceArticolo"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing column %s", required)
		}
	}

	out := &dumpFile{items: map[string][]models.OrderItem{}}
	type itemKey struct {
		order string
		lista int64
		sku   string
	}
	seenItem := map[itemKey]bool{}
	seenOrder := map[string]bool{}

	records := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", records+2, err)
		}
		records++
		rw := row{cols: cols, fields: fields}

		orderNum := rw.str("OrdinePrivalia")
		lista, listaOK := rw.int64("nLista")
		sku := rw.str("CodiceArticolo")
		if orderNum == "" || !listaOK || sku == "" {
			continue
		}

		if !seenOrder[orderNum] {
			seenOrder[orderNum] = true
			out.orders = append(out.orders, models.Order{
				OrderNumber:  orderNum,
				RegisteredAt: rw.time("DataRegistrazione"),
				Commessa:     rw.str("Commessa"),
				Proprieta:    rw.str("CodiceProprieta"),
			})
		}

		k := itemKey{orderNum, lista, sku}
		if seenItem[k] {
			continue
		}
		seenItem[k] = true
		item := models.OrderItem{
			NLista:     lista,
			SKU:        sku,
			QtyOrdered: rw.decimal("QtaRichiestaTotale"),
			Cesta:      rw.str("CodiceImballo"),
		}
		if listone, ok := rw.int64("nListaComposta"); ok {
			item.Listone = &listone
		}
		out.items[orderNum] = append(out.items[orderNum], item)
	}
	return out, records, nil
}

func (d *DumpTrack) findLatest() (string, bool, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return "", false, errs.Validation("scanning feed directory %s: %v", d.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), dumpTrackPrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false, nil
	}
	// Filename dates are ISO, so lexical order is date order.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return filepath.Join(d.Dir, names[0]), true, nil
}

// findDatedFile looks for a feed file by its extensionless name, then
// with a .csv suffix.
func findDatedFile(dir, name string) (string, bool) {
	for _, candidate := range []string{name, name + ".csv"} {
		path := filepath.Join(dir, candidate)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, true
		}
	}
	return "", false
}

// dateFromFilename extracts the feed date from names like
// DumpTrackBenetton_2026-08-31 or DumpTrackBenetton_2026-08-31.csv.
func dateFromFilename(name, prefix string) *time.Time {
	name = strings.TrimSuffix(name, ".csv")
	s := strings.TrimPrefix(name, prefix)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
