package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/models"
	"github.com/pstracker/backend/internal/utils"
)

const monitorPrefix = "MonitorBenettonS"

// Monitor imports the daily pallet movement feed and maintains the
// current physical position of every UDC. Movements only ever update
// positions; a day without a file leaves them untouched.
type Monitor struct {
	Store *db.Store
	Dir   string
	Log   zerolog.Logger
}

// ImportYesterday imports yesterday's movement file. The file is absent
// on weekends and holidays; that is reported as a skip, not an error.
func (m *Monitor) ImportYesterday(ctx context.Context) (*Result, error) {
	day := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	name := monitorPrefix + day + "F" + day
	path, ok := findDatedFile(m.Dir, name)
	if !ok {
		m.Log.Info().Str("file", name).Msg("movement feed absent, likely weekend or holiday")
		return &Result{Source: SourceMonitor, Skipped: true, Message: "movement feed not found for yesterday"}, nil
	}
	return m.ImportFile(ctx, path)
}

// ImportRange imports every movement file dated within [start, end].
func (m *Monitor) ImportRange(ctx context.Context, start, end time.Time) ([]*Result, error) {
	var results []*Result
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		ds := day.Format("2006-01-02")
		path, ok := findDatedFile(m.Dir, monitorPrefix+ds+"F"+ds)
		if !ok {
			continue
		}
		res, err := m.ImportFile(ctx, path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Monitor) ImportFile(ctx context.Context, path string) (*Result, error) {
	hash, err := utils.FileSHA256(path)
	if err != nil {
		return nil, errs.Validation("reading feed file %s: %v", filepath.Base(path), err)
	}
	dup, err := m.Store.IsFileImported(ctx, string(SourceMonitor), hash)
	if err != nil {
		return nil, errs.DB(err, "checking import history")
	}
	if dup {
		return &Result{Source: SourceMonitor, File: filepath.Base(path), Skipped: true, Message: "file already imported"}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Validation("opening feed file %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	locations, records, err := parseMonitor(f)
	if err != nil {
		return nil, errs.Validation("parsing feed file %s: %v", filepath.Base(path), err)
	}
	if records == 0 {
		return &Result{Source: SourceMonitor, File: filepath.Base(path), Skipped: true, Message: "no records in file"}, nil
	}

	logID, err := m.Store.StartImport(ctx, models.ImportLog{
		SourceType: string(SourceMonitor),
		FilePath:   path,
		FileHash:   hash,
		FileDate:   monitorDate(filepath.Base(path)),
	})
	if err != nil {
		return nil, errs.DB(err, "recording import start")
	}

	err = m.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, loc := range locations {
			if err := m.Store.UpsertUdcLocation(ctx, tx, loc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = m.Store.FinishImport(ctx, logID, 0, "FAILED", err.Error())
		return nil, errs.DB(err, "importing feed file %s", filepath.Base(path))
	}
	if err := m.Store.FinishImport(ctx, logID, records, "SUCCESS", ""); err != nil {
		return nil, errs.DB(err, "recording import completion")
	}

	m.Log.Info().Str("file", filepath.Base(path)).Int("records", records).
		Int("positions", len(locations)).Msg("pallet movements imported")
	return &Result{Source: SourceMonitor, File: filepath.Base(path), Records: records, Positions: len(locations)}, nil
}

// parseMonitor reduces a movement file to the newest movement per
// pallet and builds the location rows to upsert.
func parseMonitor(r io.Reader) ([]models.UdcLocation, int, error) {
	cr := newFeedReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	cols := headerIndex(header)
	if _, ok := cols["Pallet"]; !ok {
		return nil, 0, fmt.Errorf("missing column Pallet")
	}

	latest := map[string]models.UdcLocation{}
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

		udc := rw.str("Pallet")
		if udc == "" {
			continue
		}
		movedAt := rw.time("DataOra")
		if prev, ok := latest[udc]; ok && !newerMovement(movedAt, prev.LastMovement) {
			continue
		}
		latest[udc] = models.UdcLocation{
			UDC:          udc,
			Mag:          rw.str("Mag"),
			Scaf:         rw.str("Scaf"),
			Col:          rw.str("Col"),
			Pia:          rw.str("Pia"),
			Sc:           rw.str("Sc"),
			Comp:         rw.str("Comp"),
			PositionCode: BuildPositionCode(rw.str("Mag"), rw.str("Scaf"), rw.str("Col"), rw.str("Pia")),
			LastMovement: movedAt,
		}
	}

	out := make([]models.UdcLocation, 0, len(latest))
	for _, loc := range latest {
		out = append(out, loc)
	}
	return out, records, nil
}

// newerMovement reports whether a beats b. A timestamped movement
// always beats an untimestamped one.
func newerMovement(a, b *time.Time) bool {
	if a == nil {
		return b == nil
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// BuildPositionCode joins the non-empty location components with
// dashes. A pallet with no recorded components sits at UNKNOWN.
func BuildPositionCode(mag, scaf, col, pia string) string {
	var parts []string
	for _, p := range []string{mag, scaf, col, pia} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "-")
}

// monitorDate extracts the start date from names like
// MonitorBenettonS2026-08-31F2026-08-31.csv.
func monitorDate(name string) *time.Time {
	name = strings.TrimSuffix(name, ".csv")
	s := strings.TrimPrefix(name, monitorPrefix)
	s, _, ok := strings.Cut(s, "F")
	if !ok {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
