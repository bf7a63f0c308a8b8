package importer

import (
	"strings"

	"github.com/pstracker/backend/internal/errs"
)

// Source identifies one of the warehouse data feeds.
type Source string

const (
	SourceDumpTrack Source = "DUMPTRACK"
	SourceMonitor   Source = "MONITOR"
	SourcePrelievo  Source = "PRELIEVO"
	SourceSpedito   Source = "SPEDITO"
)

// Sources lists every feed the import status endpoint reports on.
var Sources = []Source{SourceDumpTrack, SourceMonitor, SourcePrelievo, SourceSpedito}

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToUpper(s)) {
	case SourceDumpTrack:
		return SourceDumpTrack, nil
	case SourceMonitor:
		return SourceMonitor, nil
	case SourcePrelievo:
		return SourcePrelievo, nil
	case SourceSpedito:
		return SourceSpedito, nil
	}
	return "", errs.Validation("unknown import source %q", s)
}

// Result reports what a single import run did.
type Result struct {
	Source    Source `json:"source"`
	File      string `json:"file,omitempty"`
	Skipped   bool   `json:"skipped"`
	Message   string `json:"message,omitempty"`
	Records   int    `json:"records_imported"`
	Orders    int    `json:"orders_processed,omitempty"`
	Items     int    `json:"items_processed,omitempty"`
	Positions int    `json:"positions_updated,omitempty"`
	BatchID   int64  `json:"batch_id,omitempty"`
}
