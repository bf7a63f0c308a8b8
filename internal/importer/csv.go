package importer

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The warehouse feeds are dollar-delimited CSV with a header row. Field
// counts vary between exports, so rows are read loosely and addressed by
// header name.
func newFeedReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '$'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

type row struct {
	cols   map[string]int
	fields []string
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	return cols
}

func (r row) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) int64(col string) (int64, bool) {
	s := r.str(col)
	if s == "" {
		return 0, false
	}
	// Some exports write integers as "123.0".
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func (r row) decimal(col string) decimal.Decimal {
	s := strings.ReplaceAll(r.str(col), ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// feedTimeFormats are day-first, matching the Italian warehouse exports.
var feedTimeFormats = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r row) time(col string) *time.Time {
	s := r.str(col)
	if s == "" {
		return nil
	}
	for _, layout := range feedTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
