package importer

import (
	"strings"
	"testing"
	"time"
)

func TestBuildPositionCode(t *testing.T) {
	cases := []struct {
		mag, scaf, col, pia string
		want                string
	}{
		{"M1", "S2", "C3", "P4", "M1-S2-C3-P4"},
		{"M1", "", "C3", "", "M1-C3"},
		{"", "", "", "", "UNKNOWN"},
		{" M1 ", "S2", "", "", "M1-S2"},
	}
	for _, tc := range cases {
		if got := BuildPositionCode(tc.mag, tc.scaf, tc.col, tc.pia); got != tc.want {
			t.Errorf("BuildPositionCode(%q,%q,%q,%q) = %q, want %q", tc.mag, tc.scaf, tc.col, tc.pia, got, tc.want)
		}
	}
}

func TestParseMonitorKeepsNewestMovementPerPallet(t *testing.T) {
	feed := strings.Join([]string{
		"DataOra$Movimento$Pallet$Articolo$Mag$Scaf$Col$Pia$Sc$Comp",
		"15/08/2026 08:00:00$IN$UDC1$SKU-A$M1$S1$C1$P1$$",
		"15/08/2026 14:30:00$MOVE$UDC1$SKU-A$M2$S2$C2$P2$$",
		"15/08/2026 09:00:00$IN$UDC2$SKU-B$M3$S3$$$x$y",
	}, "\n")

	locations, records, err := parseMonitor(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if records != 3 {
		t.Errorf("records = %d, want 3", records)
	}
	if len(locations) != 2 {
		t.Fatalf("locations = %d, want 2", len(locations))
	}

	byUDC := map[string]string{}
	for _, loc := range locations {
		byUDC[loc.UDC] = loc.PositionCode
	}
	if byUDC["UDC1"] != "M2-S2-C2-P2" {
		t.Errorf("UDC1 position = %s, want newest movement M2-S2-C2-P2", byUDC["UDC1"])
	}
	if byUDC["UDC2"] != "M3-S3" {
		t.Errorf("UDC2 position = %s, want M3-S3", byUDC["UDC2"])
	}
}

func TestParseMonitorTimestampedBeatsUntimestamped(t *testing.T) {
	feed := strings.Join([]string{
		"DataOra$Pallet$Mag$Scaf$Col$Pia",
		"$UDC1$M9$S9$C9$P9",
		"15/08/2026 08:00:00$UDC1$M1$S1$C1$P1",
		"$UDC1$M8$S8$C8$P8",
	}, "\n")

	locations, _, err := parseMonitor(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(locations) != 1 {
		t.Fatalf("locations = %d, want 1", len(locations))
	}
	if locations[0].PositionCode != "M1-S1-C1-P1" {
		t.Errorf("position = %s, want the timestamped movement", locations[0].PositionCode)
	}
}

func TestParseMonitorSkipsRowsWithoutPallet(t *testing.T) {
	feed := "DataOra$Pallet$Mag\n15/08/2026 08:00:00$$M1\n"
	locations, records, err := parseMonitor(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if records != 1 || len(locations) != 0 {
		t.Errorf("records/locations = %d/%d, want 1/0", records, len(locations))
	}
}

func TestMonitorDate(t *testing.T) {
	got := monitorDate("MonitorBenettonS2026-08-31F2026-08-31.csv")
	want, _ := time.Parse("2006-01-02", "2026-08-31")
	if got == nil || !got.Equal(want) {
		t.Errorf("monitorDate = %v, want %s", got, want)
	}
	if monitorDate("MonitorBenettonS2026-08-31") != nil {
		t.Error("expected nil for name without F separator")
	}
	if monitorDate("random.csv") != nil {
		t.Error("expected nil for unrelated name")
	}
}

func TestNewerMovement(t *testing.T) {
	early := time.Date(2026, 8, 15, 8, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 15, 14, 0, 0, 0, time.UTC)
	if !newerMovement(&late, &early) {
		t.Error("later timestamp must win")
	}
	if newerMovement(&early, &late) {
		t.Error("earlier timestamp must lose")
	}
	if !newerMovement(&early, nil) {
		t.Error("timestamped must beat untimestamped")
	}
	if newerMovement(nil, &early) {
		t.Error("untimestamped must not beat timestamped")
	}
}
