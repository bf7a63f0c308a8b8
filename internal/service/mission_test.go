package service

import (
	"testing"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/models"
)

func lst(v int64) *int64 { return &v }

func TestBuildChecksDeduplicatesPositions(t *testing.T) {
	missing := []models.MissingItem{
		{SKU: "SKU-A", Listone: lst(100), QtyMissing: dec("1")},
		{SKU: "SKU-B", Listone: lst(100), QtyMissing: dec("2")},
	}
	candidates := []db.PositionCandidate{
		{SKU: "SKU-A", Listone: 100, UDC: "UDC1", PositionCode: "M1-S2-C3-P4"},
		{SKU: "SKU-B", Listone: 100, UDC: "UDC1", PositionCode: "M1-S2-C3-P4"},
	}
	checks := buildChecks(missing, candidates)
	if len(checks) != 1 {
		t.Fatalf("expected 1 deduplicated check, got %d", len(checks))
	}
	if got := checks[0].SKUs; len(got) != 2 || got[0] != "SKU-A" || got[1] != "SKU-B" {
		t.Errorf("check SKUs = %v, want [SKU-A SKU-B]", got)
	}
}

func TestBuildChecksAlphabeticalRouteWithUDCTiebreak(t *testing.T) {
	missing := []models.MissingItem{
		{SKU: "SKU-A", Listone: lst(100), QtyMissing: dec("1")},
	}
	candidates := []db.PositionCandidate{
		{SKU: "SKU-A", Listone: 100, UDC: "UDC9", PositionCode: "M2-S1-C1-P1"},
		{SKU: "SKU-A", Listone: 100, UDC: "UDC2", PositionCode: "M1-S1-C1-P1"},
		{SKU: "SKU-A", Listone: 100, UDC: "UDC1", PositionCode: "M1-S1-C1-P1"},
	}
	checks := buildChecks(missing, candidates)
	if len(checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(checks))
	}
	want := []struct {
		code string
		udc  string
	}{
		{"M1-S1-C1-P1", "UDC1"},
		{"M1-S1-C1-P1", "UDC2"},
		{"M2-S1-C1-P1", "UDC9"},
	}
	for i, w := range want {
		if checks[i].PositionCode != w.code || checks[i].UDC != w.udc {
			t.Errorf("check %d = %s/%s, want %s/%s", i, checks[i].PositionCode, checks[i].UDC, w.code, w.udc)
		}
		if checks[i].Ordinal != i+1 {
			t.Errorf("check %d ordinal = %d, want %d", i, checks[i].Ordinal, i+1)
		}
	}
}

func TestBuildChecksFiltersByListone(t *testing.T) {
	missing := []models.MissingItem{
		{SKU: "SKU-A", Listone: lst(100), QtyMissing: dec("1")},
	}
	candidates := []db.PositionCandidate{
		{SKU: "SKU-A", Listone: 100, UDC: "UDC1", PositionCode: "M1-S1-C1-P1"},
		{SKU: "SKU-A", Listone: 200, UDC: "UDC2", PositionCode: "M2-S1-C1-P1"},
	}
	checks := buildChecks(missing, candidates)
	if len(checks) != 1 {
		t.Fatalf("expected 1 check after listone filter, got %d", len(checks))
	}
	if checks[0].UDC != "UDC1" {
		t.Errorf("kept UDC = %s, want UDC1", checks[0].UDC)
	}
}

func TestBuildChecksMissingListoneMatchesAnyCandidate(t *testing.T) {
	missing := []models.MissingItem{
		{SKU: "SKU-A", QtyMissing: dec("1")},
	}
	candidates := []db.PositionCandidate{
		{SKU: "SKU-A", Listone: 100, UDC: "UDC1", PositionCode: "M1-S1-C1-P1"},
		{SKU: "SKU-A", Listone: 200, UDC: "UDC2", PositionCode: "M2-S1-C1-P1"},
	}
	if got := len(buildChecks(missing, candidates)); got != 2 {
		t.Fatalf("expected both candidates kept when listone is unknown, got %d", got)
	}
}

func TestBuildChecksNoCandidates(t *testing.T) {
	missing := []models.MissingItem{
		{SKU: "SKU-A", Listone: lst(100), QtyMissing: dec("1")},
	}
	if got := buildChecks(missing, nil); len(got) != 0 {
		t.Fatalf("expected no checks without candidates, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	mission := &models.Mission{
		ID:          7,
		MissionCode: "PSM-20260901-001",
		Cesta:       "CESTA-1",
		Status:      models.MissionInProgress,
		Items: []models.MissionItem{
			{Status: models.ItemFound},
			{Status: models.ItemPending},
			{Status: models.ItemPending},
		},
		Checks: []models.PositionCheck{
			{Status: models.CheckFound},
			{Status: models.CheckNotFound},
			{Status: models.CheckPending},
			{Status: models.CheckPending},
		},
	}
	s := summarize(mission)
	if s.TotalMissingItems != 3 || s.ResolvedItems != 1 {
		t.Errorf("items = %d resolved %d, want 3 resolved 1", s.TotalMissingItems, s.ResolvedItems)
	}
	if s.PositionsPending != 2 || s.PositionsFound != 1 || s.PositionsNotFound != 1 {
		t.Errorf("positions pending/found/notfound = %d/%d/%d, want 2/1/1",
			s.PositionsPending, s.PositionsFound, s.PositionsNotFound)
	}
	if s.CompletionPct != 50 {
		t.Errorf("completion = %.1f, want 50", s.CompletionPct)
	}
}

func TestSummarizeEmptyMission(t *testing.T) {
	s := summarize(&models.Mission{Status: models.MissionOpen, ManualHandling: true})
	if s.CompletionPct != 0 {
		t.Errorf("completion = %.1f, want 0", s.CompletionPct)
	}
	if !s.ManualHandling {
		t.Error("manual handling flag lost in summary")
	}
}
