package service

import (
	"testing"
	"time"

	"github.com/pstracker/backend/internal/models"
)

func TestDeriveItemStatusFoundWhenCoveringCheckPositive(t *testing.T) {
	item := models.MissionItem{SKU: "SKU-A", Status: models.ItemPending}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A", "SKU-B"}, Status: models.CheckFound},
	}
	if got := deriveItemStatus(item, checks); got != models.ItemFound {
		t.Errorf("status = %s, want FOUND", got)
	}
}

func TestDeriveItemStatusPendingWhenOnlyNegativeChecks(t *testing.T) {
	item := models.MissionItem{SKU: "SKU-A", Status: models.ItemPending}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckNotFound},
		{SKUs: []string{"SKU-A"}, Status: models.CheckPending},
	}
	if got := deriveItemStatus(item, checks); got != models.ItemPending {
		t.Errorf("status = %s, want PENDING", got)
	}
}

func TestDeriveItemStatusIgnoresOtherSKUs(t *testing.T) {
	item := models.MissionItem{SKU: "SKU-A", Status: models.ItemPending}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-B"}, Status: models.CheckFound},
	}
	if got := deriveItemStatus(item, checks); got != models.ItemPending {
		t.Errorf("status = %s, want PENDING", got)
	}
}

func TestDeriveItemStatusReopensAfterCorrectiveRecheck(t *testing.T) {
	// A position first recorded FOUND and later corrected to NOT_FOUND
	// must take the item back to PENDING.
	item := models.MissionItem{SKU: "SKU-A", Status: models.ItemFound}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckNotFound},
	}
	if got := deriveItemStatus(item, checks); got != models.ItemPending {
		t.Errorf("status = %s, want PENDING after correction", got)
	}
}

func TestDeriveMissionStatusOpenUntilFirstCheck(t *testing.T) {
	items := []models.MissionItem{{SKU: "SKU-A", Status: models.ItemPending}}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckPending},
		{SKUs: []string{"SKU-A"}, Status: models.CheckPending},
	}
	if got := deriveMissionStatus(items, checks); got != models.MissionOpen {
		t.Errorf("status = %s, want OPEN", got)
	}
}

func TestDeriveMissionStatusInProgressAfterAnyCheck(t *testing.T) {
	items := []models.MissionItem{{SKU: "SKU-A", Status: models.ItemPending}}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckNotFound},
		{SKUs: []string{"SKU-A"}, Status: models.CheckPending},
	}
	if got := deriveMissionStatus(items, checks); got != models.MissionInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got)
	}
}

func TestDeriveMissionStatusResolvedWhenAllItemsFound(t *testing.T) {
	items := []models.MissionItem{
		{SKU: "SKU-A", Status: models.ItemFound},
		{SKU: "SKU-B", Status: models.ItemFound},
	}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A", "SKU-B"}, Status: models.CheckFound},
		{SKUs: []string{"SKU-A"}, Status: models.CheckPending},
	}
	if got := deriveMissionStatus(items, checks); got != models.MissionResolved {
		t.Errorf("status = %s, want RESOLVED", got)
	}
}

func TestDeriveMissionStatusExhaustedRouteStaysInProgress(t *testing.T) {
	// Every position visited, one item still unaccounted for. The
	// mission stays IN_PROGRESS until someone abandons it.
	items := []models.MissionItem{
		{SKU: "SKU-A", Status: models.ItemFound},
		{SKU: "SKU-B", Status: models.ItemPending},
	}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckFound},
		{SKUs: []string{"SKU-B"}, Status: models.CheckNotFound},
	}
	if got := deriveMissionStatus(items, checks); got != models.MissionInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got)
	}
}

func TestDeriveMissionStatusNoItemsNeverResolves(t *testing.T) {
	if got := deriveMissionStatus(nil, nil); got != models.MissionOpen {
		t.Errorf("status = %s, want OPEN for empty mission", got)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	items := []models.MissionItem{
		{SKU: "SKU-A", Status: models.ItemPending},
		{SKU: "SKU-B", Status: models.ItemPending},
	}
	checks := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckFound},
		{SKUs: []string{"SKU-B"}, Status: models.CheckPending},
	}
	for i := range items {
		items[i].Status = deriveItemStatus(items[i], checks)
	}
	first := deriveMissionStatus(items, checks)
	for i := range items {
		items[i].Status = deriveItemStatus(items[i], checks)
	}
	second := deriveMissionStatus(items, checks)
	if first != second {
		t.Errorf("status changed on rederive: %s then %s", first, second)
	}
	if items[0].Status != models.ItemFound || items[1].Status != models.ItemPending {
		t.Errorf("item statuses = %s/%s, want FOUND/PENDING", items[0].Status, items[1].Status)
	}
}

func TestCheckOutcomeOrderIndependence(t *testing.T) {
	// The final state after a set of check outcomes must not depend on
	// the order they were recorded in.
	items := []models.MissionItem{
		{SKU: "SKU-A", Status: models.ItemPending},
		{SKU: "SKU-B", Status: models.ItemPending},
	}
	base := []models.PositionCheck{
		{SKUs: []string{"SKU-A"}, Status: models.CheckFound},
		{SKUs: []string{"SKU-B"}, Status: models.CheckFound},
		{SKUs: []string{"SKU-A", "SKU-B"}, Status: models.CheckNotFound},
	}
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}, {0, 2, 1}, {1, 2, 0}}
	var want models.MissionStatus
	for pi, perm := range perms {
		checks := make([]models.PositionCheck, len(base))
		for i, idx := range perm {
			checks[i] = base[idx]
		}
		derived := make([]models.MissionItem, len(items))
		copy(derived, items)
		for i := range derived {
			derived[i].Status = deriveItemStatus(derived[i], checks)
		}
		got := deriveMissionStatus(derived, checks)
		if pi == 0 {
			want = got
			continue
		}
		if got != want {
			t.Errorf("permutation %v: status = %s, want %s", perm, got, want)
		}
	}
	if want != models.MissionResolved {
		t.Errorf("final status = %s, want RESOLVED", want)
	}
}

func TestTransitionTimesFirstCheckResolvesSetsStartedAt(t *testing.T) {
	now := time.Now()
	mission := &models.Mission{Status: models.MissionOpen}

	startedAt, completedAt := transitionTimes(mission, models.MissionResolved, now)
	if startedAt == nil {
		t.Fatalf("expected started_at on leaving OPEN")
	}
	if completedAt == nil {
		t.Fatalf("expected completed_at on RESOLVED")
	}
	if !startedAt.Equal(now) || !completedAt.Equal(now) {
		t.Errorf("timestamps = %v / %v, want %v", startedAt, completedAt, now)
	}
}

func TestTransitionTimesInProgressSetsOnlyStartedAt(t *testing.T) {
	now := time.Now()
	mission := &models.Mission{Status: models.MissionOpen}

	startedAt, completedAt := transitionTimes(mission, models.MissionInProgress, now)
	if startedAt == nil {
		t.Fatalf("expected started_at")
	}
	if completedAt != nil {
		t.Errorf("completed_at = %v, want nil", completedAt)
	}
}

func TestTransitionTimesKeepsExistingStartedAt(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	now := time.Now()
	mission := &models.Mission{Status: models.MissionInProgress, StartedAt: &earlier}

	startedAt, completedAt := transitionTimes(mission, models.MissionResolved, now)
	if startedAt == nil || !startedAt.Equal(earlier) {
		t.Errorf("started_at = %v, want %v", startedAt, earlier)
	}
	if completedAt == nil || !completedAt.Equal(now) {
		t.Errorf("completed_at = %v, want %v", completedAt, now)
	}
}
