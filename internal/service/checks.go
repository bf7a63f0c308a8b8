package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/models"
)

// CheckService records position check outcomes and keeps item and
// mission statuses consistent with them. All mutation of one mission is
// serialized through an advisory lock, so concurrent operators on the
// same mission apply in some order instead of clobbering each other.
type CheckService struct {
	Store *db.Store
	Log   zerolog.Logger
}

// UpdateCheck records the outcome of visiting one position. Item and
// mission statuses are rederived from the full check set, so a
// corrective re-check of a position flows through naturally.
func (c *CheckService) UpdateCheck(ctx context.Context, checkID int64, outcome models.CheckOutcome, checkedBy, notes string) (*models.Mission, error) {
	if !outcome.Valid() {
		return nil, errs.Validation("outcome must be FOUND or NOT_FOUND, got %q", outcome)
	}
	check, err := c.Get(ctx, checkID)
	if err != nil {
		return nil, err
	}

	var updated *models.Mission
	err = c.Store.WithMissionLock(ctx, check.MissionID, func(tx pgx.Tx) error {
		mission, err := c.Store.GetMissionTx(ctx, tx, check.MissionID)
		if err != nil {
			return errs.DB(err, "loading mission %d", check.MissionID)
		}
		if mission.Status.Terminal() {
			return errs.Conflict("mission %s is %s and accepts no further checks", mission.MissionCode, mission.Status)
		}

		now := time.Now()
		var target *models.PositionCheck
		for i := range mission.Checks {
			if mission.Checks[i].ID == checkID {
				target = &mission.Checks[i]
				break
			}
		}
		if target == nil {
			return errs.NotFound("check %d not found on mission %s", checkID, mission.MissionCode)
		}
		target.Status = checkStatusFor(outcome)
		target.CheckedBy = checkedBy
		target.CheckedAt = &now
		target.Notes = notes
		if err := c.Store.UpdateCheckTx(ctx, tx, *target); err != nil {
			return errs.DB(err, "updating check %d", checkID)
		}

		for i := range mission.Items {
			status := deriveItemStatus(mission.Items[i], mission.Checks)
			if status == mission.Items[i].Status {
				continue
			}
			var resolvedAt *time.Time
			if status == models.ItemFound {
				resolvedAt = &now
			}
			mission.Items[i].Status = status
			mission.Items[i].ResolvedAt = resolvedAt
			if err := c.Store.UpdateItemStatusTx(ctx, tx, mission.Items[i].ID, status, resolvedAt); err != nil {
				return errs.DB(err, "updating item %d", mission.Items[i].ID)
			}
		}

		next := deriveMissionStatus(mission.Items, mission.Checks)
		if next != mission.Status {
			startedAt, completedAt := transitionTimes(mission, next, now)
			mission.Status = next
			mission.StartedAt = startedAt
			mission.CompletedAt = completedAt
			if err := c.Store.UpdateMissionStatusTx(ctx, tx, mission.ID, next, startedAt, completedAt); err != nil {
				return errs.DB(err, "updating mission %d status", mission.ID)
			}
		}
		updated = mission
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Log.Info().Int64("check_id", checkID).Str("outcome", string(outcome)).
		Str("mission_code", updated.MissionCode).Str("mission_status", string(updated.Status)).
		Msg("position check recorded")
	return updated, nil
}

// Abandon closes a mission early. Items still pending are marked
// NOT_FOUND so the mission leaves an honest record of what the search
// did not recover.
func (c *CheckService) Abandon(ctx context.Context, missionID int64, by string) (*models.Mission, error) {
	var updated *models.Mission
	err := c.Store.WithMissionLock(ctx, missionID, func(tx pgx.Tx) error {
		mission, err := c.Store.GetMissionTx(ctx, tx, missionID)
		if err != nil {
			return missionLoadError(err, missionID)
		}
		if mission.Status.Terminal() {
			return errs.Conflict("mission %s is already %s", mission.MissionCode, mission.Status)
		}

		now := time.Now()
		for i := range mission.Items {
			if mission.Items[i].Status != models.ItemPending {
				continue
			}
			mission.Items[i].Status = models.ItemNotFound
			if err := c.Store.UpdateItemStatusTx(ctx, tx, mission.Items[i].ID, models.ItemNotFound, nil); err != nil {
				return errs.DB(err, "updating item %d", mission.Items[i].ID)
			}
		}
		mission.Status = models.MissionAbandoned
		mission.CompletedAt = &now
		if err := c.Store.UpdateMissionStatusTx(ctx, tx, mission.ID, models.MissionAbandoned, mission.StartedAt, &now); err != nil {
			return errs.DB(err, "abandoning mission %d", mission.ID)
		}
		updated = mission
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Log.Info().Str("mission_code", updated.MissionCode).Str("by", by).Msg("mission abandoned")
	return updated, nil
}

func (c *CheckService) Get(ctx context.Context, checkID int64) (*models.PositionCheck, error) {
	check, err := c.Store.GetCheck(ctx, checkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("check %d not found", checkID)
		}
		return nil, errs.DB(err, "loading check %d", checkID)
	}
	return check, nil
}

func checkStatusFor(outcome models.CheckOutcome) models.CheckStatus {
	if outcome == models.OutcomeFound {
		return models.CheckFound
	}
	return models.CheckNotFound
}

// deriveItemStatus computes an item's status from the current check set.
// An item is FOUND when any position covering its SKU was checked with a
// positive outcome. Items are never marked NOT_FOUND here; that verdict
// is only given when the mission is abandoned.
func deriveItemStatus(item models.MissionItem, checks []models.PositionCheck) models.ItemStatus {
	for _, c := range checks {
		if c.Status != models.CheckFound {
			continue
		}
		for _, sku := range c.SKUs {
			if sku == item.SKU {
				return models.ItemFound
			}
		}
	}
	return models.ItemPending
}

// transitionTimes returns the started and completed timestamps for a
// mission moving to next. A mission that resolves on its very first
// check still gets a start time; leaving OPEN is what starts it, not
// reaching IN_PROGRESS specifically.
func transitionTimes(m *models.Mission, next models.MissionStatus, now time.Time) (startedAt, completedAt *time.Time) {
	startedAt = m.StartedAt
	if startedAt == nil && next != models.MissionOpen {
		startedAt = &now
	}
	completedAt = m.CompletedAt
	if next == models.MissionResolved {
		completedAt = &now
	}
	return startedAt, completedAt
}

// deriveMissionStatus computes the mission status from its children.
// Every item found resolves the mission. Any recorded check moves it to
// IN_PROGRESS, including the case where every position was visited but
// items are still unaccounted for.
func deriveMissionStatus(items []models.MissionItem, checks []models.PositionCheck) models.MissionStatus {
	allFound := len(items) > 0
	for _, it := range items {
		if it.Status != models.ItemFound {
			allFound = false
			break
		}
	}
	if allFound {
		return models.MissionResolved
	}
	for _, c := range checks {
		if c.Status != models.CheckPending {
			return models.MissionInProgress
		}
	}
	return models.MissionOpen
}
