package service

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/models"
)

// MissionService turns reconciliation results into search missions and
// serves their route views.
type MissionService struct {
	Store      *db.Store
	Reconciler *Reconciler
	Log        zerolog.Logger
}

// Create reconciles a basket and persists a mission covering every
// missing item, with one position check per distinct warehouse position
// that may hold one of the missing SKUs. A mission with no reachable
// positions is still created, flagged for manual handling.
func (m *MissionService) Create(ctx context.Context, cesta, createdBy string) (*models.Mission, error) {
	batchID, err := m.Reconciler.CurrentBatch(ctx)
	if err != nil {
		return nil, err
	}
	missing, err := m.Reconciler.DetectMissing(ctx, cesta, batchID)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, errs.Validation("basket %s has no missing items, nothing to search for", cesta)
	}

	skus := make([]string, 0, len(missing))
	seen := map[string]bool{}
	for _, mi := range missing {
		if !seen[mi.SKU] {
			seen[mi.SKU] = true
			skus = append(skus, mi.SKU)
		}
	}
	candidates, err := m.Store.CandidatePositions(ctx, skus)
	if err != nil {
		return nil, errs.DB(err, "loading candidate positions for basket %s", cesta)
	}
	checks := buildChecks(missing, candidates)

	mission := &models.Mission{
		Cesta:          cesta,
		BatchID:        batchID,
		Status:         models.MissionOpen,
		ManualHandling: len(checks) == 0,
		CreatedBy:      createdBy,
		Items:          missionItems(missing),
		Checks:         checks,
	}
	if err := m.Store.CreateMission(ctx, mission); err != nil {
		return nil, errs.DB(err, "creating mission for basket %s", cesta)
	}

	m.Log.Info().Str("mission_code", mission.MissionCode).Str("cesta", cesta).
		Int("items", len(mission.Items)).Int("positions", len(mission.Checks)).
		Bool("manual_handling", mission.ManualHandling).
		Msg("mission created")
	return mission, nil
}

func missionItems(missing []models.MissingItem) []models.MissionItem {
	items := make([]models.MissionItem, 0, len(missing))
	for _, mi := range missing {
		items = append(items, models.MissionItem{
			NOrdine:    mi.NOrdine,
			NLista:     mi.NLista,
			Listone:    mi.Listone,
			SKU:        mi.SKU,
			QtyOrdered: mi.QtyOrdered,
			QtyShipped: mi.QtyShipped,
			QtyMissing: mi.QtyMissing,
			Status:     models.ItemPending,
		})
	}
	return items
}

// buildChecks deduplicates candidate positions into an ordered route.
// Each position appears once and carries every missing SKU it may hold.
// The route walks positions alphabetically, ties broken by UDC, so an
// operator sweeps the warehouse in one pass.
func buildChecks(missing []models.MissingItem, candidates []db.PositionCandidate) []models.PositionCheck {
	// Candidates come filtered by SKU but a listone match must also hold
	// when the missing item has one recorded.
	listoneBySKU := map[string]map[int64]bool{}
	anyListone := map[string]bool{}
	for _, mi := range missing {
		if mi.Listone == nil {
			anyListone[mi.SKU] = true
			continue
		}
		if listoneBySKU[mi.SKU] == nil {
			listoneBySKU[mi.SKU] = map[int64]bool{}
		}
		listoneBySKU[mi.SKU][*mi.Listone] = true
	}

	type posKey struct {
		code string
		udc  string
	}
	skusAt := map[posKey]map[string]bool{}
	for _, c := range candidates {
		if !anyListone[c.SKU] && !listoneBySKU[c.SKU][c.Listone] {
			continue
		}
		k := posKey{c.PositionCode, c.UDC}
		if skusAt[k] == nil {
			skusAt[k] = map[string]bool{}
		}
		skusAt[k][c.SKU] = true
	}

	checks := make([]models.PositionCheck, 0, len(skusAt))
	for k, skuSet := range skusAt {
		skus := make([]string, 0, len(skuSet))
		for sku := range skuSet {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		checks = append(checks, models.PositionCheck{
			PositionCode: k.code,
			UDC:          k.udc,
			SKUs:         skus,
			Status:       models.CheckPending,
		})
	}
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].PositionCode != checks[j].PositionCode {
			return checks[i].PositionCode < checks[j].PositionCode
		}
		return checks[i].UDC < checks[j].UDC
	})
	for i := range checks {
		checks[i].Ordinal = i + 1
	}
	return checks
}

func (m *MissionService) Get(ctx context.Context, id int64) (*models.Mission, error) {
	mission, err := m.Store.GetMission(ctx, id)
	if err != nil {
		return nil, missionLoadError(err, id)
	}
	return mission, nil
}

func missionLoadError(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound("mission %d not found", id)
	}
	return errs.DB(err, "loading mission %d", id)
}

func (m *MissionService) List(ctx context.Context, status string, limit int) ([]models.Mission, error) {
	if status != "" {
		switch models.MissionStatus(status) {
		case models.MissionOpen, models.MissionInProgress, models.MissionResolved, models.MissionAbandoned:
		default:
			return nil, errs.Validation("unknown mission status %q", status)
		}
	}
	missions, err := m.Store.ListMissions(ctx, status, limit)
	if err != nil {
		return nil, errs.DB(err, "listing missions")
	}
	return missions, nil
}

// Route returns the mission's position checks in walking order.
func (m *MissionService) Route(ctx context.Context, id int64) ([]models.PositionCheck, error) {
	mission, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	checks := append([]models.PositionCheck(nil), mission.Checks...)
	sort.Slice(checks, func(i, j int) bool { return checks[i].Ordinal < checks[j].Ordinal })
	return checks, nil
}

// NextPosition returns the first pending check on the route, or nil when
// every position has been visited.
func (m *MissionService) NextPosition(ctx context.Context, id int64) (*models.PositionCheck, error) {
	checks, err := m.Route(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range checks {
		if checks[i].Status == models.CheckPending {
			return &checks[i], nil
		}
	}
	return nil, nil
}

func (m *MissionService) Summary(ctx context.Context, id int64) (*models.MissionSummary, error) {
	mission, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return summarize(mission), nil
}

func summarize(mission *models.Mission) *models.MissionSummary {
	s := &models.MissionSummary{
		MissionID:      mission.ID,
		MissionCode:    mission.MissionCode,
		Cesta:          mission.Cesta,
		Status:         mission.Status,
		ManualHandling: mission.ManualHandling,
		CreatedBy:      mission.CreatedBy,
		CreatedAt:      mission.CreatedAt,
	}
	s.TotalMissingItems = len(mission.Items)
	for _, it := range mission.Items {
		if it.Status == models.ItemFound {
			s.ResolvedItems++
		}
	}
	s.TotalPositions = len(mission.Checks)
	for _, c := range mission.Checks {
		switch c.Status {
		case models.CheckPending:
			s.PositionsPending++
		case models.CheckFound:
			s.PositionsFound++
		case models.CheckNotFound:
			s.PositionsNotFound++
		}
	}
	if s.TotalPositions > 0 {
		s.CompletionPct = float64(s.TotalPositions-s.PositionsPending) / float64(s.TotalPositions) * 100
	}
	return s
}
