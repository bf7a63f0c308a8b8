package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/service"
)

// Scheduler runs the nightly feed import on a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	imports *service.ImportService
	log     zerolog.Logger
}

func New(imports *service.ImportService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		imports: imports,
		log:     log,
	}
}

// Start registers the daily job and starts the cron loop. The spec is
// standard five-field cron, typically "0 5 * * *" to run after the
// overnight file drop.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Info().Msg("running scheduled daily import")
		s.imports.RunDaily(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", spec).Msg("import scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("import scheduler stopped")
}
