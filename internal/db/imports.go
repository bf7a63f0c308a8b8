package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pstracker/backend/internal/models"
)

// LatestBatchID returns the id of the newest successful DumpTrack import.
// Reconciliation pins this value so a run never mixes two daily snapshots.
func (s *Store) LatestBatchID(ctx context.Context) (int64, bool, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, `
		SELECT id FROM import_log
		WHERE source_type = 'DUMPTRACK' AND status = 'SUCCESS'
		ORDER BY import_completed_at DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) IsFileImported(ctx context.Context, sourceType, fileHash string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM import_log WHERE source_type = $1 AND file_hash = $2 AND status = 'SUCCESS'
		)
	`, sourceType, fileHash).Scan(&exists)
	return exists, err
}

func (s *Store) StartImport(ctx context.Context, log models.ImportLog) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO import_log (source_type, file_path, file_hash, file_date, records_imported, status, import_started_at)
		VALUES ($1,$2,$3,$4,0,'RUNNING',NOW())
		RETURNING id
	`, log.SourceType, log.FilePath, log.FileHash, log.FileDate).Scan(&id)
	return id, err
}

func (s *Store) FinishImport(ctx context.Context, id int64, records int, status, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE import_log
		SET records_imported = $1, status = $2, error_message = $3, import_completed_at = NOW()
		WHERE id = $4
	`, records, status, errMsg, id)
	return err
}

type SourceStatus struct {
	LastImport *time.Time `json:"last_import"`
	Records    int        `json:"records_imported"`
	FileDate   *time.Time `json:"file_date"`
}

type ImportStatus struct {
	TotalImports      int                     `json:"total_imports"`
	SuccessfulImports int                     `json:"successful_imports"`
	FailedImports     int                     `json:"failed_imports"`
	Latest            map[string]SourceStatus `json:"latest_imports"`
}

func (s *Store) GetImportStatus(ctx context.Context, sources []string) (*ImportStatus, error) {
	out := &ImportStatus{Latest: map[string]SourceStatus{}}
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'SUCCESS'),
			COUNT(*) FILTER (WHERE status = 'FAILED')
		FROM import_log
	`).Scan(&out.TotalImports, &out.SuccessfulImports, &out.FailedImports)
	if err != nil {
		return nil, err
	}

	for _, src := range sources {
		var st SourceStatus
		err := s.Pool.QueryRow(ctx, `
			SELECT import_completed_at, records_imported, file_date
			FROM import_log
			WHERE source_type = $1 AND status = 'SUCCESS'
			ORDER BY import_completed_at DESC LIMIT 1
		`, src).Scan(&st.LastImport, &st.Records, &st.FileDate)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		out.Latest[src] = st
	}
	return out, nil
}
