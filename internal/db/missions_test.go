package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsMissionCodeConflict(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "missions_mission_code_key"}
	if !isMissionCodeConflict(dup) {
		t.Errorf("expected duplicate mission_code to be retryable")
	}
	if !isMissionCodeConflict(fmt.Errorf("insert: %w", dup)) {
		t.Errorf("expected wrapped duplicate to be retryable")
	}

	otherConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "shipped_items_cesta_batch_key"}
	if isMissionCodeConflict(otherConstraint) {
		t.Errorf("unrelated unique violation must not be retried")
	}
	otherCode := &pgconn.PgError{Code: "23503", ConstraintName: "missions_mission_code_key"}
	if isMissionCodeConflict(otherCode) {
		t.Errorf("non-unique-violation must not be retried")
	}
	if isMissionCodeConflict(nil) {
		t.Errorf("nil error must not be retried")
	}
	if isMissionCodeConflict(errors.New("connection reset")) {
		t.Errorf("plain error must not be retried")
	}
}
