package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestAuditLogDefaultsEmptyPayloads(t *testing.T) {
	var captured []any
	execer := stubExecer{
		execFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO action_history") {
				t.Fatalf("unexpected query: %s", query)
			}
			captured = args
			return stubResult{rows: 1}, nil
		},
	}
	s := NewAuditStore(stubDB{})
	err := s.Log(context.Background(), execer, "ledger-1", "user-1", "create", "account", "acc-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured[5] != "{}" || captured[6] != "{}" {
		t.Fatalf("empty payloads must default to empty json objects: %v", captured)
	}
}

func TestAuditPurgeReturnsRowCount(t *testing.T) {
	execer := stubExecer{
		execFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM action_history") || !strings.Contains(query, "created_at < $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 42}, nil
		},
	}
	purged, err := NewAuditStore(stubDB{}).PurgeOlderThan(context.Background(), execer, testDate(2025, 9, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 42 {
		t.Fatalf("expected 42 purged rows, got %d", purged)
	}
}

func TestAuditListPaginates(t *testing.T) {
	db := stubDB{
		selectFn: func(ctx context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "LIMIT $2 OFFSET $3") {
				t.Fatalf("listing must paginate: %s", query)
			}
			if args[0] != "ledger-1" || args[1] != 50 || args[2] != 10 {
				t.Fatalf("unexpected args: %v", args)
			}
			return nil
		},
	}
	if _, err := NewAuditStore(db).ListByLedger(context.Background(), "ledger-1", 50, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
