package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/services"
)

func TestSetGoalForwardsTargetDate(t *testing.T) {
	var captured services.GoalRequest
	h := newTestHandler(testDeps{
		goals: stubGoalService{
			setGoalFn: func(ctx context.Context, userID string, req services.GoalRequest) (string, error) {
				captured = req
				return "goal-2", nil
			},
		},
	})

	body := `{"category_id":"cat-vacation","goal_type":"target_by_date","target_amount":"400.00","target_date":"2026-04-15"}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/goals", strings.NewReader(body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.GoalType != "target_by_date" || captured.TargetAmount != 40000 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.TargetDate == nil || captured.TargetDate.Format("2006-01-02") != "2026-04-15" {
		t.Fatalf("unexpected target date %v", captured.TargetDate)
	}
}

func TestSetGoalUnknownTypeMaps400(t *testing.T) {
	h := newTestHandler(testDeps{
		goals: stubGoalService{
			setGoalFn: func(ctx context.Context, userID string, req services.GoalRequest) (string, error) {
				return "", services.ErrMissingField
			},
		},
	})

	body := `{"category_id":"cat-vacation","goal_type":"someday","target_amount":"400.00"}`
	rr := serveAuthed(t, h, http.MethodPost, "/ledgers/ledger-1/goals", strings.NewReader(body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGoalProgressUsesURLCategory(t *testing.T) {
	h := newTestHandler(testDeps{
		goals: stubGoalService{
			progressFn: func(ctx context.Context, userID, ledgerID, categoryID string, period dates.Month) (services.GoalProgress, error) {
				if categoryID != "cat-vacation" {
					t.Fatalf("unexpected category %q", categoryID)
				}
				if period.String() != "2026-03" {
					t.Fatalf("unexpected period %s", period)
				}
				return services.GoalProgress{CategoryID: categoryID}, nil
			},
		},
	})

	rr := serveAuthed(t, h, http.MethodGet, "/ledgers/ledger-1/goals/cat-vacation?month=2026-03", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
