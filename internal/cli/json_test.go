package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/lu-zhengda/contactsync/internal/app"
	"github.com/lu-zhengda/contactsync/internal/domain"
)

func TestFprintJSON(t *testing.T) {
	t.Run("simple struct", func(t *testing.T) {
		var buf bytes.Buffer
		input := map[string]string{"key": "value"}

		if err := fprintJSON(&buf, input); err != nil {
			t.Fatalf("fprintJSON() error = %v", err)
		}

		var got map[string]string
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if got["key"] != "value" {
			t.Errorf("got key=%q, want %q", got["key"], "value")
		}
	})

	t.Run("indented output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := fprintJSON(&buf, map[string]int{"a": 1}); err != nil {
			t.Fatalf("fprintJSON() error = %v", err)
		}
		if buf.String() == `{"a":1}`+"\n" {
			t.Error("expected indented JSON, got compact")
		}
	})

	t.Run("empty slice", func(t *testing.T) {
		var buf bytes.Buffer
		if err := fprintJSON(&buf, []string{}); err != nil {
			t.Fatalf("fprintJSON() error = %v", err)
		}
		if got := buf.String(); got != "[]\n" {
			t.Errorf("got %q, want %q", got, "[]\n")
		}
	})
}

func TestToJSONRunSummary(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := app.NewState("run-1", []string{"a", "b"}).
		WithCurrent(domain.AccountDone, "worker pid 7 launched", app.PhaseSyncing).
		WithWorker(domain.WorkerHandle{AccountID: "a", PID: 7, StartedAt: started, Status: domain.WorkerLaunched}).
		Halt("stopped by operator")

	got := toJSONRunSummary(s)

	if got.RunID != "run-1" || !got.Finished {
		t.Errorf("summary = %+v", got)
	}
	if len(got.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(got.Accounts))
	}
	if got.Accounts[0].State != "DONE" || got.Accounts[1].State != "SKIPPED" {
		t.Errorf("states = %s, %s", got.Accounts[0].State, got.Accounts[1].State)
	}
	if got.Accounts[1].Detail != "stopped by operator" {
		t.Errorf("detail = %q", got.Accounts[1].Detail)
	}
	if len(got.Workers) != 1 || got.Workers[0].StartedAt != "2025-03-01T12:00:00Z" {
		t.Errorf("workers = %+v", got.Workers)
	}
}

func TestToJSONRunSummary_EmptyWorkers(t *testing.T) {
	got := toJSONRunSummary(app.NewState("run-1", []string{"a"}))

	var buf bytes.Buffer
	if err := fprintJSON(&buf, got); err != nil {
		t.Fatalf("fprintJSON() error = %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if workers, ok := parsed["workers"].([]any); !ok || len(workers) != 0 {
		t.Errorf("workers = %v, want empty array", parsed["workers"])
	}
}

func TestToJSONRuns(t *testing.T) {
	runs := []domain.Run{
		{ID: "r2", StartedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Accounts: 3},
		{
			ID:         "r1",
			StartedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			FinishedAt: time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC),
			Accounts:   1,
		},
	}

	got := toJSONRuns(runs)

	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].FinishedAt != "" {
		t.Errorf("unfinished run has finished_at %q", got[0].FinishedAt)
	}
	if got[1].FinishedAt != "2025-01-01T00:05:00Z" {
		t.Errorf("finished_at = %q", got[1].FinishedAt)
	}
	if got[0].Accounts != 3 {
		t.Errorf("accounts = %d, want 3", got[0].Accounts)
	}
}

func TestToJSONAccountEvents(t *testing.T) {
	events := []domain.AccountEvent{
		{RunID: "r1", AccountID: "a", State: domain.AccountSyncing, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{RunID: "r1", AccountID: "a", State: domain.AccountSkipped, Detail: "authorization rejected"},
	}

	got := toJSONAccountEvents(events)

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].State != "SYNCING" || got[0].CreatedAt != "2025-01-01T00:00:00Z" {
		t.Errorf("event 0 = %+v", got[0])
	}
	if got[1].Detail != "authorization rejected" {
		t.Errorf("detail = %q", got[1].Detail)
	}
}

func TestToJSONWorkerResults(t *testing.T) {
	results := []domain.WorkerResult{
		{RunID: "r1", AccountID: "a", PID: 10, Deleted: 2, Created: 5},
		{RunID: "r1", AccountID: "b", PID: 11, Error: "auth error: token revoked"},
	}

	got := toJSONWorkerResults(results)

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Status != "succeeded" || got[0].Created != 5 {
		t.Errorf("result 0 = %+v", got[0])
	}
	if got[1].Status != "failed" || got[1].Error == "" {
		t.Errorf("result 1 = %+v", got[1])
	}
}
