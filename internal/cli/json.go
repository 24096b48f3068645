package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lu-zhengda/contactsync/internal/app"
	"github.com/lu-zhengda/contactsync/internal/domain"
)

// printJSON encodes v as indented JSON to stdout.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

// fprintJSON encodes v as indented JSON to w.
func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Account JSON types (accounts list, auth-url)
// ---------------------------------------------------------------------------

type jsonAccountGrant struct {
	ID    string `json:"id"`
	Grant string `json:"grant"`
	Error string `json:"error,omitempty"`
}

type jsonAuthURL struct {
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

// ---------------------------------------------------------------------------
// Run summary JSON type (run)
// ---------------------------------------------------------------------------

type jsonAccountStatus struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

type jsonWorkerHandle struct {
	AccountID string `json:"account_id"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
	Status    string `json:"status"`
}

type jsonRunSummary struct {
	RunID    string              `json:"run_id"`
	Finished bool                `json:"finished"`
	Accounts []jsonAccountStatus `json:"accounts"`
	Workers  []jsonWorkerHandle  `json:"workers"`
}

func toJSONRunSummary(s app.State) jsonRunSummary {
	out := jsonRunSummary{
		RunID:    s.RunID,
		Finished: s.Finished(),
		Accounts: make([]jsonAccountStatus, 0, len(s.Accounts)),
		Workers:  make([]jsonWorkerHandle, 0, len(s.Workers)),
	}
	for _, a := range s.Accounts {
		out.Accounts = append(out.Accounts, jsonAccountStatus{ID: a.ID, State: string(a.State), Detail: a.Detail})
	}
	for _, h := range s.Workers {
		out.Workers = append(out.Workers, jsonWorkerHandle{
			AccountID: h.AccountID,
			PID:       h.PID,
			StartedAt: h.StartedAt.Format(time.RFC3339),
			Status:    string(h.Status),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Journal JSON types (history)
// ---------------------------------------------------------------------------

type jsonRun struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Accounts   int    `json:"accounts"`
}

func toJSONRuns(runs []domain.Run) []jsonRun {
	out := make([]jsonRun, 0, len(runs))
	for _, r := range runs {
		j := jsonRun{ID: r.ID, StartedAt: r.StartedAt.Format(time.RFC3339), Accounts: r.Accounts}
		if !r.FinishedAt.IsZero() {
			j.FinishedAt = r.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, j)
	}
	return out
}

type jsonAccountEvent struct {
	AccountID string `json:"account_id"`
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toJSONAccountEvents(events []domain.AccountEvent) []jsonAccountEvent {
	out := make([]jsonAccountEvent, 0, len(events))
	for _, e := range events {
		out = append(out, jsonAccountEvent{
			AccountID: e.AccountID,
			State:     string(e.State),
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

type jsonWorkerResult struct {
	AccountID  string `json:"account_id"`
	PID        int    `json:"pid"`
	Status     string `json:"status"`
	Deleted    int    `json:"deleted"`
	Created    int    `json:"created"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
	FinishedAt string `json:"finished_at"`
}

func toJSONWorkerResults(results []domain.WorkerResult) []jsonWorkerResult {
	out := make([]jsonWorkerResult, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, jsonWorkerResult{
			AccountID:  r.AccountID,
			PID:        r.PID,
			Status:     string(r.Status()),
			Deleted:    r.Deleted,
			Created:    r.Created,
			Failed:     r.Failed,
			Error:      r.Error,
			FinishedAt: r.FinishedAt.Format(time.RFC3339),
		})
	}
	return out
}

type jsonRunDetail struct {
	RunID   string             `json:"run_id"`
	Events  []jsonAccountEvent `json:"events"`
	Workers []jsonWorkerResult `json:"workers"`
}

// ---------------------------------------------------------------------------
// Action JSON type (accounts forget)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK        bool   `json:"ok"`
	Action    string `json:"action"`
	AccountID string `json:"account_id,omitempty"`
}
