// Package callback serves the OAuth redirect endpoint and the operator routes
// of a running sync.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/lu-zhengda/contactsync/internal/app"
	"github.com/lu-zhengda/contactsync/internal/store"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token. *oauth2.Config
// satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// Controller is the part of app.Controller the routes drive.
type Controller interface {
	GrantStored(accountID string)
	Decide(accountID string, proceed bool) error
	Status(ctx context.Context) app.State
}

// Server is an http.Handler for the callback and operator routes.
type Server struct {
	exchanger Exchanger
	store     store.TokenStore
	accounts  []string
	ctrl      Controller
	mux       *http.ServeMux
}

func NewServer(exchanger Exchanger, tokens store.TokenStore, accounts []string, ctrl Controller) *Server {
	s := &Server{
		exchanger: exchanger,
		store:     tokens,
		accounts:  accounts,
		ctrl:      ctrl,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /oauth2callback", s.handleCallback)
	s.mux.HandleFunc("GET /continue", s.handleContinue)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Server is running.")
}

const reauthorizeMessage = "Error during authorization. Please reauthorize by visiting the authorization URL again."

// handleCallback always answers 200; failures are told apart by the body.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		if reason := q.Get("error"); reason != "" {
			log.Printf("[auth] callback without code: %s", reason)
		}
		fmt.Fprint(w, "Error: No code provided")
		return
	}

	accountID := q.Get("account")
	if accountID == "" {
		accountID = q.Get("state")
	}
	if accountID == "" {
		fmt.Fprint(w, "Error: No account provided")
		return
	}
	if !slices.Contains(s.accounts, accountID) {
		log.Printf("[auth] callback for unknown account %q rejected", accountID)
		fmt.Fprint(w, "Error: Unknown account")
		return
	}

	token, err := s.exchanger.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("[auth] failed to exchange authorization code for %s: %v", accountID, err)
		fmt.Fprint(w, reauthorizeMessage)
		return
	}
	if err := s.store.SaveGrant(accountID, token); err != nil {
		log.Printf("[auth] failed to save grant for %s: %v", accountID, err)
		fmt.Fprint(w, reauthorizeMessage)
		return
	}

	log.Printf("[auth] grant saved for %s", accountID)
	s.ctrl.GrantStored(accountID)
	fmt.Fprint(w, "Authorization successful! You can close this window.")
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	proceed, ok := app.ParseAnswer(q.Get("proceed"))
	if !ok {
		http.Error(w, "Error: proceed must be y or n", http.StatusBadRequest)
		return
	}
	err := s.ctrl.Decide(q.Get("account"), proceed)
	switch {
	case errors.Is(err, app.ErrNoDecisionPending), errors.Is(err, app.ErrNotRunning):
		http.Error(w, "Error: "+err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if proceed {
		fmt.Fprint(w, "Continuing with the next account.")
		return
	}
	fmt.Fprint(w, "Stopping further authorizations and contact syncing.")
}

type accountJSON struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

type workerJSON struct {
	Account   string    `json:"account"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
}

type statusJSON struct {
	RunID    string        `json:"run_id"`
	Phase    string        `json:"phase"`
	Position int           `json:"position"`
	AuthURL  string        `json:"auth_url,omitempty"`
	Accounts []accountJSON `json:"accounts"`
	Workers  []workerJSON  `json:"workers"`
}

func toStatusJSON(st app.State) statusJSON {
	out := statusJSON{
		RunID:    st.RunID,
		Phase:    string(st.Phase),
		Position: st.Position,
		AuthURL:  st.AuthURL,
		Accounts: make([]accountJSON, len(st.Accounts)),
		Workers:  make([]workerJSON, len(st.Workers)),
	}
	for i, a := range st.Accounts {
		out.Accounts[i] = accountJSON{ID: a.ID, State: string(a.State), Detail: a.Detail}
	}
	for i, h := range st.Workers {
		out.Workers[i] = workerJSON{Account: h.AccountID, PID: h.PID, StartedAt: h.StartedAt, Status: string(h.Status)}
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toStatusJSON(s.ctrl.Status(r.Context()))); err != nil {
		log.Printf("[auth] failed to write status: %v", err)
	}
}
