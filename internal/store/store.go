package store

import (
	"context"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"golang.org/x/oauth2"
)

// TokenStore persists one grant token per account.
type TokenStore interface {
	// HasGrant reports whether a grant exists for the account without parsing it.
	HasGrant(accountID string) bool
	LoadGrant(accountID string) (*oauth2.Token, error)
	SaveGrant(accountID string, token *oauth2.Token) error
	DeleteGrant(accountID string) error
}

// Journal records runs, account transitions and worker completion markers.
type Journal interface {
	StartRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	RecordAccountEvent(ctx context.Context, event *domain.AccountEvent) error
	ListAccountEvents(ctx context.Context, runID string) ([]domain.AccountEvent, error)

	RecordWorkerResult(ctx context.Context, result *domain.WorkerResult) error
	GetWorkerResult(ctx context.Context, runID, accountID string) (*domain.WorkerResult, error)
	ListWorkerResults(ctx context.Context, runID string) ([]domain.WorkerResult, error)

	Close() error
}

// decodedUsable reports whether a decoded token carries any credential material.
func decodedUsable(token *oauth2.Token) bool {
	return token != nil && (token.AccessToken != "" || token.RefreshToken != "")
}
